package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"playledger/internal/model"
)

type allowanceKey struct {
	owner   model.Address
	spender model.Address
}

// FeeToken is a fungible balance ledger with administrator-only issuance and
// ERC-20 style allowances. Balances are mutated only by Issue, Transfer and
// TransferFrom, which keeps the sum of balances equal to the total supply.
type FeeToken struct {
	mu         sync.RWMutex
	admin      model.Address
	total      uint256.Int
	balances   map[model.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	journal    *journal
}

func newFeeToken(admin model.Address, j *journal) *FeeToken {
	return &FeeToken{
		admin:      admin,
		balances:   make(map[model.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		journal:    j,
	}
}

// Issue mints amount to the given account. Only the administrator may issue.
func (t *FeeToken) Issue(caller, to model.Address, amount *uint256.Int) error {
	if caller != t.admin {
		return fmt.Errorf("token: issue: %w", ErrUnauthorized)
	}
	if to.IsZero() {
		return fmt.Errorf("token: issue: %w", ErrInvalidAddress)
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("token: issue: %w: must be positive", ErrInvalidAmount)
	}

	t.mu.Lock()
	total, overflow := new(uint256.Int).AddOverflow(&t.total, amount)
	if overflow {
		t.mu.Unlock()
		return fmt.Errorf("token: issue: %w: supply overflow", ErrInvalidAmount)
	}
	t.total.Set(total)
	bal := t.balance(to)
	bal.Add(bal, amount)
	ev := t.journal.stamp(model.Event{
		Type:        model.EventTokenIssued,
		Caller:      caller,
		To:          to,
		Amount:      amount.Dec(),
		ToBalance:   bal.Dec(),
		TotalSupply: t.total.Dec(),
	})
	t.mu.Unlock()

	t.journal.emit(ev)
	return nil
}

// Transfer moves amount from the caller to another account.
func (t *FeeToken) Transfer(caller, to model.Address, amount *uint256.Int) error {
	if err := checkTransfer(caller, to, amount); err != nil {
		return fmt.Errorf("token: transfer: %w", err)
	}

	t.mu.Lock()
	ev, err := t.move(caller, caller, to, amount)
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("token: transfer: %w", err)
	}

	t.journal.emit(ev)
	return nil
}

// Approve sets the caller's allowance for spender to exactly amount,
// replacing any earlier value.
func (t *FeeToken) Approve(caller, spender model.Address, amount *uint256.Int) error {
	if caller.IsZero() || spender.IsZero() {
		return fmt.Errorf("token: approve: %w", ErrInvalidAddress)
	}
	if amount == nil {
		return fmt.Errorf("token: approve: %w", ErrInvalidAmount)
	}

	t.mu.Lock()
	t.allowances[allowanceKey{owner: caller, spender: spender}] = amount.Clone()
	ev := t.journal.stamp(model.Event{
		Type:      model.EventTokenApproved,
		Caller:    caller,
		From:      caller,
		Spender:   spender,
		Amount:    amount.Dec(),
		Allowance: amount.Dec(),
	})
	t.mu.Unlock()

	t.journal.emit(ev)
	return nil
}

// TransferFrom moves amount from owner to another account on behalf of
// spender, consuming the same amount of the owner's allowance for spender.
// Nothing changes unless both the allowance and the balance cover amount.
// A zero amount needs no allowance.
func (t *FeeToken) TransferFrom(spender, owner, to model.Address, amount *uint256.Int) error {
	ev, err := t.transferFrom(spender, owner, to, amount)
	if err != nil {
		return err
	}
	t.journal.emit(ev)
	return nil
}

// transferFrom commits the move and returns its stamped event without
// emitting it, so a caller holding its own lock can emit after releasing it.
func (t *FeeToken) transferFrom(spender, owner, to model.Address, amount *uint256.Int) (model.Event, error) {
	if spender.IsZero() {
		return model.Event{}, fmt.Errorf("token: transfer from: %w", ErrInvalidAddress)
	}
	if err := checkTransfer(owner, to, amount); err != nil {
		return model.Event{}, fmt.Errorf("token: transfer from: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	key := allowanceKey{owner: owner, spender: spender}
	allowed := t.allowances[key]
	if !amount.IsZero() && (allowed == nil || allowed.Lt(amount)) {
		return model.Event{}, fmt.Errorf("token: transfer from: %w: allowance %s, need %s",
			ErrInsufficientAllowance, FormatAmount(allowed), amount.Dec())
	}
	ev, err := t.move(spender, owner, to, amount)
	if err != nil {
		return model.Event{}, fmt.Errorf("token: transfer from: %w", err)
	}
	if allowed != nil {
		allowed.Sub(allowed, amount)
	}
	ev.Spender = spender
	ev.Allowance = FormatAmount(allowed)
	return ev, nil
}

// BalanceOf returns a copy of the account balance.
func (t *FeeToken) BalanceOf(account model.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bal, ok := t.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// AllowanceOf returns the amount spender may still move from owner.
func (t *FeeToken) AllowanceOf(owner, spender model.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.allowances[allowanceKey{owner: owner, spender: spender}]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

func (t *FeeToken) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total.Clone()
}

// move requires t.mu held. The returned event is already stamped.
func (t *FeeToken) move(caller, from, to model.Address, amount *uint256.Int) (model.Event, error) {
	src := t.balances[from]
	if (src == nil && !amount.IsZero()) || (src != nil && src.Lt(amount)) {
		return model.Event{}, fmt.Errorf("%w: balance %s, need %s",
			ErrInsufficientBalance, FormatAmount(src), amount.Dec())
	}
	src = t.balance(from)
	src.Sub(src, amount)
	dst := t.balance(to)
	dst.Add(dst, amount)
	return t.journal.stamp(model.Event{
		Type:        model.EventTokenTransferred,
		Caller:      caller,
		From:        from,
		To:          to,
		Amount:      amount.Dec(),
		FromBalance: src.Dec(),
		ToBalance:   dst.Dec(),
	}), nil
}

// balance requires t.mu held.
func (t *FeeToken) balance(account model.Address) *uint256.Int {
	bal, ok := t.balances[account]
	if !ok {
		bal = new(uint256.Int)
		t.balances[account] = bal
	}
	return bal
}

func checkTransfer(from, to model.Address, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrInvalidAddress
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return nil
}
