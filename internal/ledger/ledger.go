// Package ledger implements the play-record ledger: a fee token, reward asset
// contracts and the play record store that orchestrates them. All state is
// held in memory and every operation commits atomically or not at all.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"playledger/internal/model"
)

type Config struct {
	Admin         model.Address
	Store         model.Address
	RewardAsset   model.Address
	Fee           *uint256.Int
	InitialSupply *uint256.Int
	Clock         Clock
	Emitter       Emitter
}

// Ledger composes the three modules and the registry of reward asset
// contracts the store can be pointed at.
type Ledger struct {
	admin   model.Address
	journal *journal

	Token *FeeToken
	Store *PlayRecordStore

	mu        sync.RWMutex
	contracts map[model.Address]*RewardAsset
}

// New builds a ledger with one reward asset contract whose issuer is the
// record store. A non-zero InitialSupply is issued to the administrator.
func New(cfg Config) (*Ledger, error) {
	if cfg.Admin.IsZero() || cfg.Store.IsZero() || cfg.RewardAsset.IsZero() {
		return nil, fmt.Errorf("ledger: admin, store and reward asset addresses are required: %w", ErrInvalidAddress)
	}
	if cfg.Store == cfg.Admin {
		return nil, fmt.Errorf("ledger: store address must differ from admin: %w", ErrInvalidAddress)
	}
	if cfg.Fee == nil {
		return nil, fmt.Errorf("ledger: fee is required: %w", ErrInvalidAmount)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	j := newJournal(cfg.Emitter, cfg.Clock)
	l := &Ledger{
		admin:     cfg.Admin,
		journal:   j,
		Token:     newFeeToken(cfg.Admin, j),
		contracts: make(map[model.Address]*RewardAsset),
	}
	l.contracts[cfg.RewardAsset] = newRewardAsset(cfg.RewardAsset, cfg.Admin, cfg.Store, j)
	l.Store = &PlayRecordStore{
		address:     cfg.Store,
		admin:       cfg.Admin,
		fee:         cfg.Fee.Clone(),
		token:       l.Token,
		assets:      l,
		rewardAsset: cfg.RewardAsset,
		records:     make(map[recordKey]*model.Record),
		best:        make(map[model.Address]uint64),
		clock:       cfg.Clock,
		journal:     j,
	}

	if cfg.InitialSupply != nil && !cfg.InitialSupply.IsZero() {
		if err := l.Token.Issue(cfg.Admin, cfg.Admin, cfg.InitialSupply); err != nil {
			return nil, fmt.Errorf("ledger: initial supply: %w", err)
		}
	}
	return l, nil
}

func (l *Ledger) Admin() model.Address { return l.admin }

// RewardAsset returns the contract deployed at address.
func (l *Ledger) RewardAsset(address model.Address) (*RewardAsset, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.contracts[address]
	if !ok {
		return nil, fmt.Errorf("ledger: reward asset contract %q: %w", address, ErrNotFound)
	}
	return c, nil
}

// Minter implements AssetResolver.
func (l *Ledger) Minter(address model.Address) (AssetMinter, error) {
	return l.RewardAsset(address)
}

// CurrentRewardAsset returns the contract the record store mints against.
func (l *Ledger) CurrentRewardAsset() (*RewardAsset, error) {
	return l.RewardAsset(l.Store.RewardAssetAddress())
}

// DeployRewardAsset registers a new reward asset contract. Its issuer starts
// as the administrator and has to be pointed at the store before the store
// can mint through it.
func (l *Ledger) DeployRewardAsset(caller, address model.Address) (*RewardAsset, error) {
	if caller != l.admin {
		return nil, fmt.Errorf("ledger: deploy reward asset: %w", ErrUnauthorized)
	}
	if address.IsZero() {
		return nil, fmt.Errorf("ledger: deploy reward asset: %w", ErrInvalidAddress)
	}

	l.mu.Lock()
	if _, exists := l.contracts[address]; exists {
		l.mu.Unlock()
		return nil, fmt.Errorf("ledger: deploy reward asset: %q already deployed: %w", address, ErrInvalidAddress)
	}
	c := newRewardAsset(address, l.admin, l.admin, l.journal)
	l.contracts[address] = c
	ev := l.journal.stamp(model.Event{
		Type:     model.EventAssetDeployed,
		Caller:   caller,
		Contract: address,
		Issuer:   l.admin,
	})
	l.mu.Unlock()

	l.journal.emit(ev)
	return c, nil
}

// Contracts lists the deployed reward asset addresses in sorted order.
func (l *Ledger) Contracts() []model.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Address, 0, len(l.contracts))
	for addr := range l.contracts {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Seq returns the sequence number of the last committed event.
func (l *Ledger) Seq() uint64 { return l.journal.seq.Load() }
