package ledger

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"playledger/internal/model"
)

type AllowanceEntry struct {
	Owner   model.Address
	Spender model.Address
	Amount  string
}

type ContractSnapshot struct {
	Address model.Address
	Issuer  model.Address
	Assets  []model.Asset
}

// Snapshot is the full ledger state as of event Seq.
type Snapshot struct {
	Seq         uint64
	Balances    map[model.Address]string
	Allowances  []AllowanceEntry
	Records     []model.Record
	BestScores  map[model.Address]uint64
	Contracts   []ContractSnapshot
	RewardAsset model.Address
}

// Empty reports whether the snapshot carries no committed state.
func (s Snapshot) Empty() bool { return s.Seq == 0 }

// Snapshot captures a consistent copy of the ledger. It takes every module
// lock in store, token, registry, contract order.
func (l *Ledger) Snapshot() Snapshot {
	l.Store.mu.RLock()
	defer l.Store.mu.RUnlock()
	l.Token.mu.RLock()
	defer l.Token.mu.RUnlock()
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Seq:         l.journal.seq.Load(),
		Balances:    make(map[model.Address]string, len(l.Token.balances)),
		BestScores:  make(map[model.Address]uint64, len(l.Store.best)),
		RewardAsset: l.Store.rewardAsset,
	}
	for addr, bal := range l.Token.balances {
		snap.Balances[addr] = bal.Dec()
	}
	for key, v := range l.Token.allowances {
		snap.Allowances = append(snap.Allowances, AllowanceEntry{Owner: key.owner, Spender: key.spender, Amount: v.Dec()})
	}
	sort.Slice(snap.Allowances, func(i, j int) bool {
		a, b := snap.Allowances[i], snap.Allowances[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Spender < b.Spender
	})
	for _, rec := range l.Store.records {
		snap.Records = append(snap.Records, *rec)
	}
	sort.Slice(snap.Records, func(i, j int) bool {
		a, b := snap.Records[i], snap.Records[j]
		if a.Participant != b.Participant {
			return a.Participant < b.Participant
		}
		return a.Day < b.Day
	})
	for addr, score := range l.Store.best {
		snap.BestScores[addr] = score
	}
	for addr, c := range l.contracts {
		c.mu.RLock()
		cs := ContractSnapshot{Address: addr, Issuer: c.issuer, Assets: append([]model.Asset(nil), c.assets...)}
		c.mu.RUnlock()
		snap.Contracts = append(snap.Contracts, cs)
	}
	sort.Slice(snap.Contracts, func(i, j int) bool { return snap.Contracts[i].Address < snap.Contracts[j].Address })
	return snap
}

// Restore replaces the ledger state with the snapshot. It validates the whole
// snapshot before touching any module. The total supply is recomputed from
// the balances.
func (l *Ledger) Restore(snap Snapshot) error {
	balances := make(map[model.Address]*uint256.Int, len(snap.Balances))
	total := new(uint256.Int)
	for addr, raw := range snap.Balances {
		v, err := ParseAmount(raw)
		if err != nil {
			return fmt.Errorf("ledger: restore balance %s: %w", addr, err)
		}
		if _, overflow := total.AddOverflow(total, v); overflow {
			return fmt.Errorf("ledger: restore: %w: supply overflow", ErrInvalidAmount)
		}
		balances[addr] = v
	}
	allowances := make(map[allowanceKey]*uint256.Int, len(snap.Allowances))
	for _, a := range snap.Allowances {
		v, err := ParseAmount(a.Amount)
		if err != nil {
			return fmt.Errorf("ledger: restore allowance %s/%s: %w", a.Owner, a.Spender, err)
		}
		allowances[allowanceKey{owner: a.Owner, spender: a.Spender}] = v
	}
	records := make(map[recordKey]*model.Record, len(snap.Records))
	for _, rec := range snap.Records {
		r := rec
		records[recordKey{participant: rec.Participant, day: rec.Day}] = &r
	}
	best := make(map[model.Address]uint64, len(snap.BestScores))
	for addr, score := range snap.BestScores {
		best[addr] = score
	}
	contracts := make(map[model.Address]*RewardAsset, len(snap.Contracts))
	for _, cs := range snap.Contracts {
		assets := append([]model.Asset(nil), cs.Assets...)
		sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
		for i, a := range assets {
			if a.ID != uint64(i)+1 {
				return fmt.Errorf("ledger: restore contract %s: asset ids not contiguous at %d", cs.Address, a.ID)
			}
		}
		issuer := cs.Issuer
		if issuer.IsZero() {
			existing, err := l.RewardAsset(cs.Address)
			if err != nil {
				return fmt.Errorf("ledger: restore contract %s: issuer unknown: %w", cs.Address, err)
			}
			issuer = existing.Issuer()
		}
		c := newRewardAsset(cs.Address, l.admin, issuer, l.journal)
		c.assets = assets
		contracts[cs.Address] = c
	}
	rewardAsset := snap.RewardAsset
	if rewardAsset.IsZero() {
		rewardAsset = l.Store.RewardAssetAddress()
	}

	l.Store.mu.Lock()
	defer l.Store.mu.Unlock()
	l.Token.mu.Lock()
	defer l.Token.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	// Contracts created by New survive unless the snapshot knows them.
	for addr, c := range l.contracts {
		if _, ok := contracts[addr]; !ok {
			contracts[addr] = c
		}
	}
	if _, ok := contracts[rewardAsset]; !ok {
		return fmt.Errorf("ledger: restore: reward asset %q: %w", rewardAsset, ErrNotFound)
	}

	l.Token.balances = balances
	l.Token.allowances = allowances
	l.Token.total.Set(total)
	l.Store.records = records
	l.Store.best = best
	l.Store.rewardAsset = rewardAsset
	l.contracts = contracts
	l.journal.seq.Store(snap.Seq)
	return nil
}
