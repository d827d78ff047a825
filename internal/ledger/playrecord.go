package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"playledger/internal/model"
)

// FeeLedger is the part of FeeToken the record store depends on. The
// unexported methods commit without emitting; the store emits the returned
// events once its own lock is released.
type FeeLedger interface {
	Transfer(caller, to model.Address, amount *uint256.Int) error
	transferFrom(spender, owner, to model.Address, amount *uint256.Int) (model.Event, error)
}

// AssetMinter issues reward assets on behalf of an authorized caller.
type AssetMinter interface {
	mint(caller, to model.Address, externalKey, metadataURI string) (uint64, model.Event, error)
}

// AssetResolver looks up the reward asset contract deployed at an address.
type AssetResolver interface {
	Minter(address model.Address) (AssetMinter, error)
}

type recordKey struct {
	participant model.Address
	day         int64
}

// PlayRecordStore keeps one record per participant and day, charges the
// replay fee and mints at most one reward asset per record.
//
// The store lock is held for the whole of Play and MintTodayAsset, including
// the nested token and asset calls. Those never call back into the store, and
// no event leaves the store before the lock is released.
type PlayRecordStore struct {
	mu          sync.RWMutex
	address     model.Address
	admin       model.Address
	fee         *uint256.Int
	token       FeeLedger
	assets      AssetResolver
	rewardAsset model.Address
	records     map[recordKey]*model.Record
	best        map[model.Address]uint64
	clock       Clock
	journal     *journal
}

// ExternalKey encodes a record key for the reward asset's traceability field.
func ExternalKey(participant model.Address, day int64) string {
	return fmt.Sprintf("%s:%d", participant, day)
}

func (s *PlayRecordStore) Address() model.Address { return s.address }

func (s *PlayRecordStore) Fee() *uint256.Int { return s.fee.Clone() }

// TodayDate exposes the store's day identifier for the current time.
func (s *PlayRecordStore) TodayDate() int64 { return DayOf(s.clock()) }

// Play records the outcome of a finished session. The first play of a day is
// free; every later play on the same day pulls the fee from the caller to the
// administrator and overwrites the record. A failed fee transfer leaves the
// record untouched. The minted flag survives overwrites.
func (s *PlayRecordStore) Play(caller model.Address, mood, quote, dataURI string, score uint64) (model.PlayResult, error) {
	if caller.IsZero() {
		return model.PlayResult{}, fmt.Errorf("store: play: %w", ErrInvalidAddress)
	}

	s.mu.Lock()
	day := DayOf(s.clock())
	key := recordKey{participant: caller, day: day}
	rec, exists := s.records[key]
	var pending []model.Event
	if exists {
		feeEv, err := s.token.transferFrom(s.address, caller, s.admin, s.fee)
		if err != nil {
			s.mu.Unlock()
			return model.PlayResult{}, fmt.Errorf("store: play: %w: %w", ErrPaymentRequired, err)
		}
		pending = append(pending, feeEv)
	} else {
		rec = &model.Record{Participant: caller, Day: day}
		s.records[key] = rec
	}
	rec.Mood = mood
	rec.Quote = quote
	rec.DataURI = dataURI
	rec.Score = score
	if score > s.best[caller] {
		s.best[caller] = score
	}

	result := model.PlayResult{Day: day, FeeCharged: exists, Record: *rec}
	if exists {
		result.Fee = s.fee.Dec()
	}
	snapshot := *rec
	ev := s.journal.stamp(model.Event{
		Type:       model.EventRecordPlayed,
		Caller:     caller,
		Record:     &snapshot,
		BestScore:  s.best[caller],
		FeeCharged: exists,
		Amount:     result.Fee,
	})
	s.mu.Unlock()

	s.journal.emit(append(pending, ev)...)
	return result, nil
}

// MintTodayAsset issues a reward asset against the caller's record for today.
// The record is flagged only after the asset contract accepted the mint.
func (s *PlayRecordStore) MintTodayAsset(caller model.Address, metadataURI string) (model.MintResult, error) {
	s.mu.Lock()
	day := DayOf(s.clock())
	rec, ok := s.records[recordKey{participant: caller, day: day}]
	if !ok {
		s.mu.Unlock()
		return model.MintResult{}, fmt.Errorf("store: mint: no record today: %w", ErrNotFound)
	}
	if rec.Minted {
		s.mu.Unlock()
		return model.MintResult{}, fmt.Errorf("store: mint: day %d: %w", day, ErrAlreadyMinted)
	}
	minter, err := s.assets.Minter(s.rewardAsset)
	if err != nil {
		s.mu.Unlock()
		return model.MintResult{}, fmt.Errorf("store: mint: %w", err)
	}
	id, mintEv, err := minter.mint(s.address, caller, ExternalKey(caller, day), metadataURI)
	if err != nil {
		s.mu.Unlock()
		return model.MintResult{}, fmt.Errorf("store: mint: %w", err)
	}
	rec.Minted = true
	snapshot := *rec
	ev := s.journal.stamp(model.Event{
		Type:     model.EventRecordMinted,
		Caller:   caller,
		Record:   &snapshot,
		Contract: s.rewardAsset,
		Asset:    &model.Asset{Contract: s.rewardAsset, ID: id, Owner: caller, MetadataURI: metadataURI},
	})
	s.mu.Unlock()

	s.journal.emit(mintEv, ev)
	return model.MintResult{Day: day, AssetID: id}, nil
}

// SetMinted flags an existing record as minted without issuing an asset.
func (s *PlayRecordStore) SetMinted(caller, participant model.Address, day int64) error {
	if caller != s.admin {
		return fmt.Errorf("store: set minted: %w", ErrUnauthorized)
	}

	s.mu.Lock()
	rec, ok := s.records[recordKey{participant: participant, day: day}]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: set minted: %s day %d: %w", participant, day, ErrNotFound)
	}
	if rec.Minted {
		s.mu.Unlock()
		return nil
	}
	rec.Minted = true
	snapshot := *rec
	ev := s.journal.stamp(model.Event{
		Type:   model.EventRecordMintForced,
		Caller: caller,
		Record: &snapshot,
	})
	s.mu.Unlock()

	s.journal.emit(ev)
	return nil
}

// SetRewardAssetAddress repoints the store at another registered reward asset
// contract. The new contract's issuer is not checked.
func (s *PlayRecordStore) SetRewardAssetAddress(caller, address model.Address) error {
	if caller != s.admin {
		return fmt.Errorf("store: set reward asset: %w", ErrUnauthorized)
	}
	if address.IsZero() {
		return fmt.Errorf("store: set reward asset: %w", ErrInvalidAddress)
	}
	if _, err := s.assets.Minter(address); err != nil {
		return fmt.Errorf("store: set reward asset: %w", err)
	}

	s.mu.Lock()
	s.rewardAsset = address
	ev := s.journal.stamp(model.Event{
		Type:     model.EventStoreAssetPointed,
		Caller:   caller,
		Contract: address,
	})
	s.mu.Unlock()

	s.journal.emit(ev)
	return nil
}

func (s *PlayRecordStore) RewardAssetAddress() model.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewardAsset
}

// Withdraw moves collected fees from the administrator's balance to another
// account through the token's own transfer path.
func (s *PlayRecordStore) Withdraw(caller, to model.Address, amount *uint256.Int) error {
	if caller != s.admin {
		return fmt.Errorf("store: withdraw: %w", ErrUnauthorized)
	}
	if err := s.token.Transfer(s.admin, to, amount); err != nil {
		return fmt.Errorf("store: withdraw: %w", err)
	}
	ev := s.journal.stamp(model.Event{
		Type:   model.EventStoreWithdrawn,
		Caller: caller,
		From:   s.admin,
		To:     to,
		Amount: amount.Dec(),
	})
	s.journal.emit(ev)
	return nil
}

// Record returns the record for a participant on a day.
func (s *PlayRecordStore) Record(participant model.Address, day int64) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{participant: participant, day: day}]
	if !ok {
		return model.Record{}, fmt.Errorf("store: record %s day %d: %w", participant, day, ErrNotFound)
	}
	return *rec, nil
}

// BestScore returns the highest score the participant ever submitted,
// including scores later overwritten by a same-day replay.
func (s *PlayRecordStore) BestScore(participant model.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.best[participant]
}
