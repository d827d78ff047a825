package ledger

import (
	"fmt"
	"sync"

	"playledger/internal/model"
)

// RewardAsset is a non-fungible issuance ledger. Only the configured issuer
// may mint; identifiers start at 1 and never repeat.
type RewardAsset struct {
	mu      sync.RWMutex
	address model.Address
	admin   model.Address
	issuer  model.Address
	assets  []model.Asset
	journal *journal
}

func newRewardAsset(address, admin, issuer model.Address, j *journal) *RewardAsset {
	return &RewardAsset{address: address, admin: admin, issuer: issuer, journal: j}
}

func (a *RewardAsset) Address() model.Address { return a.address }

func (a *RewardAsset) Issuer() model.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.issuer
}

// SetIssuer replaces the single identity allowed to mint.
func (a *RewardAsset) SetIssuer(caller, issuer model.Address) error {
	if caller != a.admin {
		return fmt.Errorf("asset %s: set issuer: %w", a.address, ErrUnauthorized)
	}
	if issuer.IsZero() {
		return fmt.Errorf("asset %s: set issuer: %w", a.address, ErrInvalidAddress)
	}

	a.mu.Lock()
	a.issuer = issuer
	ev := a.journal.stamp(model.Event{
		Type:     model.EventAssetIssuerSet,
		Caller:   caller,
		Contract: a.address,
		Issuer:   issuer,
	})
	a.mu.Unlock()

	a.journal.emit(ev)
	return nil
}

// Mint issues the next identifier to the given owner. externalKey is stored
// for traceability only; uniqueness per key is the issuer's concern.
func (a *RewardAsset) Mint(caller, to model.Address, externalKey, metadataURI string) (uint64, error) {
	id, ev, err := a.mint(caller, to, externalKey, metadataURI)
	if err != nil {
		return 0, err
	}
	a.journal.emit(ev)
	return id, nil
}

// mint issues the asset and returns its stamped event without emitting it.
func (a *RewardAsset) mint(caller, to model.Address, externalKey, metadataURI string) (uint64, model.Event, error) {
	if to.IsZero() {
		return 0, model.Event{}, fmt.Errorf("asset %s: mint: %w", a.address, ErrInvalidAddress)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if caller.IsZero() || caller != a.issuer {
		return 0, model.Event{}, fmt.Errorf("asset %s: mint: %w", a.address, ErrUnauthorized)
	}
	asset := model.Asset{
		Contract:    a.address,
		ID:          uint64(len(a.assets)) + 1,
		Owner:       to,
		ExternalKey: externalKey,
		MetadataURI: metadataURI,
	}
	a.assets = append(a.assets, asset)
	ev := a.journal.stamp(model.Event{
		Type:     model.EventAssetMinted,
		Caller:   caller,
		Contract: a.address,
		To:       to,
		Asset:    &asset,
	})
	return asset.ID, ev, nil
}

func (a *RewardAsset) Asset(id uint64) (model.Asset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id == 0 || id > uint64(len(a.assets)) {
		return model.Asset{}, fmt.Errorf("asset %s: id %d: %w", a.address, id, ErrNotFound)
	}
	return a.assets[id-1], nil
}

func (a *RewardAsset) OwnerOf(id uint64) (model.Address, error) {
	asset, err := a.Asset(id)
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

func (a *RewardAsset) MetadataOf(id uint64) (string, error) {
	asset, err := a.Asset(id)
	if err != nil {
		return "", err
	}
	return asset.MetadataURI, nil
}

// Issued reports how many units have been minted so far.
func (a *RewardAsset) Issued() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return uint64(len(a.assets))
}
