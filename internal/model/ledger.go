package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is an opaque caller identity. Authentication happens before a value
// of this type reaches the ledger.
type Address string

func (a Address) IsZero() bool { return a == "" }

func (a Address) String() string { return string(a) }

type PlayRequest struct {
	Participant Address `json:"participant,omitempty"`
	Mood        string  `json:"mood"`
	Quote       string  `json:"quote"`
	DataURI     string  `json:"data_uri"`
	Score       uint64  `json:"score"`
}

type MintRequest struct {
	Participant Address `json:"participant,omitempty"`
	MetadataURI string  `json:"metadata_uri"`
}

type TransferRequest struct {
	To     Address `json:"to"`
	Amount string  `json:"amount"`
}

type ApproveRequest struct {
	Spender Address `json:"spender"`
	Amount  string  `json:"amount"`
}

type SetMintedRequest struct {
	Participant Address `json:"participant"`
	Day         int64   `json:"day"`
}

type PlayResult struct {
	Day        int64  `json:"day"`
	FeeCharged bool   `json:"fee_charged"`
	Fee        string `json:"fee,omitempty"`
	Record     Record `json:"record"`
}

type MintResult struct {
	Day     int64  `json:"day"`
	AssetID uint64 `json:"asset_id"`
}

// Record is the outcome of the latest play of a participant on a given day.
type Record struct {
	Participant Address `json:"participant"`
	Day         int64   `json:"day"`
	Mood        string  `json:"mood"`
	Quote       string  `json:"quote"`
	DataURI     string  `json:"data_uri"`
	Score       uint64  `json:"score"`
	Minted      bool    `json:"minted"`
}

// Asset is one issued reward unit. Owner and metadata never change after mint.
type Asset struct {
	Contract    Address `json:"contract"`
	ID          uint64  `json:"id"`
	Owner       Address `json:"owner"`
	ExternalKey string  `json:"external_key"`
	MetadataURI string  `json:"metadata_uri"`
}

type LeaderboardEntry struct {
	Participant Address `json:"participant"`
	BestScore   uint64  `json:"best_score"`
}

const (
	EventTokenIssued       = "token.issued"
	EventTokenTransferred  = "token.transferred"
	EventTokenApproved     = "token.approved"
	EventAssetIssuerSet    = "asset.issuer_set"
	EventAssetDeployed     = "asset.deployed"
	EventAssetMinted       = "asset.minted"
	EventRecordPlayed      = "record.played"
	EventRecordMinted      = "record.minted"
	EventRecordMintForced  = "record.mint_forced"
	EventStoreAssetPointed = "store.asset_repointed"
	EventStoreWithdrawn    = "store.withdrawn"
)

// Event is a committed ledger mutation. It carries the post-state the mutation
// produced so projections can upsert without reading back.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	Caller Address   `json:"caller,omitempty"`

	From        Address `json:"from,omitempty"`
	To          Address `json:"to,omitempty"`
	Spender     Address `json:"spender,omitempty"`
	Amount      string  `json:"amount,omitempty"`
	FromBalance string  `json:"from_balance,omitempty"`
	ToBalance   string  `json:"to_balance,omitempty"`
	Allowance   string  `json:"allowance,omitempty"`
	TotalSupply string  `json:"total_supply,omitempty"`

	Record     *Record `json:"record,omitempty"`
	BestScore  uint64  `json:"best_score,omitempty"`
	FeeCharged bool    `json:"fee_charged,omitempty"`

	Asset    *Asset  `json:"asset,omitempty"`
	Contract Address `json:"contract,omitempty"`
	Issuer   Address `json:"issuer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type IssueRequest struct {
	To     Address `json:"to"`
	Amount string  `json:"amount"`
}

type AddressRequest struct {
	Address Address `json:"address"`
}

type IssuerRequest struct {
	Contract Address `json:"contract"`
	Issuer   Address `json:"issuer"`
}
