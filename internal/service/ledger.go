package service

import (
	"context"

	"playledger/internal/model"
)

// LedgerService defines the business operations for the play ledger.
// All transport layers (HTTP, gRPC, NATS) depend on this interface, not on the concrete repo.
// Every mutating call carries the authenticated caller; the ledger only authorizes.
type LedgerService interface {
	Play(ctx context.Context, caller model.Address, req model.PlayRequest) (*model.PlayResult, error)
	MintToday(ctx context.Context, caller model.Address, req model.MintRequest) (*model.MintResult, error)
	Record(ctx context.Context, participant model.Address, day int64) (*model.Record, error)
	TodayDate(ctx context.Context) int64
	BestScore(ctx context.Context, participant model.Address) (uint64, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	Transfer(ctx context.Context, caller model.Address, req model.TransferRequest) error
	Approve(ctx context.Context, caller model.Address, req model.ApproveRequest) error
	GetBalance(ctx context.Context, account model.Address) (string, error)
	GetAllowance(ctx context.Context, owner, spender model.Address) (string, error)
	GetAsset(ctx context.Context, contract model.Address, id uint64) (*model.Asset, error)

	Issue(ctx context.Context, caller model.Address, req model.IssueRequest) error
	Withdraw(ctx context.Context, caller model.Address, req model.TransferRequest) error
	SetMinted(ctx context.Context, caller model.Address, req model.SetMintedRequest) error
	SetRewardAsset(ctx context.Context, caller model.Address, address model.Address) error
	DeployRewardAsset(ctx context.Context, caller model.Address, address model.Address) error
	SetIssuer(ctx context.Context, caller model.Address, req model.IssuerRequest) error

	SyncEvent(ctx context.Context, event model.Event) error
}
