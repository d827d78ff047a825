package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"playledger/internal/ledger"
	"playledger/internal/metrics"
	"playledger/internal/model"
)

// LedgerRepo serves the ledger from memory, projects its events into
// PostgreSQL and keeps the Redis leaderboard.
type LedgerRepo struct {
	ledger      *ledger.Ledger
	redisClient *redis.Client
	dbPool      *pgxpool.Pool
	metrics     *metrics.LedgerMetrics
}

func NewLedgerRepo(l *ledger.Ledger, rdb *redis.Client, db *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{
		ledger:      l,
		redisClient: rdb,
		dbPool:      db,
		metrics:     metrics.Ledger(),
	}
}

func (r *LedgerRepo) Play(ctx context.Context, caller model.Address, req model.PlayRequest) (*model.PlayResult, error) {
	res, err := r.ledger.Store.Play(caller, req.Mood, req.Quote, req.DataURI, req.Score)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordPlay(res.FeeCharged)
	return &res, nil
}

func (r *LedgerRepo) MintToday(ctx context.Context, caller model.Address, req model.MintRequest) (*model.MintResult, error) {
	res, err := r.ledger.Store.MintTodayAsset(caller, req.MetadataURI)
	r.metrics.RecordMint(ledger.ErrorCode(err))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *LedgerRepo) Record(ctx context.Context, participant model.Address, day int64) (*model.Record, error) {
	rec, err := r.ledger.Store.Record(participant, day)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *LedgerRepo) TodayDate(ctx context.Context) int64 {
	return r.ledger.Store.TodayDate()
}

func (r *LedgerRepo) BestScore(ctx context.Context, participant model.Address) (uint64, error) {
	return r.ledger.Store.BestScore(participant), nil
}

func (r *LedgerRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return topScores(ctx, r.redisClient, limit)
}

func (r *LedgerRepo) Transfer(ctx context.Context, caller model.Address, req model.TransferRequest) error {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	return r.ledger.Token.Transfer(caller, req.To, amount)
}

func (r *LedgerRepo) Approve(ctx context.Context, caller model.Address, req model.ApproveRequest) error {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	return r.ledger.Token.Approve(caller, req.Spender, amount)
}

func (r *LedgerRepo) GetBalance(ctx context.Context, account model.Address) (string, error) {
	return r.ledger.Token.BalanceOf(account).Dec(), nil
}

func (r *LedgerRepo) GetAllowance(ctx context.Context, owner, spender model.Address) (string, error) {
	return r.ledger.Token.AllowanceOf(owner, spender).Dec(), nil
}

// GetAsset reads from the named contract, or from the store's current one
// when contract is empty.
func (r *LedgerRepo) GetAsset(ctx context.Context, contract model.Address, id uint64) (*model.Asset, error) {
	var (
		c   *ledger.RewardAsset
		err error
	)
	if contract.IsZero() {
		c, err = r.ledger.CurrentRewardAsset()
	} else {
		c, err = r.ledger.RewardAsset(contract)
	}
	if err != nil {
		return nil, err
	}
	asset, err := c.Asset(id)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *LedgerRepo) Issue(ctx context.Context, caller model.Address, req model.IssueRequest) error {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	return r.ledger.Token.Issue(caller, req.To, amount)
}

func (r *LedgerRepo) Withdraw(ctx context.Context, caller model.Address, req model.TransferRequest) error {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return err
	}
	return r.ledger.Store.Withdraw(caller, req.To, amount)
}

func (r *LedgerRepo) SetMinted(ctx context.Context, caller model.Address, req model.SetMintedRequest) error {
	return r.ledger.Store.SetMinted(caller, req.Participant, req.Day)
}

func (r *LedgerRepo) SetRewardAsset(ctx context.Context, caller model.Address, address model.Address) error {
	return r.ledger.Store.SetRewardAssetAddress(caller, address)
}

func (r *LedgerRepo) DeployRewardAsset(ctx context.Context, caller model.Address, address model.Address) error {
	_, err := r.ledger.DeployRewardAsset(caller, address)
	return err
}

func (r *LedgerRepo) SetIssuer(ctx context.Context, caller model.Address, req model.IssuerRequest) error {
	c, err := r.ledger.RewardAsset(req.Contract)
	if err != nil {
		return err
	}
	return c.SetIssuer(caller, req.Issuer)
}

// SyncEvent writes one ledger event to the journal and the projection tables
// in a single transaction. Events already journaled are skipped.
func (r *LedgerRepo) SyncEvent(ctx context.Context, ev model.Event) error {
	journal, err := journalStatement(ev)
	if err != nil {
		return err
	}
	stmts, err := projectEvent(ev)
	if err != nil {
		return err
	}

	tx, err := r.dbPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, journal.sql, journal.args...)
	if err != nil {
		return fmt.Errorf("journal event %d: %w", ev.Seq, err)
	}
	if tag.RowsAffected() == 0 {
		slog.Debug("sync: event already journaled", "seq", ev.Seq, "id", ev.ID)
		return nil
	}
	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
			return fmt.Errorf("project event %d (%s): %w", ev.Seq, ev.Type, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit event %d: %w", ev.Seq, err)
	}

	if ev.Type == model.EventRecordPlayed && ev.Record != nil {
		if err := recordBestScore(ctx, r.redisClient, ev.Record.Participant, ev.BestScore); err != nil {
			return err
		}
	}
	return nil
}
