package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"playledger/internal/ledger"
	"playledger/internal/model"
)

// LoadSnapshot rebuilds the ledger state from the projection tables.
// An empty database yields an empty snapshot.
func LoadSnapshot(ctx context.Context, db *pgxpool.Pool) (ledger.Snapshot, error) {
	snap := ledger.Snapshot{
		Balances:   map[model.Address]string{},
		BestScores: map[model.Address]uint64{},
	}

	var seq int64
	if err := db.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&seq); err != nil {
		return snap, fmt.Errorf("load seq: %w", err)
	}
	snap.Seq = uint64(seq)

	err := queryEach(ctx, db, `SELECT account, amount::text FROM balances`, func(rows pgx.Rows) error {
		var account, amount string
		if err := rows.Scan(&account, &amount); err != nil {
			return err
		}
		snap.Balances[model.Address(account)] = amount
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load balances: %w", err)
	}

	err = queryEach(ctx, db, `SELECT owner, spender, amount::text FROM allowances`, func(rows pgx.Rows) error {
		var a ledger.AllowanceEntry
		var owner, spender string
		if err := rows.Scan(&owner, &spender, &a.Amount); err != nil {
			return err
		}
		a.Owner, a.Spender = model.Address(owner), model.Address(spender)
		snap.Allowances = append(snap.Allowances, a)
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load allowances: %w", err)
	}

	err = queryEach(ctx, db, `
		SELECT participant, day, mood, quote, data_uri, score::text, minted FROM records`, func(rows pgx.Rows) error {
		var r model.Record
		var participant, score string
		if err := rows.Scan(&participant, &r.Day, &r.Mood, &r.Quote, &r.DataURI, &score, &r.Minted); err != nil {
			return err
		}
		v, err := strconv.ParseUint(score, 10, 64)
		if err != nil {
			return fmt.Errorf("record %s/%d score: %w", participant, r.Day, err)
		}
		r.Participant, r.Score = model.Address(participant), v
		snap.Records = append(snap.Records, r)
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load records: %w", err)
	}

	err = queryEach(ctx, db, `SELECT participant, best_score::text FROM best_scores`, func(rows pgx.Rows) error {
		var participant, score string
		if err := rows.Scan(&participant, &score); err != nil {
			return err
		}
		v, err := strconv.ParseUint(score, 10, 64)
		if err != nil {
			return fmt.Errorf("best score %s: %w", participant, err)
		}
		snap.BestScores[model.Address(participant)] = v
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load best scores: %w", err)
	}

	contracts := map[model.Address]*ledger.ContractSnapshot{}
	var order []model.Address
	contract := func(addr model.Address) *ledger.ContractSnapshot {
		c, ok := contracts[addr]
		if !ok {
			c = &ledger.ContractSnapshot{Address: addr}
			contracts[addr] = c
			order = append(order, addr)
		}
		return c
	}
	err = queryEach(ctx, db, `SELECT address, issuer FROM reward_contracts ORDER BY address`, func(rows pgx.Rows) error {
		var address, issuer string
		if err := rows.Scan(&address, &issuer); err != nil {
			return err
		}
		contract(model.Address(address)).Issuer = model.Address(issuer)
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load contracts: %w", err)
	}
	err = queryEach(ctx, db, `
		SELECT contract, id, owner, external_key, metadata_uri FROM assets ORDER BY contract, id`, func(rows pgx.Rows) error {
		var a model.Asset
		var addr, owner string
		var id int64
		if err := rows.Scan(&addr, &id, &owner, &a.ExternalKey, &a.MetadataURI); err != nil {
			return err
		}
		a.Contract, a.ID, a.Owner = model.Address(addr), uint64(id), model.Address(owner)
		c := contract(a.Contract)
		c.Assets = append(c.Assets, a)
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("load assets: %w", err)
	}
	for _, addr := range order {
		snap.Contracts = append(snap.Contracts, *contracts[addr])
	}

	var rewardAsset string
	err = db.QueryRow(ctx, `SELECT value FROM ledger_config WHERE key = $1`, configRewardAsset).Scan(&rewardAsset)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return snap, fmt.Errorf("load config: %w", err)
	default:
		snap.RewardAsset = model.Address(rewardAsset)
	}

	return snap, nil
}

func queryEach(ctx context.Context, db *pgxpool.Pool, query string, fn func(pgx.Rows) error) error {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
