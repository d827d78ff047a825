package repository

import (
	"encoding/json"
	"fmt"
	"strconv"

	"playledger/internal/model"
)

type statement struct {
	sql  string
	args []any
}

// Every upsert only wins against an older row, so events may be projected
// out of order or more than once.
const (
	insertEvent = `
		INSERT INTO ledger_events (event_id, seq, type, caller, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`

	upsertBalance = `
		INSERT INTO balances (account, amount, seq) VALUES ($1, $2::numeric, $3)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount, seq = EXCLUDED.seq
		WHERE balances.seq < EXCLUDED.seq`

	upsertAllowance = `
		INSERT INTO allowances (owner, spender, amount, seq) VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount, seq = EXCLUDED.seq
		WHERE allowances.seq < EXCLUDED.seq`

	upsertRecord = `
		INSERT INTO records (participant, day, mood, quote, data_uri, score, minted, seq)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (participant, day) DO UPDATE SET
			mood = EXCLUDED.mood, quote = EXCLUDED.quote, data_uri = EXCLUDED.data_uri,
			score = EXCLUDED.score, minted = EXCLUDED.minted, seq = EXCLUDED.seq
		WHERE records.seq < EXCLUDED.seq`

	upsertBestScore = `
		INSERT INTO best_scores (participant, best_score, seq) VALUES ($1, $2::numeric, $3)
		ON CONFLICT (participant) DO UPDATE SET best_score = EXCLUDED.best_score, seq = EXCLUDED.seq
		WHERE best_scores.seq < EXCLUDED.seq`

	upsertContract = `
		INSERT INTO reward_contracts (address, issuer, seq) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET issuer = EXCLUDED.issuer, seq = EXCLUDED.seq
		WHERE reward_contracts.seq < EXCLUDED.seq`

	insertAsset = `
		INSERT INTO assets (contract, id, owner, external_key, metadata_uri, seq)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contract, id) DO NOTHING`

	upsertConfig = `
		INSERT INTO ledger_config (key, value, seq) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, seq = EXCLUDED.seq
		WHERE ledger_config.seq < EXCLUDED.seq`
)

const configRewardAsset = "reward_asset"

func journalStatement(ev model.Event) (statement, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return statement{}, fmt.Errorf("marshal event %d: %w", ev.Seq, err)
	}
	return statement{
		sql:  insertEvent,
		args: []any{ev.ID.String(), int64(ev.Seq), ev.Type, string(ev.Caller), payload, ev.CreatedAt},
	}, nil
}

// projectEvent translates an event into the projection upserts it implies.
func projectEvent(ev model.Event) ([]statement, error) {
	seq := int64(ev.Seq)
	var out []statement

	switch ev.Type {
	case model.EventTokenIssued:
		out = append(out, statement{upsertBalance, []any{string(ev.To), ev.ToBalance, seq}})

	case model.EventTokenTransferred:
		out = append(out,
			statement{upsertBalance, []any{string(ev.From), ev.FromBalance, seq}},
			statement{upsertBalance, []any{string(ev.To), ev.ToBalance, seq}},
		)
		if !ev.Spender.IsZero() {
			out = append(out, statement{upsertAllowance, []any{string(ev.From), string(ev.Spender), ev.Allowance, seq}})
		}

	case model.EventTokenApproved:
		out = append(out, statement{upsertAllowance, []any{string(ev.From), string(ev.Spender), ev.Allowance, seq}})

	case model.EventAssetDeployed, model.EventAssetIssuerSet:
		out = append(out, statement{upsertContract, []any{string(ev.Contract), string(ev.Issuer), seq}})

	case model.EventAssetMinted:
		if ev.Asset == nil {
			return nil, fmt.Errorf("event %d: %s without asset", ev.Seq, ev.Type)
		}
		a := ev.Asset
		out = append(out, statement{insertAsset, []any{string(a.Contract), int64(a.ID), string(a.Owner), a.ExternalKey, a.MetadataURI, seq}})

	case model.EventRecordPlayed, model.EventRecordMinted, model.EventRecordMintForced:
		if ev.Record == nil {
			return nil, fmt.Errorf("event %d: %s without record", ev.Seq, ev.Type)
		}
		r := ev.Record
		out = append(out, statement{upsertRecord, []any{
			string(r.Participant), r.Day, r.Mood, r.Quote, r.DataURI,
			strconv.FormatUint(r.Score, 10), r.Minted, seq,
		}})
		if ev.Type == model.EventRecordPlayed {
			out = append(out, statement{upsertBestScore, []any{string(r.Participant), strconv.FormatUint(ev.BestScore, 10), seq}})
		}

	case model.EventStoreAssetPointed:
		out = append(out, statement{upsertConfig, []any{configRewardAsset, string(ev.Contract), seq}})

	case model.EventStoreWithdrawn:
		// The paired token.transferred event carries the balances.

	default:
		return nil, fmt.Errorf("event %d: unknown type %q", ev.Seq, ev.Type)
	}
	return out, nil
}
