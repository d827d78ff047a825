package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"playledger/internal/ledger"
	"playledger/internal/model"
	"playledger/internal/repository"
)

func newTestHandler(t *testing.T) (*Handler, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.New(ledger.Config{
		Admin:         "admin",
		Store:         "store",
		RewardAsset:   "asset",
		Fee:           ledger.Units(10),
		InitialSupply: ledger.Units(1000),
		Clock:         func() time.Time { return time.Date(2024, 6, 22, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return NewHandler(repository.NewLedgerRepo(l, nil, nil), nil), l
}

func decodeReply(t *testing.T, data []byte) (CommandReply, map[string]any) {
	t.Helper()
	var reply CommandReply
	require.NoError(t, json.Unmarshal(data, &reply))
	result, _ := reply.Result.(map[string]any)
	return reply, result
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProcessPlayAndMint(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	reply, result := decodeReply(t, h.process(ctx, PlayTopic, h.play,
		mustJSON(t, model.PlayRequest{Participant: "x", Mood: "Hope", Quote: "Q1", DataURI: "uri1", Score: 100})))
	require.Equal(t, ledger.CodeOK, reply.Code)
	require.Equal(t, false, result["fee_charged"])

	reply, _ = decodeReply(t, h.process(ctx, PlayTopic, h.play,
		mustJSON(t, model.PlayRequest{Participant: "x", Mood: "Joy", Score: 5})))
	require.Equal(t, ledger.CodeInsufficientAllowance, reply.Code)
	require.Nil(t, reply.Result)

	reply, result = decodeReply(t, h.process(ctx, MintTopic, h.mint,
		mustJSON(t, model.MintRequest{Participant: "x", MetadataURI: "meta"})))
	require.Equal(t, ledger.CodeOK, reply.Code)
	require.Equal(t, float64(1), result["asset_id"])

	reply, _ = decodeReply(t, h.process(ctx, MintTopic, h.mint,
		mustJSON(t, model.MintRequest{Participant: "x", MetadataURI: "meta"})))
	require.Equal(t, ledger.CodeAlreadyMinted, reply.Code)
}

func TestProcessRejectsBadPayloads(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	reply, _ := decodeReply(t, h.process(ctx, PlayTopic, h.play, []byte("{")))
	require.Equal(t, codeInvalidCommand, reply.Code)

	reply, _ = decodeReply(t, h.process(ctx, MintTopic, h.mint, []byte("[]")))
	require.Equal(t, codeInvalidCommand, reply.Code)

	reply, _ = decodeReply(t, h.process(ctx, PlayTopic, h.play, mustJSON(t, model.PlayRequest{Mood: "Hope"})))
	require.Equal(t, ledger.CodeInvalidAddress, reply.Code)
}

func TestOnMessageWithoutReplySubject(t *testing.T) {
	h, l := newTestHandler(t)
	handle := h.onMessage(context.Background(), h.play)

	handle(&nats.Msg{Subject: PlayTopic, Data: mustJSON(t, model.PlayRequest{Participant: "y", Mood: "Calm", Score: 7})})

	rec, err := l.Store.Record("y", l.Store.TodayDate())
	require.NoError(t, err)
	require.Equal(t, "Calm", rec.Mood)
	require.Equal(t, uint64(7), rec.Score)
}

func TestCommandReply(t *testing.T) {
	ok := commandReply(&model.MintResult{Day: 3, AssetID: 9}, nil)
	require.Equal(t, ledger.CodeOK, ok.Code)
	require.Empty(t, ok.Error)
	require.Equal(t, &model.MintResult{Day: 3, AssetID: 9}, ok.Result)

	failed := commandReply(nil, fmt.Errorf("store: mint: %w", ledger.ErrAlreadyMinted))
	require.Equal(t, ledger.CodeAlreadyMinted, failed.Code)
	require.Contains(t, failed.Error, "already minted")
	require.Nil(t, failed.Result)
}
