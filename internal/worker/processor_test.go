package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"playledger/internal/model"
	"playledger/internal/service"
)

type mockService struct {
	service.LedgerService
	synced  []model.Event
	syncErr error
}

func (m *mockService) SyncEvent(ctx context.Context, event model.Event) error {
	m.synced = append(m.synced, event)
	return m.syncErr
}

func TestEventWorkerHandle(t *testing.T) {
	svc := &mockService{}
	w := NewEventWorker(svc, nil)

	payload, err := json.Marshal(model.Event{Seq: 4, Type: model.EventRecordPlayed, Record: &model.Record{Participant: "x", Day: 1, Score: 10}})
	require.NoError(t, err)

	w.handle(context.Background(), payload)
	require.Len(t, svc.synced, 1)
	require.Equal(t, uint64(4), svc.synced[0].Seq)
	require.Equal(t, uint64(10), svc.synced[0].Record.Score)

	// Malformed payloads never reach the service.
	w.handle(context.Background(), []byte("{"))
	require.Len(t, svc.synced, 1)

	svc.syncErr = errors.New("db down")
	w.handle(context.Background(), payload)
	require.Len(t, svc.synced, 2)
}
