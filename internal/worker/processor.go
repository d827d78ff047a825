package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"playledger/internal/model"
	"playledger/internal/repository"
	"playledger/internal/service"
)

// EventWorker listens on the ledger events NATS topic and projects each
// event into PostgreSQL and the Redis leaderboard.
type EventWorker struct {
	svc      service.LedgerService
	natsConn *nats.Conn
}

func NewEventWorker(svc service.LedgerService, nc *nats.Conn) *EventWorker {
	return &EventWorker{
		svc:      svc,
		natsConn: nc,
	}
}

// Run subscribes to the events topic and blocks until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context) error {
	// Each event is delivered to one member of the queue group.
	sub, err := w.natsConn.QueueSubscribe(repository.EventsTopic, "worker_group", func(m *nats.Msg) {
		w.handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Event worker is running", "topic", repository.EventsTopic)

	// Wait for shutdown signal.
	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	return sub.Drain()
}

func (w *EventWorker) handle(ctx context.Context, data []byte) {
	var event model.Event
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("worker: failed to unmarshal nats message", "error", err)
		return
	}

	// Journal insert is idempotent and projections are seq-guarded.
	if err := w.svc.SyncEvent(ctx, event); err != nil {
		slog.Error("worker: failed to sync event with postgres",
			"seq", event.Seq,
			"type", event.Type,
			"error", err,
		)
		return
	}

	slog.Debug("worker: event synced",
		"seq", event.Seq,
		"type", event.Type,
	)
}

// Start implements the infrastructure.Server interface.
func (w *EventWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *EventWorker) Stop(ctx context.Context) error {
	return nil
}
