package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"playledger/internal/metrics"
	"playledger/internal/model"
)

// EventPublisher is the ledger's emitter. Emit only appends to an in-memory
// queue and never waits on the bus; Start drains the queue to the bus in
// emission order.
type EventPublisher struct {
	bus     MessageBus
	metrics *metrics.LedgerMetrics

	mu      sync.Mutex
	pending []model.Event
	notify  chan struct{}
}

// NewEventPublisher returns a publisher whose queue starts with room for
// bufferSize events and grows as needed.
func NewEventPublisher(bus MessageBus, bufferSize int) *EventPublisher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &EventPublisher{
		bus:     bus,
		metrics: metrics.Ledger(),
		pending: make([]model.Event, 0, bufferSize),
		notify:  make(chan struct{}, 1),
	}
}

// Emit implements ledger.Emitter.
func (p *EventPublisher) Emit(ev model.Event) {
	p.mu.Lock()
	p.pending = append(p.pending, ev)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Pending reports how many events are waiting for the bus.
func (p *EventPublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Start implements the infrastructure.Server interface.
func (p *EventPublisher) Start(ctx context.Context) error {
	slog.Info("Event publisher is running", "topic", EventsTopic)
	for {
		select {
		case <-p.notify:
			p.flush()
		case <-ctx.Done():
			p.flush()
			if n := p.Pending(); n > 0 {
				slog.Warn("publisher: stopped with unpublished events", "count", n)
			}
			return nil
		}
	}
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (p *EventPublisher) Stop(ctx context.Context) error {
	return nil
}

func (p *EventPublisher) flush() {
	for {
		p.mu.Lock()
		batch := p.pending
		p.pending = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			p.publish(ev)
		}
	}
}

func (p *EventPublisher) publish(ev model.Event) {
	data, err := json.Marshal(ev)
	if err == nil {
		err = p.bus.Publish(EventsTopic, data)
	}
	p.metrics.RecordEvent(ev.Type, err)
	if err != nil {
		slog.Error("publisher: failed to publish event",
			"type", ev.Type,
			"seq", ev.Seq,
			"error", err,
		)
	}
}
