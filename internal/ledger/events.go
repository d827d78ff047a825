package ledger

import (
	"sync/atomic"

	"github.com/google/uuid"

	"playledger/internal/model"
)

// Emitter receives committed ledger events. Implementations must not call back
// into the ledger.
type Emitter interface {
	Emit(model.Event)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

func (NoopEmitter) Emit(model.Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(model.Event)

func (f EmitterFunc) Emit(ev model.Event) { f(ev) }

// journal stamps events with a ledger-wide sequence number. Stamping happens
// while the owning module still holds its lock so that events touching the
// same key are ordered by Seq.
type journal struct {
	seq   atomic.Uint64
	sink  Emitter
	clock Clock
}

func newJournal(sink Emitter, clock Clock) *journal {
	if sink == nil {
		sink = NoopEmitter{}
	}
	return &journal{sink: sink, clock: clock}
}

func (j *journal) stamp(ev model.Event) model.Event {
	ev.Seq = j.seq.Add(1)
	ev.ID = uuid.New()
	ev.CreatedAt = j.clock().UTC()
	return ev
}

func (j *journal) emit(events ...model.Event) {
	for _, ev := range events {
		j.sink.Emit(ev)
	}
}
