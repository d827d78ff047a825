package nats

import "github.com/nats-io/nats.go"

// Bus is the repository.MessageBus the event publisher drains ledger.events into.
type Bus struct {
	nc *nats.Conn
}

func NewBus(nc *nats.Conn) *Bus {
	return &Bus{nc: nc}
}

// Publish is fire-and-forget; delivery to the worker queue group is NATS' concern.
func (b *Bus) Publish(topic string, data []byte) error {
	return b.nc.Publish(topic, data)
}
