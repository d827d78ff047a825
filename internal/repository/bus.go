package repository

// EventsTopic carries every committed ledger event.
const EventsTopic = "ledger.events"

type MessageBus interface {
	Publish(topic string, data []byte) error
}
