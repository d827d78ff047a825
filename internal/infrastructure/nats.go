package infrastructure

import (
	"github.com/nats-io/nats.go"
)

func connectNats(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("playledger"))
	if err != nil {
		return nil, err
	}

	return nc, nil
}
