package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const publishTimeout = 5 * time.Second

// GrpcBus publishes events to a remote EventService over gRPC.
// Used when BusProvider == "grpc" in config.
type GrpcBus struct {
	conn   *grpc.ClientConn
	secret string
}

// NewGrpcBusFromAddr dials the remote EventService and returns a GrpcBus and a cleanup function.
// secret is presented on every Publish.
func NewGrpcBusFromAddr(addr, secret string) (*GrpcBus, func(), error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = conn.Close() }
	return newGrpcBus(conn, secret), cleanup, nil
}

func newGrpcBus(conn *grpc.ClientConn, secret string) *GrpcBus {
	return &GrpcBus{conn: conn, secret: secret}
}

// Publish sends an event to the remote EventService.
func (b *GrpcBus) Publish(topic string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, BusSecretMetadataKey, b.secret)

	var res EventResponse
	err := b.conn.Invoke(ctx, publishMethod, &EventRequest{Topic: topic, Payload: data}, &res,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New("event service: " + res.ErrorMessage)
	}
	return nil
}
