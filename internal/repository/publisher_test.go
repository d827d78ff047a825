package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"playledger/internal/ledger"
	"playledger/internal/model"
)

// stalledBus blocks every Publish until release is closed.
type stalledBus struct {
	release chan struct{}

	mu        sync.Mutex
	published int
}

func (b *stalledBus) Publish(topic string, data []byte) error {
	<-b.release
	b.mu.Lock()
	b.published++
	b.mu.Unlock()
	return nil
}

func (b *stalledBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

func TestLedgerKeepsRunningWhileBusStalls(t *testing.T) {
	bus := &stalledBus{release: make(chan struct{})}
	pub := NewEventPublisher(bus, 1)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = pub.Start(ctx)
		close(stopped)
	}()

	l, err := ledger.New(ledger.Config{
		Admin:         "admin",
		Store:         "store",
		RewardAsset:   "asset",
		Fee:           ledger.Units(10),
		InitialSupply: ledger.Units(1000),
		Emitter:       pub,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		if err := l.Token.Transfer("admin", "x", ledger.Units(100)); err != nil {
			done <- err
			return
		}
		if err := l.Token.Approve("x", "store", ledger.Units(100)); err != nil {
			done <- err
			return
		}
		for i := 0; i < 3; i++ {
			if _, err := l.Store.Play("x", "Hope", "Q", "uri", uint64(i)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ledger operations blocked on the bus")
	}
	require.Equal(t, ledger.Units(80), l.Token.BalanceOf("x"))

	close(bus.release)
	// issued, transferred, approved, 3 plays and 2 replay fees
	require.Eventually(t, func() bool { return bus.count() == 8 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	require.Zero(t, pub.Pending())
}

func TestEventPublisherEmitAfterShutdownDoesNotBlock(t *testing.T) {
	pub := NewEventPublisher(&recordingBus{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Start(ctx))

	for i := 1; i <= 5; i++ {
		pub.Emit(model.Event{Seq: uint64(i), Type: model.EventTokenApproved})
	}
	require.Equal(t, 5, pub.Pending())
}
