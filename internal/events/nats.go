package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes JSON-encoded events to NATS subjects and subscribes to
// them over a single connection.
type NATSBus struct {
	conn *nats.Conn
}

// Compile-time checks that NATSBus is both a Publisher and a Subscriber.
var (
	_ Publisher  = (*NATSBus)(nil)
	_ Subscriber = (*NATSBus)(nil)
)

// NewNATSBus connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSBus(url string, opts ...nats.Option) (*NATSBus, error) {
	defaults := []nats.Option{
		nats.Name("chunks"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBus{conn: nc}, nil
}

func (b *NATSBus) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := b.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel that receives events for the given topic
// (supports NATS wildcards like "chunks.>"). Events are never dropped: a
// slow reader backs up into the NATS client's pending buffer instead,
// since a lost invalidation leaves a stale cache entry behind.
func (b *NATSBus) Subscribe(topic string) (<-chan Envelope, func(), error) {
	ch := make(chan Envelope, 64)
	done := make(chan struct{})

	var (
		mu       sync.Mutex
		closed   bool
		inflight sync.WaitGroup
		once     sync.Once
	)

	sub, err := b.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		select {
		case ch <- Envelope{Topic: msg.Subject, Data: msg.Data}:
		case <-done:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before we return, or events
	// published on other connections could be missed.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			mu.Unlock()
			close(done)
			inflight.Wait()
			close(ch)
		})
	}

	return ch, cancel, nil
}

// Flush waits until the server has processed all published messages.
func (b *NATSBus) Flush() error {
	return b.conn.Flush()
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
