// Package pubsub provides the change-notification bus mutations publish to
// and subscription resolvers read from. Delivery is in-process fan-out:
// events reach the subscribers active at publish time and are then discarded.
package pubsub

import (
	"context"
	"sync"
)

// Broker is the publish/subscribe contract consumed by the schema engine.
type Broker interface {
	// Publish delivers payload to every active subscriber of topic and
	// returns once fan-out completes. Publishing to a topic nobody listens
	// on is a no-op.
	Publish(ctx context.Context, topic string, payload any) error
	// Subscribe returns a live stream of future payloads for the topics.
	// The returned stop function cancels the subscription and closes the
	// stream; cancelling ctx has the same effect.
	Subscribe(ctx context.Context, topics ...string) (<-chan any, func(), error)
}

// InMemoryBroker fans events out to in-process subscribers.
type InMemoryBroker struct {
	mu     sync.RWMutex
	buffer int
	nextID int
	subs   map[string]map[int]chan any
}

// NewInMemoryBroker returns a broker with single-slot subscriber buffers.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{buffer: 1, subs: map[string]map[int]chan any{}}
}

// WithBuffer sets the per-subscriber channel buffer.
func (b *InMemoryBroker) WithBuffer(n int) *InMemoryBroker {
	if n > 0 {
		b.buffer = n
	}
	return b
}

func (b *InMemoryBroker) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Sends stay under the read lock so an unsubscribe (which closes the
	// channel under the write lock) cannot race a delivery. Sends are
	// non-blocking, so the lock is never held across a stalled subscriber.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- payload:
		default:
			// Slow subscriber with a full buffer; no delivery guarantee.
		}
	}
	return nil
}

func (b *InMemoryBroker) Subscribe(ctx context.Context, topics ...string) (<-chan any, func(), error) {
	ch := make(chan any, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = map[int]chan any{}
		}
		b.subs[topic][id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			for _, topic := range topics {
				delete(b.subs[topic], id)
				if len(b.subs[topic]) == 0 {
					delete(b.subs, topic)
				}
			}
			close(ch)
			b.mu.Unlock()
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			stop()
		}()
	}
	return ch, stop, nil
}

var (
	defaultOnce   sync.Once
	defaultBroker *InMemoryBroker
)

// Default returns the process-wide broker. Only the outermost composition
// boundary should reach for it; inner components receive their broker
// explicitly.
func Default() *InMemoryBroker {
	defaultOnce.Do(func() {
		defaultBroker = NewInMemoryBroker()
	})
	return defaultBroker
}
