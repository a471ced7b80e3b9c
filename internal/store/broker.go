package store

import (
	"context"
	"sync"
)

// Broker fans change events out to subscribers. The in-process broker serves
// a single instance; cache.RedisBroker spreads events across instances.
type Broker interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, collection string) (<-chan ChangeEvent, error)
}

const subscriberBuffer = 16

// LocalBroker delivers events to subscribers in the same process. Slow
// subscribers lose events rather than block writers.
type LocalBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan ChangeEvent]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[chan ChangeEvent]struct{})}
}

func (b *LocalBroker) Publish(_ context.Context, ev ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.Collection] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, collection string) (<-chan ChangeEvent, error) {
	ch := make(chan ChangeEvent, subscriberBuffer)
	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[chan ChangeEvent]struct{})
	}
	b.subs[collection][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[collection], ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
