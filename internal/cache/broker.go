package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"smartliving/site/internal/store"
)

const changeChannelPrefix = "store_changes:"

// RedisBroker carries store change events over Redis Pub/Sub so every API
// instance sees writes made by any other (admin dashboards, SSE streams).
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, ev store.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	if err := b.rdb.Publish(ctx, changeChannelPrefix+ev.Collection, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, collection string) (<-chan store.ChangeEvent, error) {
	pubsub := b.rdb.Subscribe(ctx, changeChannelPrefix+collection)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s changes: %w", collection, err)
	}

	out := make(chan store.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev store.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("cache: bad change event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, nil
}
