package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartliving/site/internal/store"
)

func TestRedisBrokerRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis test")
	}
	rdb, err := ConnectRedis(addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer DisconnectRedis(rdb)

	b := NewRedisBroker(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := b.Subscribe(ctx, "charterInquiries")
	require.NoError(t, err)

	want := store.ChangeEvent{Collection: "charterInquiries", ID: "ABCDEFGHJK", Op: store.OpCreate}
	require.NoError(t, b.Publish(ctx, want))

	select {
	case got := <-events:
		assert.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event received")
	}
}
