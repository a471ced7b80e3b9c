package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartliving/site/internal/utils"
)

type testEntry struct {
	ID        string                 `bson:"_id,omitempty"`
	Name      string                 `bson:"name"`
	Status    string                 `bson:"status"`
	Rank      int                    `bson:"rank"`
	Extra     map[string]interface{} `bson:"extra,omitempty"`
	CreatedAt time.Time              `bson:"createdAt,omitempty"`
	Version   int64                  `bson:"version"`
}

const testCollection = "storeTestEntries"

// runStoreSuite exercises the behaviour both Store implementations share.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		id, err := s.Create(ctx, testCollection, testEntry{Name: "a", Status: "new", Rank: 2})
		require.NoError(t, err)
		assert.True(t, utils.IsSixID(id))

		var got testEntry
		require.NoError(t, s.Get(ctx, testCollection, id, &got))
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "a", got.Name)
	})

	t.Run("GetMissing", func(t *testing.T) {
		var got testEntry
		assert.ErrorIs(t, s.Get(ctx, testCollection, "0000000000", &got), ErrNotFound)
	})

	t.Run("FindOrderedAndFiltered", func(t *testing.T) {
		_, err := s.Create(ctx, testCollection, testEntry{Name: "b", Status: "new", Rank: 5})
		require.NoError(t, err)
		_, err = s.Create(ctx, testCollection, testEntry{Name: "c", Status: "done", Rank: 1})
		require.NoError(t, err)

		var all []testEntry
		require.NoError(t, s.Find(ctx, testCollection, Query{OrderBy: "rank", Desc: true}, &all))
		require.Len(t, all, 3)
		assert.Equal(t, []string{"b", "a", "c"}, []string{all[0].Name, all[1].Name, all[2].Name})

		var fresh []testEntry
		require.NoError(t, s.Find(ctx, testCollection, Query{Filter: map[string]interface{}{"status": "new"}, OrderBy: "rank", Limit: 1}, &fresh))
		require.Len(t, fresh, 1)
		assert.Equal(t, "a", fresh[0].Name)

		n, err := s.Count(ctx, testCollection, map[string]interface{}{"status": "new"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("MergeKeepsUntouchedFields", func(t *testing.T) {
		id, err := s.Create(ctx, testCollection, testEntry{Name: "m", Status: "new", Extra: map[string]interface{}{"x": 1.0, "y": "keep"}})
		require.NoError(t, err)

		require.NoError(t, s.Set(ctx, testCollection, id, Doc{"status": "done", "extra": Doc{"x": 2.0}}, Merge()))

		var got testEntry
		require.NoError(t, s.Get(ctx, testCollection, id, &got))
		assert.Equal(t, "m", got.Name)
		assert.Equal(t, "done", got.Status)
		assert.Equal(t, 2.0, got.Extra["x"])
		assert.Equal(t, "keep", got.Extra["y"])
	})

	t.Run("ReplaceDropsMissingFields", func(t *testing.T) {
		id, err := s.Create(ctx, testCollection, testEntry{Name: "r", Extra: map[string]interface{}{"x": 1.0}})
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, testCollection, id, testEntry{Name: "r2"}))

		var got testEntry
		require.NoError(t, s.Get(ctx, testCollection, id, &got))
		assert.Equal(t, "r2", got.Name)
		assert.Empty(t, got.Extra)
	})

	t.Run("IfVersion", func(t *testing.T) {
		id, err := s.Create(ctx, testCollection, testEntry{Name: "v", Version: 1})
		require.NoError(t, err)

		assert.ErrorIs(t, s.Set(ctx, testCollection, id, testEntry{Name: "stale", Version: 2}, IfVersion(0)), ErrVersionConflict)
		require.NoError(t, s.Set(ctx, testCollection, id, testEntry{Name: "fresh", Version: 2}, IfVersion(1)))
		assert.ErrorIs(t, s.Set(ctx, testCollection, "0000000000", testEntry{}, IfVersion(1)), ErrNotFound)
	})

	t.Run("ServerTimestamp", func(t *testing.T) {
		id, err := s.Create(ctx, testCollection, Doc{"name": "ts", "createdAt": ServerTimestamp{}})
		require.NoError(t, err)

		var got testEntry
		require.NoError(t, s.Get(ctx, testCollection, id, &got))
		assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
	})

	t.Run("DeleteAndSubscribe", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events, err := s.Subscribe(subCtx, testCollection)
		require.NoError(t, err)

		id, err := s.Create(ctx, testCollection, testEntry{Name: "d"})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, testCollection, id))
		assert.ErrorIs(t, s.Delete(ctx, testCollection, id), ErrNotFound)

		var seen []Op
		for len(seen) < 2 {
			select {
			case ev := <-events:
				if ev.ID == id {
					seen = append(seen, ev.Op)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for change events, got %v", seen)
			}
		}
		assert.Equal(t, []Op{OpCreate, OpDelete}, seen)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore(nil))
}

func TestMongoStore(t *testing.T) {
	database := utils.SetupTestDB(t, "smartliving_store_test", testCollection)
	runStoreSuite(t, NewMongoStore(database, nil))
}

func TestLocalBrokerClosesOnCancel(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), ChangeEvent{Collection: "c", ID: "1", Op: OpCreate}))
	assert.Equal(t, "1", (<-ch).ID)

	cancel()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
	assert.False(t, open)
}

func TestFlattenSkipsEmptyDocs(t *testing.T) {
	out := Doc{}
	flatten("", Doc{"a": Doc{"b": 1, "c": Doc{}}, "d": "x"}, out)
	assert.Equal(t, Doc{"a.b": 1, "d": "x"}, out)
}
