package store

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"smartliving/site/internal/db"
	"smartliving/site/internal/utils"
)

// MemoryStore keeps documents in process memory. Every document is held in
// its BSON-normalized form so reads decode exactly as they would from Mongo.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Doc
	broker      Broker
}

// NewMemoryStore returns an empty store. A nil broker gets a LocalBroker.
func NewMemoryStore(broker Broker) *MemoryStore {
	if broker == nil {
		broker = NewLocalBroker()
	}
	return &MemoryStore{
		collections: make(map[string]map[string]Doc),
		broker:      broker,
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	d, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return decodeDoc(d, out)
}

func (s *MemoryStore) Find(_ context.Context, collection string, q Query, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("store: Find needs a pointer to a slice, got %T", out)
	}

	s.mu.RLock()
	matches := s.match(collection, q.Filter)
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			a, _ := lookup(matches[i], q.OrderBy)
			b, _ := lookup(matches[j], q.OrderBy)
			c := compareValues(a, b)
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	slice := rv.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(matches)))
	elemType := slice.Type().Elem()
	for _, d := range matches {
		item := reflect.New(elemType)
		if err := decodeDoc(d, item.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, item.Elem()))
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string, filter map[string]interface{}) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(collection, filter))), nil
}

// match must be called with the lock held.
func (s *MemoryStore) match(collection string, filter map[string]interface{}) []Doc {
	var out []Doc
	for _, d := range s.collections[collection] {
		ok := true
		for k, want := range filter {
			got, _ := lookup(d, k)
			if !valuesEqual(got, want) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	// map iteration order is random; make unsorted reads repeatable
	sort.SliceStable(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["_id"]) < fmt.Sprint(out[j]["_id"])
	})
	return out
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	d, err := ToDoc(doc)
	if err != nil {
		return "", err
	}
	var id string
	err = db.Try(func() error {
		id = utils.NewDocID()
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collection(collection)
		if _, exists := coll[id]; exists {
			return fmt.Errorf("store: create in %s: %w", collection, db.ErrDuplicateKey)
		}
		d["_id"] = id
		coll[id] = d
		return nil
	})
	if err != nil {
		return "", err
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: OpCreate})
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error {
	o := collectOptions(opts)
	d, err := ToDoc(doc)
	if err != nil {
		return err
	}
	delete(d, "_id")

	s.mu.Lock()
	coll := s.collection(collection)
	existing, exists := coll[id]
	if o.ifVersion != nil {
		if !exists {
			s.mu.Unlock()
			return ErrNotFound
		}
		if v, _ := lookup(existing, "version"); !valuesEqual(v, *o.ifVersion) {
			s.mu.Unlock()
			return ErrVersionConflict
		}
	}
	if o.merge && exists {
		merged, err := ToDoc(existing)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		flat := Doc{}
		flatten("", d, flat)
		for k, v := range flat {
			assign(merged, k, v)
		}
		d = merged
	}
	d["_id"] = id
	coll[id] = d
	s.mu.Unlock()

	op := OpUpdate
	if !exists {
		op = OpCreate
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: op})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	coll := s.collections[collection]
	_, ok := coll[id]
	delete(coll, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string) (<-chan ChangeEvent, error) {
	return s.broker.Subscribe(ctx, collection)
}

func (s *MemoryStore) collection(name string) map[string]Doc {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]Doc)
		s.collections[name] = coll
	}
	return coll
}

func (s *MemoryStore) publish(ctx context.Context, ev ChangeEvent) {
	if err := s.broker.Publish(ctx, ev); err != nil {
		log.Printf("store: publish %s %s/%s: %v", ev.Op, ev.Collection, ev.ID, err)
	}
}

func decodeDoc(d Doc, out interface{}) error {
	raw, err := bson.Marshal(d)
	if err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}
	if err := decode(raw, out); err != nil {
		return fmt.Errorf("store: decode document: %w", err)
	}
	return nil
}
