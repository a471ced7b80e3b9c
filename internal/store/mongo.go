package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smartliving/site/internal/db"
	"smartliving/site/internal/utils"
)

// MongoStore is the production Store. Change events go through the broker
// because change streams need a replica set the site does not run.
type MongoStore struct {
	db     *mongo.Database
	broker Broker
}

func NewMongoStore(database *mongo.Database, broker Broker) *MongoStore {
	if broker == nil {
		broker = NewLocalBroker()
	}
	return &MongoStore{db: database, broker: broker}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, q Query, out interface{}) error {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.db.Collection(collection).Find(ctx, filterDoc(q.Filter), opts)
	if err != nil {
		return fmt.Errorf("store: find in %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("store: decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, filterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("store: count %s: %w", collection, err)
	}
	return n, nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, doc interface{}) (string, error) {
	d, err := ToDoc(doc)
	if err != nil {
		return "", err
	}
	var id string
	err = db.Try(func() error {
		id = utils.NewDocID()
		d["_id"] = id
		_, err := s.db.Collection(collection).InsertOne(ctx, d)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store: create in %s: %w", collection, err)
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: OpCreate})
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error {
	o := collectOptions(opts)
	d, err := ToDoc(doc)
	if err != nil {
		return err
	}
	delete(d, "_id")

	coll := s.db.Collection(collection)
	filter := bson.M{"_id": id}
	upsert := o.ifVersion == nil
	if o.ifVersion != nil {
		filter["version"] = *o.ifVersion
	}

	var matched, upserted int64
	if o.merge {
		flat := Doc{}
		flatten("", d, flat)
		if len(flat) == 0 {
			return nil
		}
		res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": flat}, options.Update().SetUpsert(upsert))
		if err != nil {
			return fmt.Errorf("store: merge %s/%s: %w", collection, id, err)
		}
		matched, upserted = res.MatchedCount, res.UpsertedCount
	} else {
		res, err := coll.ReplaceOne(ctx, filter, d, options.Replace().SetUpsert(upsert))
		if err != nil {
			return fmt.Errorf("store: replace %s/%s: %w", collection, id, err)
		}
		matched, upserted = res.MatchedCount, res.UpsertedCount
	}

	if matched == 0 && upserted == 0 {
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("store: check %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	op := OpUpdate
	if upserted > 0 {
		op = OpCreate
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: op})
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	s.publish(ctx, ChangeEvent{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string) (<-chan ChangeEvent, error) {
	return s.broker.Subscribe(ctx, collection)
}

// EnsureIndexes creates the secondary indexes the services query on.
func (s *MongoStore) EnsureIndexes(ctx context.Context, indexes map[string][]mongo.IndexModel) error {
	for collection, models := range indexes {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("store: indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (s *MongoStore) publish(ctx context.Context, ev ChangeEvent) {
	if err := s.broker.Publish(ctx, ev); err != nil {
		log.Printf("store: publish %s %s/%s: %v", ev.Op, ev.Collection, ev.ID, err)
	}
}

func filterDoc(filter map[string]interface{}) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}
