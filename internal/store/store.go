// Package store is the document persistence layer. Services talk to the
// Store interface only; a MongoDB implementation backs production and an
// in-memory one backs tests and local runs without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var (
	ErrNotFound        = errors.New("document not found")
	// ErrVersionConflict is returned when IfVersion does not match the stored version.
	ErrVersionConflict = errors.New("document version conflict")
)

// Doc is the untyped document form used for writes.
type Doc = bson.M

// Query narrows a Find. Filter keys are matched by equality.
type Query struct {
	Filter  map[string]interface{}
	OrderBy string
	Desc    bool
	Limit   int
}

// Op is the kind of change a ChangeEvent reports.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is published after every successful write.
type ChangeEvent struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         Op     `json:"op"`
}

// Store is the document store used by every service.
type Store interface {
	// Get decodes the document with the given id into out.
	Get(ctx context.Context, collection, id string, out interface{}) error
	// Find decodes matching documents into out, which must point to a slice.
	Find(ctx context.Context, collection string, q Query, out interface{}) error
	Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error)
	// Create stores doc under a freshly generated id and returns that id.
	Create(ctx context.Context, collection string, doc interface{}) (string, error)
	// Set writes doc under id, replacing the stored document unless Merge is given.
	Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error
	Delete(ctx context.Context, collection, id string) error
	// Subscribe streams change events for a collection until ctx is done.
	Subscribe(ctx context.Context, collection string) (<-chan ChangeEvent, error)
}

type setOptions struct {
	merge     bool
	ifVersion *int64
}

// SetOption tunes a Set call.
type SetOption func(*setOptions)

// Merge deep-merges doc into the stored document, creating it when absent.
// Nested documents are merged key by key; all other values replace.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// IfVersion makes the write conditional on the stored "version" field.
// The document must already exist.
func IfVersion(v int64) SetOption {
	return func(o *setOptions) { o.ifVersion = &v }
}

func collectOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

var timeNow = time.Now

// ServerTimestamp is a placeholder value resolved to the store's clock when
// the document is written.
type ServerTimestamp struct{}

// MarshalBSONValue writes the current time, so a timestamp placeholder that
// reaches the encoder unresolved still lands as a date.
func (ServerTimestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(timeNow().UTC())
}

// ToDoc converts a struct or map into a Doc using its bson tags. The result
// is a fresh copy: nested documents come back as Doc and arrays as bson.A.
func ToDoc(v interface{}) (Doc, error) {
	if v == nil {
		return Doc{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode document: %w", err)
	}
	var out Doc
	if err := decode(raw, &out); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}
	return out, nil
}

func decode(raw []byte, out interface{}) error {
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(raw))
	if err != nil {
		return err
	}
	dec.DefaultDocumentM()
	return dec.Decode(out)
}

// flatten turns nested documents into dotted paths for a merge write.
// Empty nested documents contribute nothing.
func flatten(prefix string, d Doc, out Doc) {
	for k, v := range d {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case Doc:
			flatten(key, val, out)
		default:
			out[key] = v
		}
	}
}
