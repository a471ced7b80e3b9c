package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is one attempt at a write that may collide on a generated key.
type Operation func() error

// IsDuplicateKeyError classifies errors worth another attempt.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// ErrDuplicateKey is returned by non-Mongo stores for an _id collision.
var ErrDuplicateKey = errors.New("duplicate key")

// retryDelay is the pause before attempt n+1.
var retryDelay = func(attempt int) time.Duration {
	return time.Duration(50*(attempt+1)) * time.Millisecond
}

// Try runs op, regenerating and retrying on duplicate keys up to
// DefaultMaxRetries times.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsDuplicateKey)
}

// WithRetries runs op once plus up to maxRetries more times while
// isDuplicateKey reports the failure as a key collision. Any other error is
// returned immediately.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == maxRetries || !isDuplicateKey(err) {
			break
		}
		time.Sleep(retryDelay(attempt))
	}
	return err
}

// IsDuplicateKey matches ErrDuplicateKey and MongoDB code 11000.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || IsMongoDuplicateKeyError(err)
}

// IsMongoDuplicateKeyError checks write and bulk-write exceptions for code 11000.
func IsMongoDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
