package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func mongoDuplicate(key string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error index: _id_ dup key: { : %q }", key),
	}}}
}

func noDelay(t *testing.T) {
	prev := retryDelay
	retryDelay = func(int) time.Duration { return 0 }
	t.Cleanup(func() { retryDelay = prev })
}

func TestWithRetries_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(func() error { calls++; return nil }, 3, IsDuplicateKey)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_OtherErrorStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := WithRetries(func() error { calls++; return boom }, 3, IsDuplicateKey)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustsOnCollisions(t *testing.T) {
	noDelay(t)
	calls := 0
	err := WithRetries(func() error { calls++; return mongoDuplicate("ABCDEFGHJK") }, 3, IsDuplicateKey)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, 4, calls)
}

func TestTry_RecoversAfterCollision(t *testing.T) {
	noDelay(t)
	calls := 0
	err := Try(func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("insert: %w", ErrDuplicateKey)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(ErrDuplicateKey))
	assert.True(t, IsDuplicateKey(mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}))
	assert.False(t, IsDuplicateKey(errors.New("nope")))
	assert.False(t, IsDuplicateKey(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}))
}
