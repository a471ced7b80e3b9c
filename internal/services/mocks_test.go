package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"smartliving/site/internal/config"
	"smartliving/site/internal/store"
)

type mockTaskQueue struct {
	mock.Mock
}

func (m *mockTaskQueue) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	args := m.Called(ctx, to, templateID, data)
	return args.Error(0)
}

func (m *mockTaskQueue) EnqueueImageProcess(ctx context.Context, key, name, uploadedBy string) error {
	args := m.Called(ctx, key, name, uploadedBy)
	return args.Error(0)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GeneratePresignedPutURL(ctx context.Context, folder, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, folder, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *mockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *mockStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver:       config.StoreMemory,
		JwtSecret:         "test-secret",
		JwtTTL:            time.Hour,
		SiteBaseURL:       "https://smartliving.example.com",
		AdminNotifyEmail:  "captain@example.com",
		SeedAdminEmail:    "Admin@Example.com",
		SeedAdminPassword: "correct-horse",
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewMemoryStore(nil)
}
