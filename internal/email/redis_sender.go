package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const mockEmailTTL = 5 * time.Minute

// MockEmailKey is where RedisSender stores the last message sent to an
// address from a template.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// RedisSender stores messages in Redis for end-to-end tests to read back
// through the service API.
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, from string) Sender {
	return &RedisSender{client: client, from: from}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := templateOf(rawMessage)
	if templateID == "" {
		templateID = "unknown"
	}
	data, err := json.Marshal(map[string]interface{}{
		"to":         strings.Join(to, ", "),
		"from":       s.from,
		"subject":    subject,
		"body":       string(rawMessage),
		"sentAt":     time.Now().UTC().Format(time.RFC3339Nano),
		"templateId": templateID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}
	for _, addr := range to {
		key := MockEmailKey(addr, templateID)
		if err := s.client.Set(ctx, key, data, mockEmailTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		log.Printf("email: mock message stored at %s", key)
	}
	return nil
}
