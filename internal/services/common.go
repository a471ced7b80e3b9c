package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smartliving/site/internal/store"
)

var (
	// ErrInvalidInput marks a request the caller must fix.
	ErrInvalidInput  = errors.New("invalid input")
	// ErrStaleWrite is returned when a save names a version that is no longer current.
	ErrStaleWrite    = errors.New("document was changed by someone else")
	ErrInvalidStatus = errors.New("invalid status")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ITaskQueue hands work to the background workers.
type ITaskQueue interface {
	EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error
	EnqueueImageProcess(ctx context.Context, key, name, uploadedBy string) error
}

// notify queues a templated email. Queue failures are logged and swallowed:
// the write the email reports on has already succeeded.
func notify(ctx context.Context, q ITaskQueue, to, templateID string, data map[string]interface{}) {
	if q == nil || strings.TrimSpace(to) == "" {
		return
	}
	if err := q.EnqueueEmail(ctx, to, templateID, data); err != nil {
		log.Printf("services: failed to queue %s email to %s: %v", templateID, to, err)
	}
}

var workflowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartliving",
	Name:      "workflow_events_total",
	Help:      "Inquiries, messages and charter registration transitions, by kind.",
}, []string{"kind"})

func countEvent(kind string) {
	workflowEvents.WithLabelValues(kind).Inc()
}

// notFound converts the store's sentinel into a message naming the item.
func notFound(err error, what, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// validateInput checks the binding tags of a public form, so callers that
// skip the HTTP layer get the same rules.
func validateInput(in interface{}) error {
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return InputError(err)
	}
	return nil
}

// InputError turns a binding or validation failure into ErrInvalidInput,
// naming the first offending field.
func InputError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return invalid("malformed request body")
	}
	fe := fields[0]
	name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "email":
		return invalid("a valid email is required")
	case "required":
		return invalid("%s is required", name)
	default:
		return invalid("%s is invalid", name)
	}
}
