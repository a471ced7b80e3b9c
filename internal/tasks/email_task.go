package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/hibiken/asynq"

	"smartliving/site/internal/email"
	"smartliving/site/internal/store"
)

// EmailTaskPayload is the payload of TypeEmailDelivery.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

func NewEmailTask(to, templateID string, data map[string]interface{}) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{To: to, TemplateID: templateID, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload), nil
}

var leftoverPlaceholder = regexp.MustCompile(`\{\{\.[A-Za-z0-9_]+\}\}`)

// Render fills {{.key}} placeholders from data. Placeholders with no value
// render empty.
func Render(text string, data map[string]interface{}) string {
	for key, val := range data {
		text = strings.ReplaceAll(text, "{{."+key+"}}", fmt.Sprintf("%v", val))
	}
	return leftoverPlaceholder.ReplaceAllString(text, "")
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, payload.Locale)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("email template %s not found: %w", payload.TemplateID, asynq.SkipRetry)
		}
		return err
	}

	from := p.cfg.SmtpFromAddress
	if from == "" {
		from = "noreply@example.com"
		log.Printf("tasks: SmtpFromAddress not configured, using %s for email to %s", from, payload.To)
	}
	msg := email.Message{
		From:       from,
		To:         []string{payload.To},
		Subject:    Render(tmpl.Subject, payload.Data),
		Body:       Render(tmpl.Body, payload.Data),
		TemplateID: payload.TemplateID,
	}
	// admin notifications reply straight to the customer
	if reply, ok := payload.Data["email"].(string); ok {
		msg.ReplyTo = reply
	}

	if err := p.emailSender.Send(ctx, msg.To, msg.Subject, msg.Bytes()); err != nil {
		log.Printf("tasks: sending %s to %s failed: %v", payload.TemplateID, payload.To, err)
		return err
	}
	log.Printf("tasks: sent %s to %s", payload.TemplateID, payload.To)
	return nil
}
