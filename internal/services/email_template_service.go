package services

import (
	"context"
	"fmt"
	"strings"

	"smartliving/site/internal/models"
	"smartliving/site/internal/store"
)

const (
	emailTemplatesCollection = "emailTemplates"
	DefaultLocale            = "en-US"
)

// Built-in templates, used when the collection has no override.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	"new_charter_inquiry": {
		TemplateID: "new_charter_inquiry",
		Locale:     DefaultLocale,
		Subject:    "New charter inquiry from {{.name}}",
		Body: "{{.name}} ({{.email}}, {{.phone}}) asked about a charter on {{.charterDate}} for {{.partySize}}.\n\n" +
			"{{.message}}\n\nPrepare a registration form: {{.formLink}}",
	},
	"new_lesson_inquiry": {
		TemplateID: "new_lesson_inquiry",
		Locale:     DefaultLocale,
		Subject:    "New lesson inquiry from {{.name}}",
		Body: "{{.name}} ({{.email}}, {{.phone}}) asked about {{.lessonType}} lessons.\n" +
			"Preferred dates: {{.preferredDates}}\nExperience: {{.experience}}\n\n{{.message}}",
	},
	"new_contact_message": {
		TemplateID: "new_contact_message",
		Locale:     DefaultLocale,
		Subject:    "Contact form: {{.subject}}",
		Body:       "From {{.name}} ({{.email}}, {{.phone}}):\n\n{{.message}}",
	},
	"charter_form_link": {
		TemplateID: "charter_form_link",
		Locale:     DefaultLocale,
		Subject:    "Your charter registration form",
		Body: "Hi {{.name}},\n\nPlease complete your charter registration here:\n{{.link}}\n\n" +
			"Fields filled in by the captain are shown read-only.",
	},
	"charter_form_completed": {
		TemplateID: "charter_form_completed",
		Locale:     DefaultLocale,
		Subject:    "Charter registration completed by {{.name}}",
		Body:       "{{.name}} ({{.email}}) completed their registration.\n\n{{.summary}}\nView it: {{.link}}",
	},
}

// IEmailTemplateService resolves notification templates.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

type emailTemplateService struct {
	store store.Store
}

func NewEmailTemplateService(st store.Store) IEmailTemplateService {
	return &emailTemplateService{store: st}
}

func templateDocID(templateID, locale string) string {
	return templateID + ":" + locale
}

// GetTemplate looks up templateID for locale, then for DefaultLocale, then
// among the built-in templates.
func (s *emailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	locales := []string{locale}
	if locale != DefaultLocale {
		locales = append(locales, DefaultLocale)
	}
	for _, loc := range locales {
		var tmpl models.EmailTemplate
		err := s.store.Get(ctx, emailTemplatesCollection, templateDocID(templateID, loc), &tmpl)
		if err == nil {
			return &tmpl, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("error retrieving template %s/%s: %w", templateID, loc, err)
		}
	}
	if tmpl, ok := defaultEmailTemplates[templateID]; ok {
		return &tmpl, nil
	}
	return nil, fmt.Errorf("template %s (locale: %s): %w", templateID, locale, store.ErrNotFound)
}

func (s *emailTemplateService) SaveTemplate(ctx context.Context, tmpl *models.EmailTemplate) error {
	tmpl.TemplateID = strings.TrimSpace(tmpl.TemplateID)
	if tmpl.TemplateID == "" || strings.TrimSpace(tmpl.Subject) == "" {
		return invalid("template id and subject are required")
	}
	if tmpl.Locale == "" {
		tmpl.Locale = DefaultLocale
	}
	id := templateDocID(tmpl.TemplateID, tmpl.Locale)
	if err := s.store.Set(ctx, emailTemplatesCollection, id, tmpl); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	tmpl.ID = id
	return nil
}

func (s *emailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	if locale == "" {
		locale = DefaultLocale
	}
	if err := s.store.Delete(ctx, emailTemplatesCollection, templateDocID(templateID, locale)); err != nil {
		return notFound(err, "email template", templateID)
	}
	return nil
}
