package models

// EmailTemplate is a stored notification template. Subject and Body use
// {{.key}} placeholders filled from the task payload.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"templateId" json:"templateId"`
	Locale     string `bson:"locale" json:"locale"`
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
