package models

import "time"

type ContactStatus string

const (
	ContactStatusNew  ContactStatus = "new"
	ContactStatusRead ContactStatus = "read"
)

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	Base      `bson:",inline"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Phone     string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject   string        `bson:"subject" json:"subject"`
	Message   string        `bson:"message" json:"message"`
	Status    ContactStatus `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}
