package models

import "time"

// InquiryStatus tracks an inquiry through admin follow-up. Transitions are
// manual; the system never advances them on its own.
type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusFormSent  InquiryStatus = "form-sent"
	InquiryStatusCompleted InquiryStatus = "completed"
)

var inquiryStatuses = []InquiryStatus{
	InquiryStatusNew,
	InquiryStatusContacted,
	InquiryStatusFormSent,
	InquiryStatusCompleted,
}

// InquiryStatuses lists every status in workflow order.
func InquiryStatuses() []InquiryStatus {
	return append([]InquiryStatus(nil), inquiryStatuses...)
}

func (s InquiryStatus) Valid() bool {
	for _, v := range inquiryStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CharterInquiry is a public request for a charter.
type CharterInquiry struct {
	Base        `bson:",inline"`
	Name        string        `bson:"name" json:"name"`
	Email       string        `bson:"email" json:"email"`
	Phone       string        `bson:"phone" json:"phone"`
	CharterDate string        `bson:"charterDate" json:"charterDate"`
	PartySize   int           `bson:"partySize" json:"partySize"`
	Message     string        `bson:"message" json:"message"`
	Status      InquiryStatus `bson:"status" json:"status"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
}

// LessonInquiry is a public request for sailing lessons.
type LessonInquiry struct {
	Base           `bson:",inline"`
	Name           string        `bson:"name" json:"name"`
	Email          string        `bson:"email" json:"email"`
	Phone          string        `bson:"phone" json:"phone"`
	LessonType     string        `bson:"lessonType" json:"lessonType"`
	PreferredDates string        `bson:"preferredDates" json:"preferredDates"`
	Experience     string        `bson:"experience" json:"experience"`
	Message        string        `bson:"message" json:"message"`
	Status         InquiryStatus `bson:"status" json:"status"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
}
