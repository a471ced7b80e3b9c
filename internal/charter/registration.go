// Package charter holds the charter registration workflow: seeding a draft
// from an inquiry, locking captain-defined fields, recomputing derived
// amounts, sending the guest link and accepting the guest's answers.
//
// Everything here is pure; persistence happens in services.
package charter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartliving/site/internal/models"
)

// ErrGuestEmailRequired is returned by Send when the guest email is blank.
var ErrGuestEmailRequired = errors.New("guest email is required before sending")

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
)

// Registration is the charter registration document.
type Registration struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	InquiryID        string    `bson:"inquiryId,omitempty" json:"inquiryId,omitempty"`
	GuestEmail       string    `bson:"guestEmail" json:"guestEmail"`
	LockedFields     Fields    `bson:"lockedFields" json:"lockedFields"`
	GuestData        Fields    `bson:"guestData" json:"guestData"`
	Status           Status    `bson:"status" json:"status"`
	CustomerLinkPath string    `bson:"customerLinkPath,omitempty" json:"customerLinkPath,omitempty"`
	AdminSummary     string    `bson:"adminSummary,omitempty" json:"adminSummary,omitempty"`
	CreatedAt        time.Time `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt,omitempty" json:"updatedAt"`
	Version          int64     `bson:"version" json:"version"`
}

// Normalize fills missing maps and converts decoded values to plain types.
func (r *Registration) Normalize() {
	r.LockedFields = r.LockedFields.Normalize()
	r.GuestData = r.GuestData.Normalize()
	if r.Status == "" {
		r.Status = StatusDraft
	}
}

// GuestLinkPath is the public path of the guest form for a registration id.
func GuestLinkPath(id string) string {
	return "/charter-form/" + id
}

// AdminLinkPath is the admin editor path for a registration id.
func AdminLinkPath(id string) string {
	return "/admin/charter-form/" + id
}

// NewFormPath is the admin path that opens a draft seeded from an inquiry.
func NewFormPath(inquiryID string) string {
	return "/admin/charter-form/new?inquiryId=" + inquiryID
}

// Defaults are the values a blank captain form starts with.
func Defaults() Fields {
	return Fields{
		"companyName":     "Captain Brian Kendzor",
		"charterFromTime": "12:00",
		"charterToTime":   "12:00",
		"partySize":       float64(1),
	}
}

// SeedForm returns the captain form values for a new draft from an inquiry.
func SeedForm(inq *models.CharterInquiry) Fields {
	form := Defaults()
	form["fullName"] = inq.Name
	form["chartererName"] = inq.Name
	form["email"] = inq.Email
	form["phone"] = inq.Phone
	form["charterDate"] = inq.CharterDate
	if inq.PartySize > 0 {
		form["partySize"] = float64(inq.PartySize)
	}
	return form
}

// CreateFromInquiry builds an unsaved draft whose seeded values are already
// locked, so the guest sees them read-only.
func CreateFromInquiry(inq *models.CharterInquiry) *Registration {
	reg := &Registration{
		InquiryID:    inq.ID,
		GuestEmail:   strings.TrimSpace(inq.Email),
		LockedFields: Fields{},
		GuestData:    Fields{},
		Status:       StatusDraft,
	}
	form := SeedForm(inq)
	ApplyDerived(form)
	LockFields(reg, form, CaptainFields)
	return reg
}

// LockFields copies each named field from form into the registration's
// locked set. Non-empty strings (trimmed), any number and any bool lock;
// anything else clears an existing lock instead of locking an empty value.
func LockFields(reg *Registration, form Fields, names []string) {
	if reg.LockedFields == nil {
		reg.LockedFields = Fields{}
	}
	for _, name := range names {
		v, ok := lockValue(form[name])
		if ok {
			reg.LockedFields[name] = v
		} else {
			delete(reg.LockedFields, name)
		}
	}
}

func lockValue(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case bool:
		return val, true
	}
	if n, ok := toNumber(v); ok {
		return n, true
	}
	return nil, false
}

// ApplyForm replaces the captain-defined values of reg with the given form.
// The form is validated, derived values are recomputed and the fields on
// the lock allow-list are locked. Guest data and status are untouched.
//
// A changed fullName is copied to chartererName unless chartererName was
// edited in the same save. A form without totalNights keeps the stored
// count when its dates cannot produce a new one.
func ApplyForm(reg *Registration, input map[string]interface{}) error {
	form, err := Validate(input)
	if err != nil {
		return err
	}
	prev := reg.LockedFields
	fullName := form.Text("fullName")
	if fullName != "" {
		charterer := form.Text("chartererName")
		renamed := fullName != prev.Text("fullName") && charterer == prev.Text("chartererName")
		if charterer == "" || renamed {
			form["chartererName"] = fullName
		}
	}
	if isBlank(form["totalNights"]) && !isBlank(prev["totalNights"]) {
		form["totalNights"] = prev["totalNights"]
	}
	ApplyDerived(form)
	reg.LockedFields = Fields{}
	LockFields(reg, form, CaptainFields)
	reg.GuestEmail = form.Text("email")
	return nil
}

// Send marks the registration as sent to the guest and records the guest
// link path. A completed registration stays completed, so the link can be
// sent again after the guest has answered. A blank guest email leaves the
// registration unchanged.
func Send(reg *Registration) error {
	email := strings.TrimSpace(reg.GuestEmail)
	if email == "" {
		return ErrGuestEmailRequired
	}
	if reg.ID == "" {
		return errors.New("registration must be saved before sending")
	}
	reg.GuestEmail = email
	if reg.Status != StatusCompleted {
		reg.Status = StatusSent
	}
	reg.CustomerLinkPath = GuestLinkPath(reg.ID)
	return nil
}

// SubmitGuestForm merges the guest's answers into the registration and marks
// it completed. Answers for locked, captain-only or derived fields are
// dropped; unknown fields and ill-typed values fail the whole submission.
// A repeat submission overwrites earlier answers key by key.
func SubmitGuestForm(reg *Registration, answers map[string]interface{}) (Fields, error) {
	values, err := Validate(answers)
	if err != nil {
		return nil, err
	}
	accepted := Fields{}
	for name, v := range values {
		if !guestMayWrite(reg, name) {
			continue
		}
		accepted[name] = v
	}
	if reg.GuestData == nil {
		reg.GuestData = Fields{}
	}
	for k, v := range accepted {
		reg.GuestData[k] = v
	}
	reg.Status = StatusCompleted
	return accepted, nil
}

func guestMayWrite(reg *Registration, name string) bool {
	f, ok := fieldsByName[name]
	if !ok || !f.GuestFillable() {
		return false
	}
	_, locked := reg.LockedFields[name]
	return !locked
}

// EditableFields lists, in form order, the fields the guest may still fill.
func EditableFields(reg *Registration) []string {
	var names []string
	for _, f := range catalogue {
		if guestMayWrite(reg, f.Name) {
			names = append(names, f.Name)
		}
	}
	return names
}

// MergedView overlays guest data on the locked fields. Guest values win on
// collision.
func MergedView(reg *Registration) Fields {
	out := make(Fields, len(reg.LockedFields)+len(reg.GuestData))
	for k, v := range reg.LockedFields {
		out[k] = v
	}
	for k, v := range reg.GuestData {
		out[k] = v
	}
	return out
}

// GuestView is what the public form renders.
type GuestView struct {
	ID        string   `json:"id"`
	Status    Status   `json:"status"`
	Locked    Fields   `json:"lockedFields"`
	Values    Fields   `json:"guestData"`
	Editable  []string `json:"editableFields"`
	AutoPrint bool     `json:"autoPrint"`
}

// NewGuestView builds the guest form state. When the guest has not given a
// full name yet and it is not locked, it is prefilled from the charterer.
func NewGuestView(reg *Registration, autoPrint bool) GuestView {
	values := reg.GuestData.Clone()
	if _, locked := reg.LockedFields["fullName"]; !locked && values.Text("fullName") == "" {
		if name := reg.LockedFields.Text("chartererName"); name != "" {
			values["fullName"] = name
		}
	}
	return GuestView{
		ID:        reg.ID,
		Status:    reg.Status,
		Locked:    reg.LockedFields.Clone(),
		Values:    values,
		Editable:  EditableFields(reg),
		AutoPrint: autoPrint,
	}
}

// SummaryLine is one labelled value of the admin summary.
type SummaryLine struct {
	Field string      `json:"field"`
	Label string      `json:"label"`
	Value interface{} `json:"value"`
	Guest bool        `json:"fromGuest"`
}

// Summary lists the merged values in form order, skipping blanks.
func Summary(reg *Registration) []SummaryLine {
	merged := MergedView(reg)
	var lines []SummaryLine
	for _, f := range catalogue {
		v, ok := merged[f.Name]
		if !ok || isBlank(v) {
			continue
		}
		_, fromGuest := reg.GuestData[f.Name]
		lines = append(lines, SummaryLine{Field: f.Name, Label: f.Label, Value: v, Guest: fromGuest})
	}
	return lines
}

func isBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	}
	return false
}

// Describe renders the summary as plain text, one "Label: value" per line.
func Describe(reg *Registration) string {
	var b strings.Builder
	for _, l := range Summary(reg) {
		fmt.Fprintf(&b, "%s: %s\n", l.Label, formatValue(l.Value))
	}
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]interface{}); ok {
				if name, _ := m["name"].(string); name != "" {
					parts = append(parts, name)
					continue
				}
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
