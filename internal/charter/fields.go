package charter

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrInvalidValue = errors.New("invalid form value")
)

// Kind is the value type a form field holds.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindList
)

// Owner says who may write a field.
type Owner int

const (
	// OwnerCaptain fields are set by the admin and locked when they carry a value.
	OwnerCaptain Owner = iota
	// OwnerShared fields are captain fields the guest may fill while unlocked.
	OwnerShared
	// OwnerGuest fields are only ever written by the guest.
	OwnerGuest
	// OwnerDerived fields are computed from other fields.
	OwnerDerived
)

// Field describes one entry of the registration form.
type Field struct {
	Name  string
	Label string
	Kind  Kind
	Owner Owner
}

// Lockable reports whether the captain may lock the field.
func (f Field) Lockable() bool {
	return f.Owner != OwnerGuest
}

// GuestFillable reports whether a guest may supply the field when it is not locked.
func (f Field) GuestFillable() bool {
	return f.Owner == OwnerShared || f.Owner == OwnerGuest
}

// catalogue is in form order; Summary follows it.
var catalogue = []Field{
	// charter details
	{"charterDate", "Charter date", KindText, OwnerShared},
	{"startTime", "Start time", KindText, OwnerShared},
	{"duration", "Duration", KindText, OwnerShared},
	{"charterType", "Charter type", KindText, OwnerShared},
	{"partySize", "Party size", KindNumber, OwnerShared},
	{"pickupLocation", "Pickup location", KindText, OwnerShared},

	// lead guest
	{"fullName", "Full name", KindText, OwnerShared},
	{"preferredName", "Preferred name", KindText, OwnerShared},
	{"email", "Email", KindText, OwnerShared},
	{"phone", "Phone", KindText, OwnerShared},
	{"address", "Address", KindText, OwnerShared},

	// agreement
	{"agreementDateText", "Agreement date", KindText, OwnerCaptain},
	{"chartererName", "Charterer", KindText, OwnerCaptain},
	{"companyName", "Company", KindText, OwnerCaptain},
	{"yachtModel", "Yacht model", KindText, OwnerCaptain},
	{"yachtName", "Yacht name", KindText, OwnerCaptain},
	{"sleepAboard", "Sleep aboard", KindBool, OwnerCaptain},
	{"sleepFromTime", "Sleep aboard from (time)", KindText, OwnerCaptain},
	{"sleepFromDate", "Sleep aboard from (date)", KindText, OwnerCaptain},
	{"charterFromTime", "Charter from (time)", KindText, OwnerCaptain},
	{"charterFromDate", "Charter from (date)", KindText, OwnerCaptain},
	{"charterToTime", "Charter to (time)", KindText, OwnerCaptain},
	{"charterToDate", "Charter to (date)", KindText, OwnerCaptain},
	{"totalNights", "Total nights", KindNumber, OwnerDerived},
	{"numInParty", "Number in party", KindNumber, OwnerCaptain},
	{"paxNotes", "Passenger notes", KindText, OwnerCaptain},

	// pricing
	{"charterFee", "Charter fee", KindNumber, OwnerCaptain},
	{"provisioning", "Provisioning", KindNumber, OwnerCaptain},
	{"nationalParksFee", "National parks fee", KindNumber, OwnerCaptain},
	{"cruisingPermit", "Cruising permit", KindNumber, OwnerCaptain},
	{"fuelSurcharge", "Fuel surcharge", KindNumber, OwnerCaptain},
	{"visarDonation", "VISAR donation", KindNumber, OwnerCaptain},
	{"hotel", "Hotel", KindNumber, OwnerCaptain},
	{"instructorFee", "Instructor fee", KindNumber, OwnerCaptain},
	{"depositDue", "Deposit due", KindNumber, OwnerCaptain},
	{"totalAmount", "Total amount", KindNumber, OwnerDerived},
	{"balanceDue", "Balance due", KindNumber, OwnerDerived},
	{"refundableDamageDeposit", "Refundable damage deposit", KindNumber, OwnerCaptain},
	{"paymentNotes", "Payment notes", KindText, OwnerCaptain},

	// guest only
	{"guests", "Additional guests", KindList, OwnerGuest},
	{"allergies", "Allergies", KindText, OwnerGuest},
	{"medical", "Medical conditions", KindText, OwnerGuest},
	{"experience", "Sailing experience", KindText, OwnerGuest},
	{"lifejackets", "Lifejackets", KindText, OwnerGuest},
	{"nonSlip", "Non-slip shoes", KindBool, OwnerGuest},
	{"emgName", "Emergency contact", KindText, OwnerGuest},
	{"emgPhone", "Emergency phone", KindText, OwnerGuest},
	{"emgRelation", "Emergency relation", KindText, OwnerGuest},
	{"agreePolicies", "Agrees to policies", KindBool, OwnerGuest},
	{"agreeWaiver", "Agrees to waiver", KindBool, OwnerGuest},
	{"photoConsent", "Photo consent", KindBool, OwnerGuest},
	{"signature", "Signature", KindText, OwnerGuest},
	{"notes", "Notes", KindText, OwnerGuest},
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(catalogue))
	for _, f := range catalogue {
		m[f.Name] = f
	}
	return m
}()

// CaptainFields is the lock allow-list: every field the captain may lock.
var CaptainFields = func() []string {
	var names []string
	for _, f := range catalogue {
		if f.Lockable() {
			names = append(names, f.Name)
		}
	}
	return names
}()

// Lookup returns the catalogue entry for name.
func Lookup(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Catalogue returns the form fields in display order.
func Catalogue() []Field {
	return append([]Field(nil), catalogue...)
}

// Fields is an open field map as stored on a registration. Keys are checked
// against the catalogue on every write.
type Fields map[string]interface{}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Text returns the trimmed string value of name, or "".
func (f Fields) Text(name string) string {
	s, _ := f[name].(string)
	return strings.TrimSpace(s)
}

// Number returns the numeric value of name; missing or non-numeric values read as 0.
func (f Fields) Number(name string) float64 {
	n, _ := toNumber(f[name])
	return n
}

// Validate checks every key against the catalogue and coerces each value to
// its field kind. It returns a new map; nil values are kept as nil.
func Validate(in map[string]interface{}) (Fields, error) {
	out := make(Fields, len(in))
	for name, raw := range in {
		field, ok := fieldsByName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		v, err := coerce(field, raw)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func coerce(f Field, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64, int, int32, int64:
			n, _ := toNumber(v)
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		}
	case KindNumber:
		if n, ok := toNumber(raw); ok {
			return n, nil
		}
		if s, ok := raw.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, nil
			}
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				return n, nil
			}
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, nil
			}
		}
	case KindList:
		if list, ok := plain(raw).([]interface{}); ok {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be %s", ErrInvalidValue, f.Name, f.Kind)
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "a number"
	case KindBool:
		return "true or false"
	case KindList:
		return "a list"
	}
	return "unknown"
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// plain converts decoded BSON containers into plain maps and slices so a
// value reads the same whether it came from JSON or from the store.
func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = plain(e.Value)
		}
		return m
	case nil, string, bool, float64:
		return val
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = plain(iter.Value().Interface())
		}
		return m
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// Normalize rewrites decoded values into plain Go types: numbers as float64,
// documents as maps and arrays as slices. Unknown keys are left alone.
func (f Fields) Normalize() Fields {
	if f == nil {
		return Fields{}
	}
	for k, v := range f {
		if n, ok := toNumber(v); ok {
			f[k] = n
			continue
		}
		f[k] = plain(v)
	}
	return f
}
