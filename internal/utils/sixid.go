package utils

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
)

// SixIDHookFunc lets tests pin the identifiers handed out by NewSixID.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook, when set, is consulted before random generation.
var NewSixIDHook SixIDHookFunc

// SixID is a 6-byte random document identifier. Its text form is ten
// Crockford Base32 characters, which is what gets stored as the document _id
// and what appears in guest links such as /charter-form/{id}.
type SixID [6]byte

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

// ErrInvalidSixID is returned for strings that do not decode to six bytes.
var ErrInvalidSixID = errors.New("invalid SixID")

// NewSixID returns a random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}
	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		return SixID{}
	}
	return id
}

// NewDocID is shorthand for NewSixID().String().
func NewDocID() string {
	return NewSixID().String()
}

func (u SixID) String() string {
	return crockford.EncodeToString(u[:])
}

// IsZero reports whether the id is all zero bytes.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// ParseSixID decodes the Crockford form. Lowercase letters, the usual
// look-alikes (O, I, L) and hyphen separators are accepted.
func ParseSixID(s string) (SixID, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	s = strings.NewReplacer("O", "0", "I", "1", "L", "1").Replace(s)
	if len(s) != 10 {
		return SixID{}, ErrInvalidSixID
	}
	raw, err := crockford.DecodeString(s)
	if err != nil || len(raw) != 6 {
		return SixID{}, ErrInvalidSixID
	}
	var id SixID
	copy(id[:], raw)
	return id, nil
}

// IsSixID reports whether s is a well-formed identifier.
func IsSixID(s string) bool {
	_, err := ParseSixID(s)
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (u SixID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *SixID) UnmarshalText(data []byte) error {
	id, err := ParseSixID(string(data))
	if err != nil {
		return err
	}
	*u = id
	return nil
}
