// Package validation checks submitted form values and coerces them into the
// shapes the fitness API expects.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MsgRequired      = "Campo obrigatório."
	MsgInvalidEmail  = "Endereço de email inválido."
	MsgInvalidNumber = "Valor numérico inválido."
	MsgInvalidPrice  = "Preço inválido."
	MsgInvalidDate   = "Data inválida."
)

// ErrPasswordMismatch is returned when the confirmation differs from the password.
var ErrPasswordMismatch = errors.New("As palavras-passe não coincidem.")

// DatetimeLocalLayout is the value format of <input type="datetime-local">.
const DatetimeLocalLayout = "2006-01-02T15:04"

// Values holds one submitted form, keyed by field name.
type Values map[string]string

// Get returns the trimmed value of field.
func (v Values) Get(field string) string {
	return strings.TrimSpace(v[field])
}

// FieldErrors maps field names to a user-facing message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has an error.
func (e FieldErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Merge copies other's errors into e.
func (e FieldErrors) Merge(other FieldErrors) {
	for f, msg := range other {
		e.Add(f, msg)
	}
}

// Err returns e as an error, or nil when there are no errors.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required reports every listed field that is blank.
func Required(v Values, fields ...string) FieldErrors {
	errs := FieldErrors{}
	for _, f := range fields {
		if v.Get(f) == "" {
			errs.Add(f, MsgRequired)
		}
	}
	return errs
}

// Email reports whether s is a bare email address.
func Email(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// PasswordsMatch checks a password against its confirmation.
func PasswordsMatch(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Int parses an optional integer; blank yields nil.
func Int(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("parse int %q: %w", s, err)
	}
	return &n, nil
}

// Uint parses an optional positive id; blank yields nil.
func Uint(s string) (*uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("parse id %q: invalid", s)
	}
	id := uint(n)
	return &id, nil
}

// Float parses an optional decimal number; blank yields nil. A comma is
// accepted as the decimal separator.
func Float(s string) (*float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse float %q: %w", s, err)
	}
	return &f, nil
}

// Decimal parses a non-negative money amount and returns its canonical
// two-place form, e.g. "29,9" -> "29.90".
func Decimal(s string) (string, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("parse decimal %q: negative", s)
	}
	return d.StringFixed(2), nil
}

// Checkbox maps an HTML checkbox value to a bool. Unchecked boxes are not
// submitted at all and arrive blank.
func Checkbox(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// DatetimeLocalToISO converts a datetime-local value entered in loc to an
// RFC 3339 UTC timestamp. Blank yields nil so the API stores null.
func DatetimeLocalToISO(s string, loc *time.Location) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DatetimeLocalLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	iso := t.UTC().Format(time.RFC3339)
	return &iso, nil
}

// ISOToDatetimeLocal formats an API timestamp for a datetime-local input.
// Zoned timestamps are shown in loc; naive ones are cut to minutes as is.
func ISOToDatetimeLocal(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format(DatetimeLocalLayout)
	}
	if len(s) >= len(DatetimeLocalLayout) {
		return s[:len(DatetimeLocalLayout)]
	}
	return s
}
