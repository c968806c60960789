// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package validate provides the field validators used by the screens.
// Validators are pure: they carry no state and perform no I/O. A failed
// check yields one or more Reasons, which are i18n keys rendered in the
// caller's language.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
)

// Field length limits.
const (
	MaxTitleLength        = 45
	MaxNameLength         = 30
	MaxCityLength         = 50
	MaxAddressLength      = 50
	MaxBusinessTypeLength = 25
	MaxContactInfoLength  = 25

	MinPasswordLength = 8

	MinPercentage     = 0
	MaxPercentage     = 99
	MaxQuantityDigits = 8
)

// PasswordSymbols is the set of characters accepted by the symbol rule.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

var (
	emailRegex     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex     = regexp.MustCompile(`^[+]?[0-9]{7,15}$`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
)

// Reason is a single violated rule.
type Reason struct {
	Key  string
	Args []any
	// Labels are field label keys, translated and joined with the
	// language's list separator into the first format argument.
	Labels []string
}

// Message renders the reason in lang.
func (r Reason) Message(lang string) string {
	if len(r.Labels) > 0 {
		labels := make([]string, len(r.Labels))
		for i, l := range r.Labels {
			labels[i] = i18n.T(lang, l)
		}
		return i18n.T(lang, r.Key, i18n.Join(lang, labels))
	}
	return i18n.T(lang, r.Key, r.Args...)
}

// Result is the outcome of a check. An empty Result is valid.
type Result []Reason

// Valid reports whether no rule was violated.
func (r Result) Valid() bool {
	return len(r) == 0
}

// Messages renders every reason in lang, in rule order.
func (r Result) Messages(lang string) []string {
	msgs := make([]string, len(r))
	for i, reason := range r {
		msgs[i] = reason.Message(lang)
	}
	return msgs
}

// Err returns the result as an error, or nil when valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Reasons: r}
}

func invalid(key string, args ...any) Result {
	return Result{{Key: key, Args: args}}
}

// Error carries a failed Result through error returns.
type Error struct {
	Reasons Result
}

func (e *Error) Error() string {
	return strings.Join(e.Reasons.Messages(i18n.DefaultLanguage), " ")
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Email checks the local@domain.tld shape of an address after
// normalization and returns the normalized form.
func Email(raw string) (string, Result) {
	email := NormalizeEmail(raw)
	if !emailRegex.MatchString(email) {
		return email, invalid("validate.email_invalid")
	}
	return email, nil
}

// NewPassword evaluates every password rule independently and returns all
// violated rules: length, uppercase, digit, symbol.
func NewPassword(raw string) Result {
	var r Result
	if utf8.RuneCountInString(raw) < MinPasswordLength {
		r = append(r, Reason{Key: "validate.password_min_length", Args: []any{MinPasswordLength}})
	}
	if !uppercaseRegex.MatchString(raw) {
		r = append(r, Reason{Key: "validate.password_uppercase"})
	}
	if !digitRegex.MatchString(raw) {
		r = append(r, Reason{Key: "validate.password_digit"})
	}
	if !strings.ContainsAny(raw, PasswordSymbols) {
		r = append(r, Reason{Key: "validate.password_symbol"})
	}
	return r
}

// MaxLength rejects values longer than max characters.
func MaxLength(raw string, max int) Result {
	if utf8.RuneCountInString(raw) > max {
		return invalid("validate.max_length", max)
	}
	return nil
}

// Title is MaxLength with the title-specific message.
func Title(raw string) Result {
	if utf8.RuneCountInString(raw) > MaxTitleLength {
		return invalid("validate.title_max_length", MaxTitleLength)
	}
	return nil
}

// Percentage parses a discount percentage in [0, 99]. Empty input reads
// as 0, so a typed percentage can be rubbed out but never unset.
func Percentage(raw string) (*int, Result) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		zero := 0
		return &zero, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < MinPercentage || v > MaxPercentage {
		return nil, invalid("validate.percentage_range", MinPercentage, MaxPercentage)
	}
	return &v, nil
}

// Quantity parses an available quantity. Empty input clears the value;
// otherwise it must be at most 8 characters and strictly positive.
func Quantity(raw string) (*int, Result) {
	if raw == "" {
		return nil, nil
	}
	if len(raw) > MaxQuantityDigits {
		return nil, invalid("validate.quantity_max_digits", MaxQuantityDigits)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return nil, invalid("validate.quantity_positive")
	}
	return &v, nil
}

// Phone checks an optional phone number.
func Phone(raw string) Result {
	if raw == "" {
		return nil
	}
	if !phoneRegex.MatchString(raw) {
		return invalid("validate.phone_invalid")
	}
	return nil
}

// EndAfterStart requires end to be strictly after start.
func EndAfterStart(start, end time.Time) Result {
	if !end.After(start) {
		return invalid("validate.end_before_start")
	}
	return nil
}

// NotFuture rejects dates after the calendar day of now.
func NotFuture(date, now time.Time) Result {
	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	if !date.Before(endOfDay) {
		return invalid("validate.birth_date_future")
	}
	return nil
}

// Required collects the labels of every missing field into one reason.
// present maps a label key to whether its field has a value; order fixes
// the reporting order.
func Required(order []string, present map[string]bool) Result {
	var missing []string
	for _, label := range order {
		if !present[label] {
			missing = append(missing, label)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return Result{{Key: "validate.required_fields", Labels: missing}}
}

// OneOf requires raw to be one of options.
func OneOf(raw string, options []string) Result {
	for _, o := range options {
		if raw == o {
			return nil
		}
	}
	return invalid("validate.option_invalid")
}
