// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package form

import (
	"fmt"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// Text accepts string edits that pass check.
func Text(check func(string) validate.Result) Rule {
	return func(raw any, _ Values) (any, validate.Result) {
		s := asString(raw)
		if r := check(s); !r.Valid() {
			return nil, r
		}
		return s, nil
	}
}

// MaxLength accepts strings of at most max characters.
func MaxLength(max int) Rule {
	return Text(func(s string) validate.Result {
		return validate.MaxLength(s, max)
	})
}

// Percentage accepts a discount percentage; empty input stores 0.
func Percentage() Rule {
	return func(raw any, _ Values) (any, validate.Result) {
		v, r := validate.Percentage(asString(raw))
		return v, r
	}
}

// Quantity accepts an optional available quantity.
func Quantity() Rule {
	return func(raw any, _ Values) (any, validate.Result) {
		v, r := validate.Quantity(asString(raw))
		return v, r
	}
}

// OneOf accepts one of options. Empty input is rejected when required.
func OneOf(options []string, required bool) Rule {
	return func(raw any, _ Values) (any, validate.Result) {
		s := asString(raw)
		if s == "" && !required {
			return "", nil
		}
		if r := validate.OneOf(s, options); !r.Valid() {
			return nil, r
		}
		return s, nil
	}
}

// Date accepts a time.Time or a YYYY-MM-DD string and stores a time.Time
// truncated to the calendar day. check may be nil.
func Date(check func(d time.Time, current Values) validate.Result) Rule {
	return func(raw any, current Values) (any, validate.Result) {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, validate.Result{{Key: "validate.option_invalid"}}
		}
		if check != nil {
			if r := check(d, current); !r.Valid() {
				return nil, r
			}
		}
		return d, nil
	}
}

// ParseDate converts a time.Time or a YYYY-MM-DD string to a UTC calendar
// day.
func ParseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q: %w", v, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", raw)
	}
}

func asString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
