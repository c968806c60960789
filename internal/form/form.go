// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package form holds the editable field values of one screen instance.
//
// Every edit goes through the field's Rule. A rejected edit leaves the
// stored value exactly as it was and raises one error notification; the
// value is never truncated or partially applied. A State is owned by a
// single screen and is not safe for concurrent use.
package form

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// Field names a form field.
type Field string

// Values maps fields to their current value. Supported value types are
// string, bool, int, *int, time.Time, []int64 and []model.ImagePayload.
type Values map[Field]any

// Rule validates a raw edit against the current values and returns the
// normalized value to store. A non-empty Result rejects the edit.
type Rule func(raw any, current Values) (any, validate.Result)

// Rules maps fields to their edit rule. Fields without a rule accept any
// value unchanged.
type Rules map[Field]Rule

// Notifier receives rejected edits.
type Notifier interface {
	Show(kind notify.Kind, msg string)
	Lang() string
}

// State is the form state of one screen instance.
type State struct {
	values   Values
	rules    Rules
	notifier Notifier
	logger   *slog.Logger
}

// New creates an empty State.
func New(notifier Notifier, rules Rules, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		values:   make(Values),
		rules:    rules,
		notifier: notifier,
		logger:   logger,
	}
}

// Get returns the raw value of field, or nil.
func (s *State) Get(field Field) any {
	return s.values[field]
}

// Set applies an edit. When the field's rule rejects raw the stored value
// is left unchanged, one error notification is shown and the rejection is
// returned as a *validate.Error.
func (s *State) Set(field Field, raw any) error {
	rule, ok := s.rules[field]
	if !ok {
		s.values[field] = clone(raw)
		return nil
	}

	v, result := rule(raw, s.values)
	if !result.Valid() {
		s.logger.Debug("edit rejected", "field", string(field), "reasons", len(result))
		if s.notifier != nil {
			s.notifier.Show(notify.Error, strings.Join(result.Messages(s.notifier.Lang()), "\n"))
		}
		return result.Err()
	}

	if p, isPtr := v.(*int); v == nil || (isPtr && p == nil) {
		delete(s.values, field)
		return nil
	}
	s.values[field] = v
	return nil
}

// Clear removes the value of field without running its rule.
func (s *State) Clear(fields ...Field) {
	for _, f := range fields {
		delete(s.values, f)
	}
}

// Seed replaces all values without running edit rules. Seeds come from
// authoritative records or from an empty creation form.
func (s *State) Seed(values Values) {
	s.values = cloneValues(values)
}

// Snapshot is an immutable copy of a State's values.
type Snapshot struct {
	values Values
}

// Snapshot returns a deep copy of the current values.
func (s *State) Snapshot() Snapshot {
	return Snapshot{values: cloneValues(s.values)}
}

// Restore replaces the current values with snap verbatim.
func (s *State) Restore(snap Snapshot) {
	s.values = cloneValues(snap.values)
}

// Values returns a deep copy of the current values.
func (s *State) Values() Values {
	return cloneValues(s.values)
}

// Has reports whether field holds a non-empty value.
func (s *State) Has(field Field) bool {
	return present(s.values[field])
}

// String returns a string field, or "".
func (s *State) String(field Field) string {
	v, _ := s.values[field].(string)
	return v
}

// Bool returns a bool field, or false.
func (s *State) Bool(field Field) bool {
	v, _ := s.values[field].(bool)
	return v
}

// Int returns a numeric field and whether it is set.
func (s *State) Int(field Field) (int, bool) {
	switch v := s.values[field].(type) {
	case int:
		return v, true
	case *int:
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// IntPtr returns a copy of an optional numeric field, or nil.
func (s *State) IntPtr(field Field) *int {
	if v, ok := s.Int(field); ok {
		return &v
	}
	return nil
}

// Time returns a date field and whether it is set.
func (s *State) Time(field Field) (time.Time, bool) {
	v, ok := s.values[field].(time.Time)
	if !ok || v.IsZero() {
		return time.Time{}, false
	}
	return v, true
}

// IDs returns a copy of an identifier set field.
func (s *State) IDs(field Field) []int64 {
	v, _ := s.values[field].([]int64)
	return slices.Clone(v)
}

// Images returns a copy of an image list field.
func (s *State) Images(field Field) []model.ImagePayload {
	v, _ := s.values[field].([]model.ImagePayload)
	return slices.Clone(v)
}

func present(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case *int:
		return v != nil
	case time.Time:
		return !v.IsZero()
	case []int64:
		return len(v) > 0
	case []model.ImagePayload:
		return len(v) > 0
	default:
		return true
	}
}

func cloneValues(in Values) Values {
	out := make(Values, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func clone(v any) any {
	switch v := v.(type) {
	case *int:
		if v == nil {
			return v
		}
		c := *v
		return &c
	case []int64:
		return slices.Clone(v)
	case []model.ImagePayload:
		return slices.Clone(v)
	default:
		return v
	}
}
