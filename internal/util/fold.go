// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Fold returns the ASCII transliteration of s, lower-cased with surrounding
// and repeated whitespace collapsed. "  Perú " and "peru" fold to the same
// value.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(s))), " ")
}

// ContainsFold reports whether the folded s contains the folded query. An
// empty query matches everything.
func ContainsFold(s, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	return strings.Contains(Fold(s), q)
}

// EqualFold reports whether a and b are equal once folded.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
