// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename extracts only the base filename, removing any directory
// components. Picker results arrive as device paths like
// "file:///storage/DCIM/IMG_1.jpg"; only "IMG_1.jpg" is kept. Returns an
// error if the filename is invalid.
func SanitizeFilename(filename string) (string, error) {
	safe := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if safe == "." || safe == ".." || safe == "" || safe == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}

// FilenameStem returns the slug of the sanitized base name without its
// extension, or fallback when nothing usable remains.
func FilenameStem(filename, fallback string) string {
	safe, err := SanitizeFilename(filename)
	if err != nil {
		return fallback
	}
	stem := Slugify(strings.TrimSuffix(safe, filepath.Ext(safe)))
	if stem == "" {
		return fallback
	}
	return stem
}
