// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for the gateway: language
// detection, login throttling, cross-origin protection, security headers
// and request timeouts.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON body of a rejected request.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError writes msg as a JSON error with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorBody{Error: msg}); err != nil {
		slog.Debug("writing error body", "error", err)
	}
}
