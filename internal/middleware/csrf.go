// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"filippo.io/csrf/gorilla"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
)

// CSRFConfig holds configuration for CSRF protection.
// filippo.io/csrf/gorilla checks Fetch metadata and Origin headers, so no
// token travels with the JSON requests.
type CSRFConfig struct {
	// AuthKey is kept for API compatibility with gorilla/csrf; the session
	// secret is passed.
	AuthKey []byte

	// ErrorHandler is called when CSRF validation fails.
	ErrorHandler http.Handler

	// TrustedOrigins are host[:port] values allowed to make cross-origin
	// requests, e.g. the web shell.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns a CSRFConfig trusting the configured browser
// origins. Full URLs are reduced to their host, as the csrf library expects.
func DefaultCSRFConfig(authKey []byte, allowedOrigins []string, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}

	for _, origin := range allowedOrigins {
		if host := originHost(origin); host != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, host)
		}
	}

	// In development, trust localhost origins for easier testing
	if isDev {
		cfg.TrustedOrigins = append(cfg.TrustedOrigins, "localhost:8080", "127.0.0.1:8080")
	}

	return cfg
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	if u.Host != "" {
		return u.Host
	}
	// Already host-only
	if u.Scheme == "" && u.Path != "" {
		return u.Path
	}
	return ""
}

// CSRF returns a middleware that provides CSRF protection.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)))
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	reasonStr := "unknown"
	if reason != nil {
		reasonStr = reason.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reasonStr,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	WriteError(w, http.StatusForbidden, i18n.T(GetLang(r), "error.forbidden"))
}
