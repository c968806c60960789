// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
)

// ContextKey is a type for context keys used by this package.
type ContextKey string

// ContextKeyLanguage holds the negotiated catalog language.
const ContextKeyLanguage ContextKey = "language"

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "asoc_lang"

// Language creates middleware that detects and sets the message language.
// Priority order:
// 1. Query parameter ?lang=XX (explicit language switch, updates cookie)
// 2. Cookie preference
// 3. Accept-Language header
// 4. Default language
func Language(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := i18n.DefaultLanguage

			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
				lang = q
				SetLanguageCookie(w, lang, isDev)
			} else if c, err := r.Cookie(LanguageCookieName); err == nil && i18n.IsSupported(c.Value) {
				lang = strings.ToLower(c.Value)
			} else if accept := r.Header.Get("Accept-Language"); accept != "" {
				lang = i18n.MatchLanguage(accept)
			}

			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

// SetLanguageCookie stores the language preference for a year.
func SetLanguageCookie(w http.ResponseWriter, lang string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LanguageCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   !isDev,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithLang returns a context carrying lang.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, lang)
}

// GetLang returns the request language, or the default language.
func GetLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}
