// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLanguage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		cookie     string
		accept     string
		wantLang   string
		wantCookie bool
	}{
		{name: "default", wantLang: "es"},
		{name: "accept language", accept: "en-US,en;q=0.9", wantLang: "en"},
		{name: "unsupported accept falls back", accept: "fr-FR", wantLang: "es"},
		{name: "cookie beats accept", cookie: "es", accept: "en", wantLang: "es"},
		{name: "query beats cookie and sets it", query: "en", cookie: "es", wantLang: "en", wantCookie: true},
		{name: "unsupported query ignored", query: "de", accept: "en", wantLang: "en"},
		{name: "query is case insensitive", query: "EN", wantLang: "en", wantCookie: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := Language(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetLang(r)
			}))

			target := "/profile"
			if tt.query != "" {
				target += "?lang=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LanguageCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got != tt.wantLang {
				t.Errorf("GetLang() = %q, want %q", got, tt.wantLang)
			}
			setCookie := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == LanguageCookieName {
					setCookie = true
					if c.Value != tt.wantLang {
						t.Errorf("cookie value = %q, want %q", c.Value, tt.wantLang)
					}
				}
			}
			if setCookie != tt.wantCookie {
				t.Errorf("cookie set = %v, want %v", setCookie, tt.wantCookie)
			}
		})
	}
}

func TestGetLangWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetLang(req); got != "es" {
		t.Errorf("GetLang() = %q, want default %q", got, "es")
	}
}
