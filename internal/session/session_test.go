// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
)

func TestNew_DevMode(t *testing.T) {
	sm := New(Options{IsDev: true})

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name == "__Host-session" {
		t.Error("expected default cookie name in dev mode")
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(Options{})

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-session" {
		t.Errorf("expected __Host-session cookie name, got %q", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("expected Cookie.Path = '/', got %q", sm.Cookie.Path)
	}
}

func TestNew_SessionSettings(t *testing.T) {
	sm := New(Options{IsDev: true})

	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite = Lax, got %v", sm.Cookie.SameSite)
	}
	if sm.Store == nil {
		t.Error("expected Store to be initialized")
	}

	custom := New(Options{Lifetime: time.Hour, IdleTimeout: 10 * time.Minute, IsDev: true})
	if custom.Lifetime != time.Hour || custom.IdleTimeout != 10*time.Minute {
		t.Errorf("Lifetime/IdleTimeout = %v/%v, want 1h/10m", custom.Lifetime, custom.IdleTimeout)
	}
}

func sessionHandler(sm *scs.SessionManager, ids *[]string) http.Handler {
	return sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ids = append(*ids, ID(r.Context(), sm))
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestID_StableAcrossRequests(t *testing.T) {
	sm := New(Options{IsDev: true})
	var ids []string
	h := sessionHandler(sm, &ids)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	// A request without the cookie gets a new session.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	if ids[0] == "" || ids[0] != ids[1] {
		t.Errorf("ids = %v, want the first two equal", ids)
	}
	if ids[2] == ids[0] {
		t.Error("expected a fresh id for a new session")
	}
}

func TestRotateKeepsID(t *testing.T) {
	sm := New(Options{IsDev: true})
	var before, after string
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		before = ID(r.Context(), sm)
		if err := Rotate(r.Context(), sm); err != nil {
			t.Errorf("Rotate() error: %v", err)
		}
		after = ID(r.Context(), sm)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))

	if before == "" || before != after {
		t.Errorf("id changed across rotation: %q -> %q", before, after)
	}
}
