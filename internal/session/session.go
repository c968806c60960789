// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the gateway's cookie sessions.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"
)

// keyID is the session key holding the screen session id.
const keyID = "sid"

// Options configures the session manager.
type Options struct {
	Lifetime    time.Duration
	IdleTimeout time.Duration
	IsDev       bool
}

// New creates a session manager backed by an in-memory store. Cookies only
// carry the scs token; screen state lives in the gateway registry.
func New(opts Options) *scs.SessionManager {
	sm := scs.New()
	sm.Store = memstore.New()

	sm.Lifetime = 24 * time.Hour
	if opts.Lifetime > 0 {
		sm.Lifetime = opts.Lifetime
	}
	sm.IdleTimeout = opts.IdleTimeout

	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !opts.IsDev // Secure cookies in production only
	if !opts.IsDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// ID returns the screen session id of the request, creating one on first
// use.
func ID(ctx context.Context, sm *scs.SessionManager) string {
	if id := sm.GetString(ctx, keyID); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, keyID, id)
	return id
}

// Rotate issues a new scs token while keeping the screen session id.
// Called after a successful login.
func Rotate(ctx context.Context, sm *scs.SessionManager) error {
	return sm.RenewToken(ctx)
}
