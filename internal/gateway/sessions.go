// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/login"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/profile"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/promotion"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
)

// Session is the screen state of one browser session. Its mutex is held
// for the whole of a request, so the screens see one action at a time.
type Session struct {
	mu sync.Mutex

	id        string
	store     *store.Store
	notify    *notify.Surface
	nav       *screen.Navigator
	login     *login.Screen
	profile   *profile.Screen
	promotion *promotion.Screen

	// mounted is false until the profile screen has loaded its records
	// for the current login.
	mounted  bool
	lastSeen time.Time
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// SessionConfig holds what every new Session is built from.
type SessionConfig struct {
	API          store.API
	Catalog      *store.Catalog
	Snapshots    store.Snapshots
	Compressor   *media.Compressor
	ImageBaseURL string
	AfterFunc    notify.AfterFunc
	LoginOptions []login.Option
	Logger       *slog.Logger
	Now          func() time.Time
}

// Sessions is the registry of live screen sessions.
type Sessions struct {
	cfg SessionConfig

	mu      sync.Mutex
	entries map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions(cfg SessionConfig) *Sessions {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sessions{cfg: cfg, entries: make(map[string]*Session)}
}

// Acquire returns the session for id, creating it on first use. A new
// session restores its store snapshot and starts on the main route when
// that snapshot is still signed in. lang only applies to new sessions.
func (r *Sessions) Acquire(ctx context.Context, id, lang string) (*Session, error) {
	r.mu.Lock()
	sess, ok := r.entries[id]
	if ok {
		sess.lastSeen = r.cfg.Now()
		r.mu.Unlock()
		return sess, nil
	}
	r.mu.Unlock()

	sess, err := r.open(ctx, id, lang)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost a race with a concurrent first request.
	if existing, ok := r.entries[id]; ok {
		sess.notify.Close()
		existing.lastSeen = r.cfg.Now()
		return existing, nil
	}
	r.entries[id] = sess
	return sess, nil
}

func (r *Sessions) open(ctx context.Context, id, lang string) (*Session, error) {
	logger := r.cfg.Logger.With("session", id)

	st, err := store.Open(ctx, r.cfg.API, store.Options{
		ID:        id,
		Catalog:   r.cfg.Catalog,
		Snapshots: r.cfg.Snapshots,
		Logger:    logger,
		Now:       r.cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	opts := []notify.Option{notify.WithLogger(logger)}
	if r.cfg.AfterFunc != nil {
		opts = append(opts, notify.WithAfterFunc(r.cfg.AfterFunc))
	}
	surface := notify.New(lang, opts...)

	initial := screen.RouteLogin
	if st.Authenticated() {
		initial = screen.RouteMain
	}

	deps := screen.Deps{
		Store:        st,
		Notify:       surface,
		Compressor:   r.cfg.Compressor,
		Nav:          screen.NewNavigator(initial, logger),
		Logger:       logger,
		Now:          r.cfg.Now,
		ImageBaseURL: r.cfg.ImageBaseURL,
	}.WithDefaults()

	logger.Debug("screen session opened", "route", string(initial), "lang", lang)
	return &Session{
		id:        id,
		store:     st,
		notify:    surface,
		nav:       deps.Nav,
		login:     login.New(deps, r.cfg.LoginOptions...),
		profile:   profile.New(deps),
		promotion: promotion.New(deps),
		lastSeen:  r.cfg.Now(),
	}, nil
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Remove drops the session for id.
func (r *Sessions) Remove(id string) {
	r.mu.Lock()
	sess, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		sess.notify.Close()
	}
}

// Sweep drops sessions idle for longer than idle and returns how many were
// dropped. Sessions serving a request are skipped. Their store snapshots
// stay in the cache, so a returning browser is restored.
func (r *Sessions) Sweep(idle time.Duration) int {
	cutoff := r.cfg.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for id, sess := range r.entries {
		if !sess.lastSeen.Before(cutoff) {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(r.entries, id)
		stale = append(stale, sess)
	}
	r.mu.Unlock()

	for _, sess := range stale {
		sess.notify.Close()
		sess.mu.Unlock()
	}
	if len(stale) > 0 {
		r.cfg.Logger.Info("swept idle screen sessions", "count", len(stale))
	}
	return len(stale)
}
