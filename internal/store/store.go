// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store holds the authoritative records of one signed-in associate
// (user, token, partner, categories, branches and promotions) and the
// catalog shared by every session.
//
// All writes go through Dispatch: a Thunk runs against a draft copy of the
// state and the draft is committed only when the thunk succeeds. Readers
// get value copies, so a screen never observes a half-applied action.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
)

// ErrNotAuthenticated is returned by actions that need a session token.
var ErrNotAuthenticated = errors.New("not authenticated")

// API is the remote platform surface the store dispatches against.
// *apiclient.Client satisfies it.
type API interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	UpdateUser(ctx context.Context, token string, u model.UserUpdate) (*model.User, error)
	UpdatePartner(ctx context.Context, token string, partnerID int64, p model.PartnerUpdate) (*model.Partner, error)
	CreatePromotion(ctx context.Context, token string, p model.NewPromotion) (*model.Promotion, error)
	ChangePassword(ctx context.Context, token string, userID int64, newPassword, currentPassword string) error
	FetchUserCategories(ctx context.Context, token string, userID int64) ([]model.Category, error)
	FetchPromotions(ctx context.Context, token string, partnerID int64) ([]model.Promotion, error)
	FetchBranches(ctx context.Context, token string, partnerID int64) ([]model.Branch, error)
	FetchPartner(ctx context.Context, token string, partnerID int64) (*model.Partner, error)
	CatalogAPI
}

// Snapshots persists committed state between gateway restarts.
// *cache.TypedCache[store.State] satisfies it.
type Snapshots interface {
	Get(ctx context.Context, key string) (State, error)
	Set(ctx context.Context, key string, value State) error
	Delete(ctx context.Context, key string) error
}

// Env is what a Thunk may use besides the draft state.
type Env struct {
	API     API
	Catalog *Catalog
	Logger  *slog.Logger
	Now     func() time.Time
}

// Thunk is one store action. It mutates the draft and returns its result;
// returning an error discards every change made to the draft. Thunks must
// not dispatch.
type Thunk[T any] func(ctx context.Context, env Env, st *State) (T, error)

// Options configures a Store.
type Options struct {
	// ID keys the persisted snapshot, usually the gateway session token.
	ID        string
	Catalog   *Catalog
	Snapshots Snapshots
	Logger    *slog.Logger
	Now       func() time.Time
}

// Store is the state container of one session.
type Store struct {
	id        string
	env       Env
	snapshots Snapshots
	logger    *slog.Logger

	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State
}

// New creates an empty store.
func New(api API, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		id: opts.ID,
		env: Env{
			API:     api,
			Catalog: opts.Catalog,
			Logger:  logger,
			Now:     now,
		},
		snapshots: opts.Snapshots,
		logger:    logger,
	}
}

// Open creates a store and loads its persisted snapshot, if any. An
// expired session is dropped instead of restored.
func Open(ctx context.Context, api API, opts Options) (*Store, error) {
	s := New(api, opts)
	if s.snapshots == nil || s.id == "" {
		return s, nil
	}

	st, err := s.snapshots.Get(ctx, s.id)
	if err != nil {
		// A miss is the normal case for a new session.
		s.logger.Debug("no store snapshot", "session", s.id, "error", err)
		return s, nil
	}
	if !st.authenticatedAt(s.env.Now()) {
		s.logger.Info("dropping expired store snapshot", "session", s.id)
		if err := s.snapshots.Delete(ctx, s.id); err != nil {
			return s, fmt.Errorf("deleting expired snapshot: %w", err)
		}
		return s, nil
	}

	s.state = st.clone()
	return s, nil
}

// State returns a copy of the committed state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Version returns the commit counter of the state.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// Catalog returns the shared catalog, which may be nil.
func (s *Store) Catalog() *Catalog {
	return s.env.Catalog
}

// Authenticated reports whether the store holds an unexpired token.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.authenticatedAt(s.env.Now())
}

// Reset discards the session locally without calling the platform.
func (s *Store) Reset(ctx context.Context) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.RLock()
	version := s.state.Version
	s.mu.RUnlock()

	s.commit(ctx, State{Version: version})
}

// Dispatch runs thunk against a draft of the current state and commits the
// draft when the thunk succeeds. The thunk's result is returned either way.
func Dispatch[T any](ctx context.Context, s *Store, thunk Thunk[T]) (T, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	draft := s.State()
	result, err := thunk(ctx, s.env, &draft)
	if err != nil {
		return result, err
	}

	s.commit(ctx, draft)
	return result, nil
}

func (s *Store) commit(ctx context.Context, next State) {
	s.mu.Lock()
	next.Version = s.state.Version + 1
	s.state = next
	snapshot := next.clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
}

// persist writes the snapshot. Failures are logged; the in-memory state
// stays authoritative.
func (s *Store) persist(ctx context.Context, st State) {
	if s.snapshots == nil || s.id == "" {
		return
	}

	var err error
	if st.Token == "" {
		err = s.snapshots.Delete(ctx, s.id)
	} else {
		err = s.snapshots.Set(ctx, s.id, st)
	}
	if err != nil {
		s.logger.Warn("failed to persist store snapshot", "session", s.id, "error", err)
	}
}
