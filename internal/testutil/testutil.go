// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers: quiet loggers, a scripted
// platform API and record fixtures.
package testutil

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
)

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// ErrNotScripted is returned by FakeAPI methods without a scripted func.
var ErrNotScripted = errors.New("fake api: call not scripted")

// ActiveAssociate returns an active user with the associated role.
func ActiveAssociate() model.User {
	return model.User{
		UserID:      7,
		FirstName:   "Ana",
		LastName:    "Pérez",
		Email:       "ana@example.com",
		Country:     "Chile",
		City:        "Cobquecura",
		PhoneNumber: "+56912345678",
		Gender:      "Femenino",
		BirthDate:   "1990-05-04",
		Status:      model.Status{ID: 1, Name: model.StatusActive},
		Roles:       []model.Role{{RoleID: 3, RoleName: model.RoleAssociated}},
	}
}

// FakeAPI is a scripted platform API. Each method calls the matching func
// field, or fails with ErrNotScripted when it is nil. Calls are recorded by
// method name in order.
type FakeAPI struct {
	LoginFunc               func(ctx context.Context, email, password string) (*model.LoginResponse, error)
	LogoutFunc              func(ctx context.Context, token string) error
	UpdateUserFunc          func(ctx context.Context, token string, u model.UserUpdate) (*model.User, error)
	UpdatePartnerFunc       func(ctx context.Context, token string, partnerID int64, p model.PartnerUpdate) (*model.Partner, error)
	CreatePromotionFunc     func(ctx context.Context, token string, p model.NewPromotion) (*model.Promotion, error)
	ChangePasswordFunc      func(ctx context.Context, token string, userID int64, newPassword, currentPassword string) error
	FetchAllCategoriesFunc  func(ctx context.Context) ([]model.Category, error)
	FetchUserCategoriesFunc func(ctx context.Context, token string, userID int64) ([]model.Category, error)
	FetchPromotionsFunc     func(ctx context.Context, token string, partnerID int64) ([]model.Promotion, error)
	FetchBranchesFunc       func(ctx context.Context, token string, partnerID int64) ([]model.Branch, error)
	FetchPartnerFunc        func(ctx context.Context, token string, partnerID int64) (*model.Partner, error)
	FetchCountriesFunc      func(ctx context.Context) ([]model.Country, error)

	mu    sync.Mutex
	calls []string
}

// Calls returns the recorded method names.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how often method was called.
func (f *FakeAPI) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeAPI) record(method string) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
}

func (f *FakeAPI) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	f.record("Login")
	if f.LoginFunc == nil {
		return nil, ErrNotScripted
	}
	return f.LoginFunc(ctx, email, password)
}

func (f *FakeAPI) Logout(ctx context.Context, token string) error {
	f.record("Logout")
	if f.LogoutFunc == nil {
		return nil
	}
	return f.LogoutFunc(ctx, token)
}

func (f *FakeAPI) UpdateUser(ctx context.Context, token string, u model.UserUpdate) (*model.User, error) {
	f.record("UpdateUser")
	if f.UpdateUserFunc == nil {
		return nil, ErrNotScripted
	}
	return f.UpdateUserFunc(ctx, token, u)
}

func (f *FakeAPI) UpdatePartner(ctx context.Context, token string, partnerID int64, p model.PartnerUpdate) (*model.Partner, error) {
	f.record("UpdatePartner")
	if f.UpdatePartnerFunc == nil {
		return nil, ErrNotScripted
	}
	return f.UpdatePartnerFunc(ctx, token, partnerID, p)
}

func (f *FakeAPI) CreatePromotion(ctx context.Context, token string, p model.NewPromotion) (*model.Promotion, error) {
	f.record("CreatePromotion")
	if f.CreatePromotionFunc == nil {
		return nil, ErrNotScripted
	}
	return f.CreatePromotionFunc(ctx, token, p)
}

func (f *FakeAPI) ChangePassword(ctx context.Context, token string, userID int64, newPassword, currentPassword string) error {
	f.record("ChangePassword")
	if f.ChangePasswordFunc == nil {
		return ErrNotScripted
	}
	return f.ChangePasswordFunc(ctx, token, userID, newPassword, currentPassword)
}

func (f *FakeAPI) FetchAllCategories(ctx context.Context) ([]model.Category, error) {
	f.record("FetchAllCategories")
	if f.FetchAllCategoriesFunc == nil {
		return nil, nil
	}
	return f.FetchAllCategoriesFunc(ctx)
}

func (f *FakeAPI) FetchUserCategories(ctx context.Context, token string, userID int64) ([]model.Category, error) {
	f.record("FetchUserCategories")
	if f.FetchUserCategoriesFunc == nil {
		return nil, nil
	}
	return f.FetchUserCategoriesFunc(ctx, token, userID)
}

func (f *FakeAPI) FetchPromotions(ctx context.Context, token string, partnerID int64) ([]model.Promotion, error) {
	f.record("FetchPromotions")
	if f.FetchPromotionsFunc == nil {
		return nil, nil
	}
	return f.FetchPromotionsFunc(ctx, token, partnerID)
}

func (f *FakeAPI) FetchBranches(ctx context.Context, token string, partnerID int64) ([]model.Branch, error) {
	f.record("FetchBranches")
	if f.FetchBranchesFunc == nil {
		return nil, nil
	}
	return f.FetchBranchesFunc(ctx, token, partnerID)
}

func (f *FakeAPI) FetchPartner(ctx context.Context, token string, partnerID int64) (*model.Partner, error) {
	f.record("FetchPartner")
	if f.FetchPartnerFunc == nil {
		return &model.Partner{PartnerID: partnerID}, nil
	}
	return f.FetchPartnerFunc(ctx, token, partnerID)
}

func (f *FakeAPI) FetchCountries(ctx context.Context) ([]model.Country, error) {
	f.record("FetchCountries")
	if f.FetchCountriesFunc == nil {
		return nil, nil
	}
	return f.FetchCountriesFunc(ctx)
}

// LoginAs scripts a successful login returning user and token.
func (f *FakeAPI) LoginAs(user model.User, token string) {
	f.LoginFunc = func(context.Context, string, string) (*model.LoginResponse, error) {
		return &model.LoginResponse{User: user, Token: token}, nil
	}
}

// ManualTimers is a notify.AfterFunc whose timers only fire when Fire is
// called.
type ManualTimers struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// AfterFunc records f without scheduling it.
func (m *ManualTimers) AfterFunc(d time.Duration, f func()) notify.Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Delays returns the delays of the timers that have not fired or been
// stopped.
func (m *ManualTimers) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, t := range m.pending {
		if !t.stopped {
			out = append(out, t.delay)
		}
	}
	return out
}

// Fire runs every timer that was not stopped.
func (m *ManualTimers) Fire() {
	m.mu.Lock()
	timers := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.f()
		}
	}
}

// NewSurface returns a Spanish notification surface driven by timers.
func NewSurface(timers *ManualTimers) *notify.Surface {
	return notify.New("es", notify.WithAfterFunc(timers.AfterFunc), notify.WithLogger(TestLoggerSilent()))
}
