// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package login implements the sign-in screen.
//
// A credential check that succeeds is not enough to enter the app: the
// returned account must be active and carry the associated role. When
// either check fails the local session is discarded and the user stays on
// the login route.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/form"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// Form fields.
const (
	FieldEmail    form.Field = "email"
	FieldPassword form.Field = "password"
)

// WelcomeDelay is how long the welcome message stays up before the app
// moves to the main route.
const WelcomeDelay = 1500 * time.Millisecond

var (
	// ErrInactiveAccount is returned when the account status is not active.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrNotAssociated is returned when the account lacks the associated role.
	ErrNotAssociated = errors.New("account is not an associate")
)

// Screen is the login screen of one session.
type Screen struct {
	deps   screen.Deps
	form   *form.State
	submit *submit.Orchestrator

	welcomeDelay time.Duration
}

// Option configures a Screen.
type Option func(*Screen)

// WithWelcomeDelay overrides WelcomeDelay.
func WithWelcomeDelay(d time.Duration) Option {
	return func(s *Screen) {
		s.welcomeDelay = d
	}
}

// New creates a login screen with empty fields.
func New(deps screen.Deps, opts ...Option) *Screen {
	deps = deps.WithDefaults()
	s := &Screen{
		deps:         deps,
		form:         form.New(deps.Notify, nil, deps.Logger),
		submit:       submit.New(deps.Notify, deps.Logger),
		welcomeDelay: WelcomeDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEmail stores the typed email. It is checked on submit.
func (s *Screen) SetEmail(v string) {
	_ = s.form.Set(FieldEmail, v)
}

// SetPassword stores the typed password.
func (s *Screen) SetPassword(v string) {
	_ = s.form.Set(FieldPassword, v)
}

// Email returns the typed email.
func (s *Screen) Email() string {
	return s.form.String(FieldEmail)
}

// Submit signs in. On success the welcome message is flashed and the
// session moves to the main route once it is dismissed. Both fields are
// cleared once the remote phase has run, whatever its outcome.
func (s *Screen) Submit(ctx context.Context) submit.Outcome {
	email := validate.NormalizeEmail(s.form.String(FieldEmail))
	password := s.form.String(FieldPassword)

	var user *model.User
	return s.submit.Submit(ctx, submit.Plan{
		Name: "login",
		Validate: func() validate.Result {
			_, r := validate.Email(email)
			return r
		},
		Primary: func(ctx context.Context) error {
			u, err := store.Dispatch(ctx, s.deps.Store, store.LogIn(email, password))
			if err != nil {
				return err
			}
			if err := authorize(u); err != nil {
				s.deps.Store.Reset(ctx)
				return err
			}
			user = u
			return nil
		},
		Refresh: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.LoadData())
			return err
		},
		Classify: s.classify,
		Cleanup: func() {
			s.form.Clear(FieldEmail, FieldPassword)
		},
		OnSuccess: func(msg string) {
			s.deps.Notify.FlashSuccess(msg, s.welcomeDelay, func() {
				s.deps.Nav.Navigate(screen.RouteMain)
			})
		},
		SuccessMessageFunc: func() string {
			return s.deps.T("login.welcome", user.FirstName)
		},
		GenericMessage: s.deps.T("login.failed"),
	})
}

// authorize applies the post-login checks in order: status, then role.
func authorize(u *model.User) error {
	if !u.IsActive() {
		return fmt.Errorf("status %q: %w", u.Status.Name, ErrInactiveAccount)
	}
	if !u.HasRole(model.RoleAssociated) {
		return ErrNotAssociated
	}
	return nil
}

func (s *Screen) classify(err error) (string, bool) {
	switch {
	case errors.Is(err, apiclient.ErrInvalidPassword):
		return s.deps.T("login.invalid_password"), true
	case errors.Is(err, ErrInactiveAccount):
		return s.deps.T("login.inactive_account"), true
	case errors.Is(err, ErrNotAssociated):
		return s.deps.T("login.not_associated"), true
	default:
		return "", false
	}
}

// View is the state rendered by the login screen.
type View struct {
	Email  string       `json:"email"`
	Status submit.State `json:"status"`
}

// View returns the current screen state. The password is never echoed.
func (s *Screen) View() View {
	return View{
		Email:  s.form.String(FieldEmail),
		Status: s.submit.State(),
	}
}
