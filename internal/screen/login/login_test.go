// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package login

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
	"github.com/Javier-Pedernera/asociados-go/internal/testutil"
)

func TestMain(m *testing.M) {
	i18n.MustInit()
	os.Exit(m.Run())
}

type fixture struct {
	api    *testutil.FakeAPI
	timers *testutil.ManualTimers
	deps   screen.Deps
	screen *Screen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &testutil.FakeAPI{}
	timers := &testutil.ManualTimers{}
	logger := testutil.TestLoggerSilent()
	deps := screen.Deps{
		Store:  store.New(api, store.Options{Logger: logger}),
		Notify: testutil.NewSurface(timers),
		Nav:    screen.NewNavigator(screen.RouteLogin, logger),
		Logger: logger,
	}
	return &fixture{api: api, timers: timers, deps: deps, screen: New(deps)}
}

func (f *fixture) errorMessage(t *testing.T) string {
	t.Helper()
	req, ok := f.deps.Notify.Current(notify.Error)
	require.True(t, ok, "expected an error notification")
	return req.Message
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	var gotEmail string
	f.api.LoginFunc = func(_ context.Context, email, _ string) (*model.LoginResponse, error) {
		gotEmail = email
		return &model.LoginResponse{User: testutil.ActiveAssociate(), Token: "tok"}, nil
	}

	f.screen.SetEmail("  Ana@Example.COM ")
	f.screen.SetPassword("Secret1!")
	out := f.screen.Submit(context.Background())

	assert.Equal(t, submit.Succeeded, out.State)
	assert.Equal(t, "Bienvenido Ana!", out.Message)
	assert.Equal(t, "ana@example.com", gotEmail)
	assert.True(t, f.deps.Store.Authenticated())
	assert.Equal(t, 1, f.api.CallCount("FetchPartner"), "main data is loaded after login")

	// Fields are cleared and the welcome is on screen until the delay.
	assert.Empty(t, f.screen.View().Email)
	welcome, ok := f.deps.Notify.Current(notify.Success)
	require.True(t, ok)
	assert.Equal(t, "Bienvenido Ana!", welcome.Message)
	assert.Equal(t, []time.Duration{WelcomeDelay}, f.timers.Delays())
	assert.Equal(t, screen.RouteLogin, f.deps.Nav.Current())

	f.timers.Fire()
	_, ok = f.deps.Notify.Current(notify.Success)
	assert.False(t, ok, "welcome is auto-dismissed")
	assert.Equal(t, screen.RouteMain, f.deps.Nav.Current())
}

func TestLoginInvalidEmailMakesNoCall(t *testing.T) {
	f := newFixture(t)

	f.screen.SetEmail("not-an-email")
	f.screen.SetPassword("Secret1!")
	out := f.screen.Submit(context.Background())

	assert.Equal(t, submit.Failed, out.State)
	assert.Empty(t, f.api.Calls())
	assert.Equal(t, "El correo ingresado no es válido.", f.errorMessage(t))
	assert.Equal(t, "not-an-email", f.screen.View().Email, "local validation keeps the input")
}

func TestLoginInvalidPassword(t *testing.T) {
	f := newFixture(t)
	f.api.LoginFunc = func(context.Context, string, string) (*model.LoginResponse, error) {
		return nil, &apiclient.Error{StatusCode: http.StatusUnauthorized, Message: "Password inválido"}
	}

	f.screen.SetEmail("ana@example.com")
	f.screen.SetPassword("wrong")
	out := f.screen.Submit(context.Background())

	assert.Equal(t, submit.Failed, out.State)
	assert.Equal(t, "Contraseña inválida", f.errorMessage(t))
	assert.Empty(t, f.screen.View().Email)
	assert.False(t, f.deps.Store.Authenticated())
}

func TestLoginGenericFailure(t *testing.T) {
	f := newFixture(t)
	f.api.LoginFunc = func(context.Context, string, string) (*model.LoginResponse, error) {
		return nil, &apiclient.Error{StatusCode: http.StatusBadGateway}
	}

	f.screen.SetEmail("ana@example.com")
	f.screen.SetPassword("Secret1!")
	out := f.screen.Submit(context.Background())

	assert.Equal(t, submit.Failed, out.State)
	assert.Equal(t, "No se pudo iniciar sesión. Intente nuevamente.", f.errorMessage(t))
}

func TestLoginPostChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(u *model.User)
		message string
	}{
		{
			name:    "inactive account",
			mutate:  func(u *model.User) { u.Status = model.Status{ID: 2, Name: model.StatusInactive} },
			message: "Tu cuenta está inactiva. Contacta al soporte para más información.",
		},
		{
			name:    "missing associated role",
			mutate:  func(u *model.User) { u.Roles = []model.Role{{RoleID: 1, RoleName: "tourist"}} },
			message: "Solo se permite el ingreso a los asociados.",
		},
		{
			name: "inactive takes precedence over role",
			mutate: func(u *model.User) {
				u.Status.Name = "pending"
				u.Roles = nil
			},
			message: "Tu cuenta está inactiva. Contacta al soporte para más información.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user := testutil.ActiveAssociate()
			tt.mutate(&user)
			f.api.LoginAs(user, "tok")

			f.screen.SetEmail("ana@example.com")
			f.screen.SetPassword("Secret1!")
			out := f.screen.Submit(context.Background())

			assert.Equal(t, submit.Failed, out.State)
			assert.Equal(t, tt.message, f.errorMessage(t))
			assert.False(t, f.deps.Store.Authenticated(), "session is discarded")
			assert.Empty(t, f.timers.Delays(), "no forward navigation is scheduled")
			f.timers.Fire()
			assert.Equal(t, screen.RouteLogin, f.deps.Nav.Current())
		})
	}
}

func TestLoginReentrancy(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.LoginFunc = func(context.Context, string, string) (*model.LoginResponse, error) {
		close(entered)
		<-release
		return &model.LoginResponse{User: testutil.ActiveAssociate(), Token: "tok"}, nil
	}

	f.screen.SetEmail("ana@example.com")
	f.screen.SetPassword("Secret1!")

	done := make(chan submit.Outcome)
	go func() { done <- f.screen.Submit(context.Background()) }()
	<-entered

	second := f.screen.Submit(context.Background())
	assert.ErrorIs(t, second.Err, submit.ErrInFlight)
	assert.Equal(t, submit.Submitting, f.screen.View().Status)

	close(release)
	first := <-done
	assert.Equal(t, submit.Succeeded, first.State)
	assert.Equal(t, 1, f.api.CallCount("Login"))
}
