// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package screen holds what the Login, Profile and Promotion controllers
// share: their dependencies, the route a session is on and the error
// returned for actions the current mode does not allow.
package screen

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
)

// ErrWrongMode is returned when an action is not available in the
// screen's current mode, e.g. editing a field while viewing.
var ErrWrongMode = errors.New("action not available in current mode")

// Deps are the collaborators of a screen controller.
type Deps struct {
	Store      *store.Store
	Notify     *notify.Surface
	Compressor *media.Compressor
	Nav        *Navigator
	Logger     *slog.Logger
	Now        func() time.Time
	// ImageBaseURL prefixes relative image paths of stored records.
	ImageBaseURL string
}

// WithDefaults fills the optional fields.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Nav == nil {
		d.Nav = NewNavigator(RouteLogin, d.Logger)
	}
	if d.Compressor == nil {
		d.Compressor = media.NewCompressor(media.Options{})
	}
	return d
}

// T renders key in the surface's language.
func (d Deps) T(key string, args ...any) string {
	return i18n.T(d.Notify.Lang(), key, args...)
}

// WrongMode shows the wrong-mode error and returns ErrWrongMode.
func (d Deps) WrongMode() error {
	d.Notify.Show(notify.Error, d.T("screen.wrong_mode"))
	return ErrWrongMode
}

// Route names a top-level screen.
type Route string

// Routes.
const (
	RouteLogin Route = "login"
	RouteMain  Route = "main"
)

// Navigator records the route a session is on. Forward navigation may be
// triggered from a timer, so it is safe for concurrent use.
type Navigator struct {
	mu      sync.Mutex
	current Route
	logger  *slog.Logger
}

// NewNavigator creates a Navigator starting at initial.
func NewNavigator(initial Route, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{current: initial, logger: logger}
}

// Navigate moves to route.
func (n *Navigator) Navigate(route Route) {
	n.mu.Lock()
	from := n.current
	n.current = route
	n.mu.Unlock()

	if from != route {
		n.logger.Debug("navigated", "from", string(from), "to", string(route))
	}
}

// Current returns the current route.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
