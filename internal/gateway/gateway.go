// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gateway exposes the login, profile and promotion screens as JSON
// endpoints. Every browser session owns its own screen instances, and
// every response carries the current route, the screen view and the
// notification surface.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/cache"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/login"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/profile"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/promotion"
	"github.com/Javier-Pedernera/asociados-go/internal/session"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
	"github.com/Javier-Pedernera/asociados-go/internal/version"
)

// Route paths.
const (
	RouteHealth        = "/health"
	RouteCountries     = "/countries"
	RouteLogin         = "/login"
	RouteProfile       = "/profile"
	RoutePromotions    = "/promotions"
	RouteNotifications = "/notifications"

	RouteNotificationStream = RouteNotifications + "/stream"
)

const (
	// DefaultRequestTimeout bounds one request, remote calls included.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultMaxUploadBytes bounds a multipart image upload.
	DefaultMaxUploadBytes = 48 << 20
	maxJSONBytes          = 1 << 20
)

// Options configures the gateway.
type Options struct {
	Sessions        *Sessions
	SessionManager  *scs.SessionManager
	LoginProtection *middleware.LoginProtection

	CSRFKey        []byte
	AllowedOrigins []string
	IsDev          bool

	RequestTimeout time.Duration
	MaxUploadBytes int64

	// CacheStats, when set, is reported by the health endpoint.
	CacheStats cache.StatsProvider

	Version version.Info
	Logger  *slog.Logger
}

// Gateway serves the screen endpoints.
type Gateway struct {
	sessions   *Sessions
	sm         *scs.SessionManager
	protection *middleware.LoginProtection
	opts       Options
	logger     *slog.Logger
	started    time.Time

	stopStreams     chan struct{}
	stopStreamsOnce sync.Once
}

// New creates a gateway.
func New(opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.LoginProtection == nil {
		opts.LoginProtection = middleware.NewLoginProtection(middleware.LoginProtectionConfig{Logger: opts.Logger})
	}
	return &Gateway{
		sessions:   opts.Sessions,
		sm:         opts.SessionManager,
		protection: opts.LoginProtection,
		opts:       opts,
		logger:     opts.Logger,
		started:    time.Now(),

		stopStreams: make(chan struct{}),
	}
}

// CloseStreams ends every open notification stream. Registered as a server
// shutdown hook, since Shutdown waits for streaming responses.
func (g *Gateway) CloseStreams() {
	g.stopStreamsOnce.Do(func() { close(g.stopStreams) })
}

// Handler returns the router with the full middleware chain.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   g.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(g.opts.IsDev)))
	r.Use(middleware.Language(g.opts.IsDev))

	// The notification stream outlives any request timeout.
	r.Group(func(r chi.Router) {
		r.Use(chimw.Recoverer)
		r.Use(g.sm.LoadAndSave)
		r.Get(RouteNotificationStream, g.streamNotifications)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(g.opts.RequestTimeout))
		// After Timeout, which runs the rest of the chain on its own goroutine.
		r.Use(chimw.Recoverer)

		r.Get(RouteHealth, g.health)
		r.Get(RouteCountries, g.countries)

		r.Group(func(r chi.Router) {
			r.Use(g.sm.LoadAndSave)
			r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(g.opts.CSRFKey, g.opts.AllowedOrigins, g.opts.IsDev)))

			r.With(g.protection.Middleware()).Post(RouteLogin, g.withSession(g.submitLogin))
			r.Get(RouteLogin, g.withSession(g.showLogin))
			r.Post(RouteNotifications+"/{kind}/dismiss", g.withSession(g.dismissNotification))

			r.Route(RouteProfile, func(r chi.Router) {
				r.Get("/", g.withAuth(g.showProfile))
				r.Post("/edit", g.withAuth(g.profileAction((*profile.Screen).BeginEdit)))
				r.Post("/cancel", g.withAuth(g.profileAction((*profile.Screen).CancelEdit)))
				r.Post("/save", g.withAuth(g.saveProfile))
				r.Post("/logout", g.withAuth(g.logout))
				r.Patch("/fields/{field}", g.withAuth(g.setProfileField))
				r.Post("/image", g.withAuth(g.setProfileImage))

				r.Post("/categories/open", g.withAuth(g.profileAction((*profile.Screen).OpenCategories)))
				r.Post("/categories/toggle/{id}", g.withAuth(g.toggleProfileCategory))
				r.Post("/categories/confirm", g.withAuth(g.profileAction((*profile.Screen).ConfirmCategories)))
				r.Post("/categories/cancel", g.withAuth(g.profileAction((*profile.Screen).CancelCategories)))

				r.Post("/password/begin", g.withAuth(g.profileAction((*profile.Screen).BeginPasswordChange)))
				r.Post("/password/cancel", g.withAuth(g.profileAction((*profile.Screen).CancelPasswordChange)))
				r.Post("/password/submit", g.withAuth(g.changePassword))
				r.Patch("/password/{field}", g.withAuth(g.setPasswordField))
			})

			r.Route(RoutePromotions, func(r chi.Router) {
				r.Get("/", g.withAuth(g.listPromotions))
				r.Post("/new", g.withAuth(g.openPromotion))
				r.Post("/draft/close", g.withAuth(g.closePromotion))
				r.Patch("/draft/fields/{field}", g.withAuth(g.setPromotionField))
				r.Put("/draft/categories", g.withAuth(g.setPromotionCategories))
				r.Post("/draft/categories/toggle/{id}", g.withAuth(g.togglePromotionCategory))
				r.Post("/draft/images", g.withAuth(g.setPromotionImages))
				r.Post("/draft/dates/{picker}/open", g.withAuth(g.openPicker))
				r.Post("/draft/dates/start", g.withAuth(g.setStart))
				r.Post("/draft/dates/start/confirm", g.withAuth(g.confirmStart))
				r.Post("/draft/dates/end", g.withAuth(g.setEnd))
				r.Post("/draft/dates/end/confirm", g.withAuth(g.confirmEnd))
				r.Post("/draft/submit", g.withAuth(g.submitPromotion))
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, i18n.T(middleware.GetLang(r), "error.not_found"))
	})

	return r
}

// sessionHandler handles a request with its session locked.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

func (g *Gateway) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := session.ID(r.Context(), g.sm)
		sess, err := g.sessions.Acquire(r.Context(), id, middleware.GetLang(r))
		if err != nil {
			g.logger.Error("acquiring screen session failed", "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, i18n.T(middleware.GetLang(r), "error.generic"))
			return
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()
		h(w, r, sess)
	}
}

// withAuth rejects sessions without a valid platform token and sends them
// back to the login route.
func (g *Gateway) withAuth(h sessionHandler) http.HandlerFunc {
	return g.withSession(func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if !sess.store.Authenticated() {
			sess.nav.Navigate(screen.RouteLogin)
			sess.mounted = false
			sess.notify.Show(notify.Error, i18n.T(sess.notify.Lang(), "error.unauthenticated"))
			g.respond(w, http.StatusUnauthorized, sess, sess.login.View())
			return
		}
		h(w, r, sess)
	})
}

// Notifications is the state of the notification surface.
type Notifications struct {
	Error   *notify.Request `json:"error,omitempty"`
	Success *notify.Request `json:"success,omitempty"`
}

// Response is the body of every screen endpoint.
type Response struct {
	Route         screen.Route  `json:"route"`
	Screen        any           `json:"screen,omitempty"`
	Notifications Notifications `json:"notifications"`
}

func (g *Gateway) respond(w http.ResponseWriter, status int, sess *Session, view any) {
	resp := Response{Route: sess.nav.Current(), Screen: view}
	if req, ok := sess.notify.Current(notify.Error); ok {
		resp.Notifications.Error = &req
	}
	if req, ok := sess.notify.Current(notify.Success); ok {
		resp.Notifications.Success = &req
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Debug("writing response failed", "error", err)
	}
}

// statusFor maps the error of a screen action to a response status. The
// user-facing message is already on the notification surface.
func statusFor(err error) int {
	var verr *validate.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, screen.ErrWrongMode), errors.Is(err, submit.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, profile.ErrNotEditable), errors.Is(err, promotion.ErrNotEditable):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotAuthenticated), errors.Is(err, apiclient.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, login.ErrInactiveAccount), errors.Is(err, login.ErrNotAssociated):
		return http.StatusForbidden
	case errors.As(err, &verr),
		errors.Is(err, media.ErrTooManyImages),
		errors.Is(err, media.ErrUnsupportedFormat),
		errors.Is(err, media.ErrTooLarge):
		return http.StatusUnprocessableEntity
	default:
		// The remote call failed.
		return http.StatusBadGateway
	}
}

// outcomeStatus maps a submission outcome to a response status.
func outcomeStatus(out submit.Outcome) int {
	if out.State == submit.Succeeded {
		return http.StatusOK
	}
	return statusFor(out.Err)
}

// valueBody is the body of a single-field edit.
type valueBody struct {
	Value any `json:"value"`
}

// decodeJSON reads a JSON body. Numbers stay json.Number so the numeric
// rules see the digits as typed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (g *Gateway) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Debug("malformed request", "path", r.URL.Path, "error", err)
	middleware.WriteError(w, http.StatusBadRequest, i18n.T(middleware.GetLang(r), "error.bad_request"))
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status   string       `json:"status"`
	Uptime   string       `json:"uptime"`
	Sessions int          `json:"sessions"`
	Version  version.Info `json:"version"`
	Cache    *CacheHealth `json:"cache,omitempty"`
}

// CacheHealth reports the snapshot cache counters.
type CacheHealth struct {
	cache.Stats
	HitRate float64 `json:"hit_rate"`
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{
		Status:   "healthy",
		Uptime:   time.Since(g.started).Round(time.Second).String(),
		Sessions: g.sessions.Len(),
		Version:  g.opts.Version,
	}
	if g.opts.CacheStats != nil {
		stats := g.opts.CacheStats.Stats()
		status.Cache = &CacheHealth{Stats: stats, HitRate: stats.HitRate()}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// CountriesResponse lists catalog country names.
type CountriesResponse struct {
	Countries []string `json:"countries"`
}

// countries serves the country picker. q filters by substring, ignoring
// case and accents.
func (g *Gateway) countries(w http.ResponseWriter, r *http.Request) {
	catalog := g.sessions.cfg.Catalog
	resp := CountriesResponse{Countries: []string{}}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q == "" {
		resp.Countries = append(resp.Countries, catalog.CountryNames()...)
	} else {
		for _, c := range catalog.SearchCountries(q) {
			resp.Countries = append(resp.Countries, c.Name)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (g *Gateway) dismissNotification(w http.ResponseWriter, r *http.Request, sess *Session) {
	kind, ok := notify.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, i18n.T(middleware.GetLang(r), "error.not_found"))
		return
	}
	if kind == notify.Success && sess.promotion.Mode() == promotion.Drafting {
		sess.promotion.DismissSuccess()
	} else {
		sess.notify.Dismiss(kind)
	}
	g.respond(w, http.StatusOK, sess, nil)
}
