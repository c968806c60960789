// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Javier-Pedernera/asociados-go/internal/form"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/profile"
	"github.com/Javier-Pedernera/asociados-go/internal/session"
)

// mountProfile loads the profile records once per login.
func mountProfile(ctx context.Context, sess *Session) {
	if !sess.mounted {
		sess.profile.Mount(ctx)
		sess.mounted = true
	}
}

func (g *Gateway) showProfile(w http.ResponseWriter, r *http.Request, sess *Session) {
	mountProfile(r.Context(), sess)
	g.respond(w, http.StatusOK, sess, sess.profile.View())
}

// profileAction adapts a mode transition of the profile screen.
func (g *Gateway) profileAction(action func(*profile.Screen) error) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		mountProfile(r.Context(), sess)
		err := action(sess.profile)
		g.respond(w, statusFor(err), sess, sess.profile.View())
	}
}

func (g *Gateway) setProfileField(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body valueBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	mountProfile(r.Context(), sess)
	err := sess.profile.Set(form.Field(chi.URLParam(r, "field")), body.Value)
	g.respond(w, statusFor(err), sess, sess.profile.View())
}

func (g *Gateway) setProfileImage(w http.ResponseWriter, r *http.Request, sess *Session) {
	sources, cleanup, err := g.readUploads(w, r)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}
	defer cleanup()

	mountProfile(r.Context(), sess)
	err = sess.profile.SetImage(sources)
	g.respond(w, statusFor(err), sess, sess.profile.View())
}

func (g *Gateway) toggleProfileCategory(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}
	mountProfile(r.Context(), sess)
	err = sess.profile.ToggleCategory(id)
	g.respond(w, statusFor(err), sess, sess.profile.View())
}

func (g *Gateway) saveProfile(w http.ResponseWriter, r *http.Request, sess *Session) {
	mountProfile(r.Context(), sess)
	out, err := sess.profile.Save(r.Context())
	status := outcomeStatus(out)
	if err != nil {
		status = statusFor(err)
	}
	g.respond(w, status, sess, sess.profile.View())
}

func (g *Gateway) setPasswordField(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body valueBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	value, ok := body.Value.(string)
	if !ok && body.Value != nil {
		middleware.WriteError(w, http.StatusBadRequest, i18n.T(middleware.GetLang(r), "error.bad_request"))
		return
	}

	mountProfile(r.Context(), sess)
	var err error
	switch form.Field(chi.URLParam(r, "field")) {
	case profile.FieldNewPassword:
		_, err = sess.profile.SetNewPassword(value)
	case profile.FieldCurrentPassword:
		err = sess.profile.SetCurrentPassword(value)
	case profile.FieldConfirmPassword:
		err = sess.profile.SetConfirmPassword(value)
	default:
		middleware.WriteError(w, http.StatusNotFound, i18n.T(middleware.GetLang(r), "error.not_found"))
		return
	}
	g.respond(w, statusFor(err), sess, sess.profile.View())
}

func (g *Gateway) changePassword(w http.ResponseWriter, r *http.Request, sess *Session) {
	mountProfile(r.Context(), sess)
	out, err := sess.profile.ChangePassword(r.Context())
	status := outcomeStatus(out)
	if err != nil {
		status = statusFor(err)
	}
	g.respond(w, status, sess, sess.profile.View())
}

// logout signs out and issues a fresh session token. The screen session
// itself is kept, so the surface still shows the outcome.
func (g *Gateway) logout(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := sess.profile.Logout(r.Context()); err != nil {
		g.logger.Error("logout failed", "error", err)
		g.respond(w, statusFor(err), sess, sess.profile.View())
		return
	}
	sess.mounted = false
	sess.promotion.Close()
	if err := session.Rotate(r.Context(), g.sm); err != nil {
		g.logger.Warn("rotating session token failed", "error", err)
	}
	g.respond(w, http.StatusOK, sess, sess.login.View())
}
