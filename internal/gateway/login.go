// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"errors"
	"math"
	"net/http"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/session"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
)

// loginBody is the body of POST /login.
type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (g *Gateway) showLogin(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g.respond(w, http.StatusOK, sess, sess.login.View())
}

// submitLogin signs in. Locked accounts are refused before the platform is
// called; wrong passwords count towards the lockout.
func (g *Gateway) submitLogin(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body loginBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}

	if locked, remaining := g.protection.IsAccountLocked(body.Email); locked {
		minutes := int(math.Ceil(remaining.Minutes()))
		sess.notify.Show(notify.Error, i18n.T(sess.notify.Lang(), "login.locked", minutes))
		g.respond(w, http.StatusTooManyRequests, sess, sess.login.View())
		return
	}

	sess.login.SetEmail(body.Email)
	sess.login.SetPassword(body.Password)
	out := sess.login.Submit(r.Context())

	switch {
	case out.State == submit.Succeeded:
		g.protection.RecordSuccessfulLogin(body.Email)
		sess.mounted = false
		if err := session.Rotate(r.Context(), g.sm); err != nil {
			g.logger.Warn("rotating session token failed", "error", err)
		}
	case errors.Is(out.Err, apiclient.ErrInvalidPassword):
		if locked, d := g.protection.RecordFailedAttempt(body.Email); locked {
			g.logger.Warn("login locked", "ip", middleware.ClientIP(r), "duration", d)
		} else {
			g.logger.Info("invalid password", "ip", middleware.ClientIP(r),
				"remaining_attempts", g.protection.GetRemainingAttempts(body.Email))
		}
	}

	g.respond(w, outcomeStatus(out), sess, sess.login.View())
}
