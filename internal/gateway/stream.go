// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/session"
)

// streamRetryMillis is the reconnect delay suggested to event-stream clients.
const streamRetryMillis = 3000

// streamNotifications pushes every notification slot change of the session
// as a server-sent event. The stream starts with the currently visible
// notifications and ends when the client goes away, the session is
// closed or the server shuts down. The session lock is not held while
// streaming, so screen requests keep working.
func (g *Gateway) streamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := g.sessions.Acquire(ctx, session.ID(ctx, g.sm), middleware.GetLang(r))
	if err != nil {
		g.logger.Error("acquiring screen session failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, i18n.T(middleware.GetLang(r), "error.generic"))
		return
	}

	events, cancel := sess.notify.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", streamRetryMillis); err != nil {
		return
	}
	for _, kind := range []notify.Kind{notify.Error, notify.Success} {
		if req, ok := sess.notify.Current(kind); ok {
			if err := writeEvent(w, notify.Event{Request: req, Visible: true}); err != nil {
				return
			}
		}
	}

	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})
	if err := rc.Flush(); err != nil {
		g.logger.Warn("notification stream cannot flush", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopStreams:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				g.logger.Debug("writing notification event failed", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
	return err
}
