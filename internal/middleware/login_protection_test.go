// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Javier-Pedernera/asociados-go/internal/testutil"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testLoginProtection returns protection with a high IP rate and a manual clock.
func testLoginProtection(maxAttempts int, lockoutDuration, attemptWindow time.Duration) (*LoginProtection, *clock) {
	c := newClock()
	return NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,  // High rate for testing
		IPBurst:           100, // High burst for testing
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockoutDuration,
		AttemptWindow:     attemptWindow,
		Now:               c.Now,
		Logger:            testutil.TestLoggerSilent(),
	}), c
}

func TestNewLoginProtectionDefaultValues(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})

	assert.Equal(t, 5, lp.maxFailedAttempts)
	assert.Equal(t, 15*time.Minute, lp.lockoutDuration)
	assert.Equal(t, 15*time.Minute, lp.attemptWindow)
}

func TestLoginProtectionLockout(t *testing.T) {
	lp, c := testLoginProtection(3, time.Minute, 10*time.Minute)
	email := "ana@example.com"

	locked, _ := lp.IsAccountLocked(email)
	assert.False(t, locked, "not locked initially")

	for i := 0; i < 2; i++ {
		locked, _ = lp.RecordFailedAttempt(email)
		assert.False(t, locked, "attempt %d should not lock", i+1)
	}
	locked, duration := lp.RecordFailedAttempt(" ANA@example.com ")
	require.True(t, locked, "third attempt locks, whatever the email casing")
	assert.Equal(t, time.Minute, duration)

	locked, remaining := lp.IsAccountLocked(email)
	assert.True(t, locked)
	assert.Equal(t, time.Minute, remaining)

	c.Advance(time.Minute + time.Second)
	locked, _ = lp.IsAccountLocked(email)
	assert.False(t, locked, "unlocked after the lockout expires")
}

func TestLoginProtectionSingleAttemptLimit(t *testing.T) {
	lp, _ := testLoginProtection(1, time.Minute, time.Minute)

	locked, _ := lp.RecordFailedAttempt("ana@example.com")
	assert.True(t, locked)
}

func TestLoginProtectionExponentialBackoff(t *testing.T) {
	lp, c := testLoginProtection(2, time.Minute, time.Hour)
	email := "ana@example.com"

	lp.RecordFailedAttempt(email)
	_, first := lp.RecordFailedAttempt(email)
	c.Advance(first + time.Second)

	lp.RecordFailedAttempt(email)
	_, second := lp.RecordFailedAttempt(email)

	assert.Equal(t, time.Minute, first)
	assert.Equal(t, 2*time.Minute, second)
}

func TestLoginProtectionRemainingAttempts(t *testing.T) {
	lp, c := testLoginProtection(5, time.Minute, time.Minute)
	email := "ana@example.com"

	assert.Equal(t, 5, lp.GetRemainingAttempts(email))
	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	assert.Equal(t, 3, lp.GetRemainingAttempts(email))

	lp.RecordSuccessfulLogin(email)
	assert.Equal(t, 5, lp.GetRemainingAttempts(email), "success clears the count")

	lp.RecordFailedAttempt(email)
	c.Advance(2 * time.Minute)
	assert.Equal(t, 5, lp.GetRemainingAttempts(email), "window expiry resets the count")
}

func TestLoginProtectionSweep(t *testing.T) {
	lp, c := testLoginProtection(2, time.Minute, 5*time.Minute)

	lp.RecordFailedAttempt("stale@example.com")
	lp.RecordFailedAttempt("locked@example.com")
	lp.RecordFailedAttempt("locked@example.com")

	c.Advance(6 * time.Minute)
	lp.RecordFailedAttempt("recent@example.com")

	assert.Equal(t, 2, lp.Sweep(), "stale and expired entries are removed")
	assert.Equal(t, 1, lp.GetRemainingAttempts("recent@example.com"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xForwarded string
		xRealIP    string
		want       string
	}{
		{name: "remote addr without port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "X-Forwarded-For single", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1", want: "10.0.0.1"},
		{name: "X-Forwarded-For multiple", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1, 10.0.0.2", want: "10.0.0.1"},
		{name: "X-Real-IP wins", remoteAddr: "127.0.0.1:8080", xForwarded: "10.0.0.1", xRealIP: "10.0.0.5", want: "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwarded)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 0.001,
		IPBurst:     2,
		Logger:      testutil.TestLoggerSilent(),
	})
	wrapped := Language(true)(lp.Middleware()(okHandler()))

	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, post("10.0.0.1").Code)

	rec := post("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Demasiados intentos. Espere un momento e intente nuevamente.", body.Error)

	assert.Equal(t, http.StatusOK, post("10.0.0.2").Code, "limits are per IP")

	get := httptest.NewRequest(http.MethodGet, "/login", nil)
	get.RemoteAddr = "10.0.0.1:4000"
	getRec := httptest.NewRecorder()
	wrapped.ServeHTTP(getRec, get)
	assert.Equal(t, http.StatusOK, getRec.Code, "only POST is limited")
}
