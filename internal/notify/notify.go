// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify implements the notification surface shared by a screen:
// one error slot and one success slot, each holding at most one message.
// Showing a message replaces the one in its slot; nothing is queued.
package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Kind selects a notification slot.
type Kind int

// Notification kinds.
const (
	Error Kind = iota
	Success
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "error"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}

// ParseKind maps "error" and "success" to their Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "error":
		return Error, true
	case "success":
		return Success, true
	default:
		return 0, false
	}
}

// Request is a notification shown in a slot.
type Request struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Event is delivered to subscribers on every slot change. Visible is false
// when the slot was cleared.
type Event struct {
	Request
	Visible bool `json:"visible"`
}

// Stopper cancels a pending timer.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

const subscriberBuffer = 16

// Surface is the notification surface of one screen session.
type Surface struct {
	mu        sync.Mutex
	lang      string
	slots     [2]*Request
	subs      []chan Event
	afterFunc AfterFunc
	flash     Stopper
	flashSeq  uint64
	logger    *slog.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithAfterFunc replaces the timer used by FlashSuccess.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Surface) {
		s.afterFunc = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		s.logger = logger
	}
}

// New creates a Surface whose messages are written in lang.
func New(lang string, opts ...Option) *Surface {
	s := &Surface{
		lang:      lang,
		afterFunc: realAfterFunc,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lang returns the language messages are rendered in.
func (s *Surface) Lang() string {
	return s.lang
}

// Show displays msg in the slot for kind, replacing any current message.
// Showing a success message supersedes a pending flash.
func (s *Surface) Show(kind Kind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == Success {
		s.cancelFlashLocked()
	}
	s.setLocked(kind, &Request{Kind: kind, Message: msg})
}

// Dismiss clears the slot for kind. It reports whether a message was
// visible.
func (s *Surface) Dismiss(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots[kind] == nil {
		return false
	}
	s.setLocked(kind, nil)
	return true
}

// Current returns the message shown for kind, if any.
func (s *Surface) Current(kind Kind) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.slots[kind]; r != nil {
		return *r, true
	}
	return Request{}, false
}

// FlashSuccess shows msg in the success slot, clears it after delay and
// then calls then. A flash superseded by another success message before
// the delay elapses neither clears the slot nor calls then.
func (s *Surface) FlashSuccess(msg string, delay time.Duration, then func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelFlashLocked()
	s.setLocked(Success, &Request{Kind: Success, Message: msg})

	s.flashSeq++
	seq := s.flashSeq
	s.flash = s.afterFunc(delay, func() {
		s.mu.Lock()
		if s.flashSeq != seq {
			s.mu.Unlock()
			return
		}
		s.flash = nil
		s.setLocked(Success, nil)
		s.mu.Unlock()

		if then != nil {
			then()
		}
	})
}

// Subscribe returns a channel receiving every slot change, and a func that
// ends the subscription and closes the channel. Slow subscribers miss
// events rather than block the surface.
func (s *Surface) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	s.subs = append(s.subs, ch)
	return ch, func() { s.unsubscribe(ch) }
}

func (s *Surface) unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// After Close the channel is already closed.
	if i := slices.Index(s.subs, ch); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
		close(ch)
	}
}

// Close stops a pending flash and closes all subscriber channels.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelFlashLocked()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

func (s *Surface) cancelFlashLocked() {
	s.flashSeq++
	if s.flash != nil {
		s.flash.Stop()
		s.flash = nil
	}
}

func (s *Surface) setLocked(kind Kind, r *Request) {
	s.slots[kind] = r

	ev := Event{Request: Request{Kind: kind}}
	if r != nil {
		ev.Request = *r
		ev.Visible = true
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("notification subscriber full, event dropped", "kind", kind.String())
		}
	}
}
