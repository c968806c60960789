// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package submit sequences a form submission: local validation, a primary
// remote call, an optional dependent secondary call and a read refresh.
//
// An Orchestrator holds the submission state of one screen. It refuses to
// start a second submission while one is in flight and always leaves the
// Submitting state, including when a step panics.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// State is the submission state of a screen.
type State int

// Submission states.
const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrInFlight is returned when Submit is called while a submission is
// already running.
var ErrInFlight = errors.New("submission already in flight")

// ErrSecondary wraps the error of a failed secondary step.
var ErrSecondary = errors.New("secondary step failed")

// Outcome is the result of a submission.
type Outcome struct {
	State   State
	Message string
	Err     error
}

// Step is one remote call.
type Step func(ctx context.Context) error

// Plan describes one submission.
type Plan struct {
	// Name identifies the flow in logs.
	Name string

	// Validate runs the required-field and cross-field checks. A non-empty
	// result fails the submission before any remote call.
	Validate func() validate.Result

	Primary Step
	// Secondary runs only after Primary succeeds. Its failure fails the
	// submission; Primary is not compensated.
	Secondary Step
	// Refresh runs after overall success. Its error is logged only.
	Refresh Step

	// Classify maps recognized domain errors to a specific message.
	Classify func(err error) (string, bool)

	// Cleanup runs whenever the submission reaches the remote phase, on
	// success, failure and panic alike.
	Cleanup func()

	// OnSuccess replaces the default success notification.
	OnSuccess func(msg string)

	SuccessMessage string
	// SuccessMessageFunc, when set, renders the success message after the
	// remote calls, for messages that depend on their results.
	SuccessMessageFunc func() string

	GenericMessage   string
	SecondaryMessage string
}

// Notifier shows the outcome of a submission.
type Notifier interface {
	Show(kind notify.Kind, msg string)
	Lang() string
}

// Orchestrator runs submissions for one screen.
type Orchestrator struct {
	mu       sync.Mutex
	state    State
	last     Outcome
	notifier Notifier
	logger   *slog.Logger
}

// New creates an Idle Orchestrator.
func New(notifier Notifier, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		notifier: notifier,
		logger:   logger,
	}
}

// State returns the current submission state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Last returns the outcome of the most recent finished submission.
func (o *Orchestrator) Last() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Reset returns a finished orchestrator to Idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Submitting {
		o.state = Idle
		o.last = Outcome{}
	}
}

// Submit runs plan. A call made while another submission is in flight
// returns immediately with ErrInFlight and has no effect.
func (o *Orchestrator) Submit(ctx context.Context, plan Plan) (out Outcome) {
	o.mu.Lock()
	if o.state == Submitting {
		o.mu.Unlock()
		o.logger.Debug("submission ignored, already in flight", "flow", plan.Name)
		return Outcome{State: Submitting, Err: ErrInFlight}
	}

	if plan.Validate != nil {
		if r := plan.Validate(); !r.Valid() {
			msg := strings.Join(r.Messages(o.lang()), "\n")
			out = Outcome{State: Failed, Message: msg, Err: r.Err()}
			o.state = Failed
			o.last = out
			o.mu.Unlock()

			o.logger.Debug("submission rejected by validation", "flow", plan.Name, "reasons", len(r))
			o.show(notify.Error, msg)
			return out
		}
	}

	o.state = Submitting
	o.mu.Unlock()
	o.logger.Debug("submission started", "flow", plan.Name)

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("submission panicked", "flow", plan.Name, "panic", rec)
			out = Outcome{State: Failed, Message: plan.GenericMessage, Err: fmt.Errorf("panic: %v", rec)}
			o.show(notify.Error, out.Message)
		}
		o.mu.Lock()
		o.state = out.State
		o.last = out
		o.mu.Unlock()
		o.cleanup(plan)
	}()

	out = o.run(ctx, plan)
	switch out.State {
	case Succeeded:
		o.logger.Info("submission succeeded", "flow", plan.Name)
		if plan.OnSuccess != nil {
			plan.OnSuccess(out.Message)
		} else {
			o.show(notify.Success, out.Message)
		}
	default:
		o.logger.Warn("submission failed", "flow", plan.Name, "error", out.Err)
		o.show(notify.Error, out.Message)
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, plan Plan) Outcome {
	if plan.Primary != nil {
		if err := plan.Primary(ctx); err != nil {
			return o.failure(plan, err, plan.GenericMessage)
		}
	}

	if plan.Secondary != nil {
		if err := plan.Secondary(ctx); err != nil {
			msg := plan.SecondaryMessage
			if msg == "" {
				msg = plan.GenericMessage
			}
			return o.failure(plan, fmt.Errorf("%w: %w", ErrSecondary, err), msg)
		}
	}

	if plan.Refresh != nil {
		if err := plan.Refresh(ctx); err != nil {
			o.logger.Warn("refresh after submission failed", "flow", plan.Name, "error", err)
		}
	}

	msg := plan.SuccessMessage
	if plan.SuccessMessageFunc != nil {
		msg = plan.SuccessMessageFunc()
	}
	return Outcome{State: Succeeded, Message: msg}
}

func (o *Orchestrator) failure(plan Plan, err error, fallback string) Outcome {
	msg := fallback
	if plan.Classify != nil {
		if specific, ok := plan.Classify(err); ok {
			msg = specific
		}
	}
	return Outcome{State: Failed, Message: msg, Err: err}
}

func (o *Orchestrator) lang() string {
	if o.notifier == nil {
		return ""
	}
	return o.notifier.Lang()
}

func (o *Orchestrator) show(kind notify.Kind, msg string) {
	if o.notifier != nil && msg != "" {
		o.notifier.Show(kind, msg)
	}
}

// cleanup runs plan.Cleanup after the outcome is recorded. A panicking
// cleanup is logged and does not change the outcome.
func (o *Orchestrator) cleanup(plan Plan) {
	if plan.Cleanup == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("submission cleanup panicked", "flow", plan.Name, "panic", rec)
		}
	}()
	plan.Cleanup()
}
