// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the gateway's background jobs: catalog refresh,
// idle session sweeping and login lockout cleanup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds one run of a job.
const DefaultJobTimeout = time.Minute

// Job is a unit of scheduled work.
type Job struct {
	Source      string
	Name        string
	Description string
	Schedule    string
	Run         func(ctx context.Context) error
	// Triggerable allows TriggerNow.
	Triggerable bool
}

// Scheduler owns the cron instance and the job registry.
type Scheduler struct {
	cron     *cron.Cron
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler. Overlapping runs of one job are skipped and a
// panicking job is logged instead of killing the process.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return &Scheduler{
		cron:     c,
		registry: newRegistry(c, logger),
		timeout:  DefaultJobTimeout,
		logger:   logger,
	}
}

// Registry returns the job registry.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Add schedules a job.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s:%s has no run func", job.Source, job.Name)
	}
	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		err := job.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "source", job.Source, "name", job.Name, "error", err)
			return err
		}
		s.logger.Debug("scheduled job done", "source", job.Source, "name", job.Name, "took", time.Since(start))
		return nil
	}
	jobFunc := func() { _ = run() }

	id, err := s.cron.AddFunc(job.Schedule, jobFunc)
	if err != nil {
		return fmt.Errorf("scheduling %s:%s: %w", job.Source, job.Name, err)
	}

	var trigger func() error
	if job.Triggerable {
		trigger = run
	}
	s.registry.register(job, id, jobFunc, trigger)
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
