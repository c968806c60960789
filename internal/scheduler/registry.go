// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	source          string
	name            string
	description     string
	defaultSchedule string
	schedule        string // effective schedule (override or default)
	entryID         cron.EntryID
	jobFunc         func()
	triggerFunc     func() error // nil if manual trigger not allowed
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Source          string    `json:"source"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DefaultSchedule string    `json:"default_schedule"`
	Schedule        string    `json:"schedule"` // effective schedule
	IsOverridden    bool      `json:"is_overridden"`
	LastRun         time.Time `json:"last_run,omitzero"`
	NextRun         time.Time `json:"next_run,omitzero"`
	CanTrigger      bool      `json:"can_trigger"`
}

// Registry tracks the scheduled jobs. Schedule overrides live in memory
// and are lost on restart; the configured schedule is the default.
type Registry struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*registeredJob // key: "source:name"
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func newRegistry(c *cron.Cron, logger *slog.Logger) *Registry {
	return &Registry{
		cron:   c,
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}
}

func jobKey(source, name string) string {
	return fmt.Sprintf("%s:%s", source, name)
}

func (r *Registry) register(job Job, id cron.EntryID, jobFunc func(), trigger func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[jobKey(job.Source, job.Name)] = &registeredJob{
		source:          job.Source,
		name:            job.Name,
		description:     job.Description,
		defaultSchedule: job.Schedule,
		schedule:        job.Schedule,
		entryID:         id,
		jobFunc:         jobFunc,
		triggerFunc:     trigger,
	}
	r.logger.Debug("registered scheduled job", "source", job.Source, "name", job.Name, "schedule", job.Schedule)
}

// List returns all registered jobs sorted by source then name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		entry := r.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Source:          job.source,
			Name:            job.name,
			Description:     job.description,
			DefaultSchedule: job.defaultSchedule,
			Schedule:        job.schedule,
			IsOverridden:    job.schedule != job.defaultSchedule,
			CanTrigger:      job.triggerFunc != nil,
			NextRun:         entry.Next,
			LastRun:         entry.Prev,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Source != result[j].Source {
			return result[i].Source < result[j].Source
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// TriggerNow manually executes a job immediately.
func (r *Registry) TriggerNow(source, name string) error {
	r.mu.RLock()
	job, ok := r.jobs[jobKey(source, name)]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s:%s", source, name)
	}
	if job.triggerFunc == nil {
		return fmt.Errorf("manual trigger not available for: %s:%s", source, name)
	}

	r.logger.Info("manually triggering job", "source", source, "name", name)
	return job.triggerFunc()
}

// UpdateSchedule changes the schedule of a job.
func (r *Registry) UpdateSchedule(source, name, newSchedule string) error {
	if _, err := parser.Parse(newSchedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", newSchedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobKey(source, name)]
	if !ok {
		return fmt.Errorf("job not found: %s:%s", source, name)
	}
	if err := r.reschedule(job, newSchedule); err != nil {
		return err
	}

	r.logger.Info("updated job schedule", "source", source, "name", name, "schedule", newSchedule)
	return nil
}

// ResetSchedule restores the default schedule.
func (r *Registry) ResetSchedule(source, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobKey(source, name)]
	if !ok {
		return fmt.Errorf("job not found: %s:%s", source, name)
	}
	if job.schedule == job.defaultSchedule {
		return nil // Already at default
	}
	return r.reschedule(job, job.defaultSchedule)
}

// reschedule swaps the cron entry of job. The caller holds r.mu.
func (r *Registry) reschedule(job *registeredJob, schedule string) error {
	r.cron.Remove(job.entryID)
	id, err := r.cron.AddFunc(schedule, job.jobFunc)
	if err != nil {
		// Re-add with old schedule on failure
		fallbackID, fallbackErr := r.cron.AddFunc(job.schedule, job.jobFunc)
		if fallbackErr != nil {
			return fmt.Errorf("critical: failed to restore schedule after update failure: %w (original: %w)", fallbackErr, err)
		}
		job.entryID = fallbackID
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}
	job.entryID = id
	job.schedule = schedule
	return nil
}

// Unregister removes a job.
func (r *Registry) Unregister(source, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := jobKey(source, name)
	job, ok := r.jobs[key]
	if !ok {
		return
	}
	r.cron.Remove(job.entryID)
	delete(r.jobs, key)
	r.logger.Debug("unregistered scheduled job", "source", source, "name", name)
}
