// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
)

// Job sources.
const (
	SourceCatalog  = "catalog"
	SourceSessions = "sessions"
)

// CatalogRefresher reloads the shared reference data.
// *store.Catalog satisfies it.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// CatalogRefreshJob reloads categories and countries on schedule.
func CatalogRefreshJob(c CatalogRefresher, schedule string) Job {
	return Job{
		Source:      SourceCatalog,
		Name:        "refresh",
		Description: "Reload categories and countries from the platform",
		Schedule:    schedule,
		Triggerable: true,
		Run: func(ctx context.Context) error {
			if err := c.Refresh(ctx); err != nil {
				return fmt.Errorf("refreshing catalog: %w", err)
			}
			return nil
		},
	}
}

// SweepFunc drops stale entries and returns how many it dropped.
type SweepFunc func() int

// SessionSweepJob runs every sweep on schedule: idle screen sessions,
// expired login lockouts.
func SessionSweepJob(schedule string, sweeps ...SweepFunc) Job {
	return Job{
		Source:      SourceSessions,
		Name:        "sweep",
		Description: "Drop idle screen sessions and expired login lockouts",
		Schedule:    schedule,
		Triggerable: true,
		Run: func(context.Context) error {
			for _, sweep := range sweeps {
				sweep()
			}
			return nil
		},
	}
}
