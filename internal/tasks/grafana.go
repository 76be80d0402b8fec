// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/monitor"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// DashboardsTask renders every Grafana dashboard to PNG and uploads
// the batch as one timestamped generation in the dashboard scope.
type DashboardsTask struct {
	source monitor.DashboardSource
	store  remote.Store
	keep   int
	logger zerolog.Logger
	now    func() time.Time
}

// NewDashboards wires the dashboard export task.
func NewDashboards(source monitor.DashboardSource, store remote.Store, keep int, logger zerolog.Logger) *DashboardsTask {
	return &DashboardsTask{
		source: source,
		store:  store,
		keep:   keep,
		logger: logger.With().Str("task", NameDashboards).Logger(),
		now:    time.Now,
	}
}

// Name implements schedule.Task.
func (t *DashboardsTask) Name() string { return NameDashboards }

// DefaultPeriod implements schedule.Task. Renders are heavy on the
// Grafana image renderer and layouts change rarely, so weekly.
func (t *DashboardsTask) DefaultPeriod() schedule.Period { return schedule.PeriodWeekly }

// Run exports one generation of dashboard renders.
//
// A single broken dashboard must not sink the batch: render and upload
// failures are logged per dashboard and the loop moves on. The run is
// reported as failed when anything was missed, so the next pass
// produces a fresh, complete generation. Retention runs only after a
// clean batch to avoid evicting complete generations for partial ones.
func (t *DashboardsTask) Run(ctx context.Context) error {
	refs, err := t.source.ListDashboards(ctx)
	if err != nil {
		return fmt.Errorf("list dashboards: %w", err)
	}
	if len(refs) == 0 {
		t.logger.Info().Msg("No dashboards to export")
		return nil
	}

	generation := t.now().UTC().Format(stampLayout)
	exported := 0
	var firstErr error

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}

		png, err := t.source.Render(ctx, ref)
		if err != nil {
			t.logger.Warn().Err(err).Str("uid", ref.UID).Str("title", ref.Title).Msg("Dashboard render failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		name := fmt.Sprintf("%s/%s.png", generation, ref.UID)
		if err := uploadBytes(ctx, t.store, ScopeDashboards, name, png, t.logger); err != nil {
			t.logger.Warn().Err(err).Str("uid", ref.UID).Msg("Dashboard upload failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		exported++
	}

	if firstErr != nil {
		return fmt.Errorf("exported %d of %d dashboards: %w", exported, len(refs), firstErr)
	}

	if _, err := PruneRemote(ctx, t.store, ScopeDashboards, t.keep, t.logger); err != nil {
		t.logger.Warn().Err(err).Msg("Remote dashboard retention failed")
	}

	t.logger.Info().Int("dashboards", exported).Str("generation", generation).Msg("Dashboard export complete")
	return nil
}
