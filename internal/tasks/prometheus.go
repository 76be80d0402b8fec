// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/archive"
	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/monitor"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// TSDBTask triggers a Prometheus TSDB snapshot through the admin API.
// When the snapshot directory is reachable locally, the named snapshot
// is archived and uploaded to the tsdb scope; otherwise triggering is
// the whole job and the snapshot stays on the Prometheus host.
//
// The snapshot directory itself is never cleaned up here. It belongs
// to Prometheus, and its operators decide when snapshots go.
type TSDBTask struct {
	cfg      config.PrometheusConfig
	trigger  monitor.SnapshotTrigger
	archiver Archiver
	store    remote.Store
	workDir  string
	keep     int
	logger   zerolog.Logger
}

// NewTSDB wires the snapshot task. workDir stages the archive before
// upload, shared with the state task.
func NewTSDB(cfg config.PrometheusConfig, trigger monitor.SnapshotTrigger, archiver Archiver, store remote.Store, workDir string, keep int, logger zerolog.Logger) *TSDBTask {
	return &TSDBTask{
		cfg:      cfg,
		trigger:  trigger,
		archiver: archiver,
		store:    store,
		workDir:  workDir,
		keep:     keep,
		logger:   logger.With().Str("task", NameTSDB).Logger(),
	}
}

// Name implements schedule.Task.
func (t *TSDBTask) Name() string { return NameTSDB }

// DefaultPeriod implements schedule.Task.
func (t *TSDBTask) DefaultPeriod() schedule.Period { return schedule.PeriodDaily }

// Run triggers one snapshot and, when configured, ships it.
func (t *TSDBTask) Run(ctx context.Context) error {
	snapshot, err := t.trigger.Snapshot(ctx, t.cfg.SkipHead)
	if err != nil {
		return fmt.Errorf("trigger snapshot: %w", err)
	}

	if t.cfg.SnapshotDir == "" {
		t.logger.Info().Str("snapshot", snapshot).Msg("Snapshot triggered, no local snapshot directory to ship")
		return nil
	}

	snapshotPath := filepath.Join(t.cfg.SnapshotDir, snapshot)
	if _, err := os.Stat(snapshotPath); err != nil {
		return fmt.Errorf("snapshot %s not readable under %s: %w", snapshot, t.cfg.SnapshotDir, err)
	}

	name := fmt.Sprintf("tsdb-%s.tar.gz", snapshot)
	destPath := filepath.Join(t.workDir, name)

	defer removeStaged(t.logger, destPath, destPath+".sha256")

	manifest, err := t.archiver.Create(ctx, destPath, []string{snapshotPath})
	if err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}

	sidecar, err := archive.WriteChecksumFile(destPath)
	if err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	if err := uploadFile(ctx, t.store, ScopeTSDB, name, destPath, t.logger); err != nil {
		return err
	}
	if err := uploadFile(ctx, t.store, ScopeTSDB, filepath.Base(sidecar), sidecar, t.logger); err != nil {
		return err
	}

	if _, err := PruneRemote(ctx, t.store, ScopeTSDB, t.keep, t.logger); err != nil {
		t.logger.Warn().Err(err).Msg("Remote tsdb retention failed")
	}

	t.logger.Info().
		Str("snapshot", snapshot).
		Int("files", len(manifest.Files)).
		Int64("bytes", manifest.TotalSize).
		Msg("TSDB snapshot uploaded")
	return nil
}
