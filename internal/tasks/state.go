// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/archive"
	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// ErrNoStatePaths is returned by the app-state task when nothing is
// configured to archive.
var ErrNoStatePaths = errors.New("tasks: no state paths configured")

// AppStateTask bundles the configured state paths into a tar.gz with a
// checksum sidecar and uploads both to the state scope. The archive is
// staged under the work directory and removed after upload.
type AppStateTask struct {
	cfg      config.StateConfig
	archiver Archiver
	store    remote.Store
	keep     int
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAppState wires the state archive task.
func NewAppState(cfg config.StateConfig, archiver Archiver, store remote.Store, keep int, logger zerolog.Logger) *AppStateTask {
	return &AppStateTask{
		cfg:      cfg,
		archiver: archiver,
		store:    store,
		keep:     keep,
		logger:   logger.With().Str("task", NameAppState).Logger(),
		now:      time.Now,
	}
}

// Name implements schedule.Task.
func (t *AppStateTask) Name() string { return NameAppState }

// DefaultPeriod implements schedule.Task.
func (t *AppStateTask) DefaultPeriod() schedule.Period { return schedule.PeriodDaily }

// Run builds and uploads one state archive generation.
func (t *AppStateTask) Run(ctx context.Context) error {
	if len(t.cfg.Paths) == 0 {
		return ErrNoStatePaths
	}

	name := fmt.Sprintf("state-%s.tar.gz", t.now().UTC().Format(stampLayout))
	destPath := filepath.Join(t.cfg.WorkDir, name)

	defer removeStaged(t.logger, destPath, destPath+".sha256")

	manifest, err := t.archiver.Create(ctx, destPath, t.cfg.Paths)
	if err != nil {
		return fmt.Errorf("create state archive: %w", err)
	}

	sidecar, err := archive.WriteChecksumFile(destPath)
	if err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	if err := uploadFile(ctx, t.store, ScopeState, name, destPath, t.logger); err != nil {
		return err
	}
	if err := uploadFile(ctx, t.store, ScopeState, filepath.Base(sidecar), sidecar, t.logger); err != nil {
		return err
	}

	if _, err := PruneRemote(ctx, t.store, ScopeState, t.keep, t.logger); err != nil {
		t.logger.Warn().Err(err).Msg("Remote state retention failed")
	}

	t.logger.Info().
		Str("archive", name).
		Int("files", len(manifest.Files)).
		Int64("bytes", manifest.TotalSize).
		Msg("State archive uploaded")
	return nil
}
