// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/logs"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// LokiLogsTask collects the lookback window of log records, appends
// them to the daily file, applies local retention, and uploads the
// dated file to the log scope.
type LokiLogsTask struct {
	query    string
	pageSize int
	lookback time.Duration

	logsCfg   config.LogsConfig
	collector Collector
	writer    DailyWriter
	store     remote.Store
	keep      int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLokiLogs wires the log collection task. keep bounds the remote
// generations retained in the log scope.
func NewLokiLogs(cfg config.LokiConfig, logsCfg config.LogsConfig, collector Collector, writer DailyWriter, store remote.Store, keep int, logger zerolog.Logger) *LokiLogsTask {
	query := cfg.Query
	if query == "" {
		query = `{job=~".+"}`
	}
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 1000
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}

	return &LokiLogsTask{
		query:     query,
		pageSize:  pageSize,
		lookback:  lookback,
		logsCfg:   logsCfg,
		collector: collector,
		writer:    writer,
		store:     store,
		keep:      keep,
		logger:    logger.With().Str("task", NameLokiLogs).Logger(),
		now:       time.Now,
	}
}

// Name implements schedule.Task.
func (t *LokiLogsTask) Name() string { return NameLokiLogs }

// DefaultPeriod implements schedule.Task. The lookback window defaults
// to 24h, so daily runs cover the stream without gaps.
func (t *LokiLogsTask) DefaultPeriod() schedule.Period { return schedule.PeriodDaily }

// Run collects and persists one window of log records.
//
// A query failure partway through the window still writes the records
// already collected; the run is then reported as failed so the next
// pass retries, with the dedup index absorbing the overlap. Retention
// failures never fail the run: the collected data is already safe.
func (t *LokiLogsTask) Run(ctx context.Context) error {
	now := t.now()
	windowStart := now.Add(-t.lookback)

	records, collectErr := t.collector.Collect(ctx, windowStart, now, t.query, t.pageSize)
	if collectErr != nil && len(records) == 0 {
		return fmt.Errorf("collect logs: %w", collectErr)
	}
	if collectErr != nil {
		t.logger.Warn().Err(collectErr).Int("records", len(records)).Msg("Collection stopped early, keeping partial window")
	}

	path, err := t.writer.WriteDaily(records, now)
	if err != nil {
		return fmt.Errorf("write daily file: %w", err)
	}

	if _, err := logs.Prune(t.logsCfg.Dir, t.logsCfg.Keep, t.logger); err != nil {
		t.logger.Warn().Err(err).Msg("Local log retention failed")
	}

	if err := uploadFile(ctx, t.store, ScopeLogs, filepath.Base(path), path, t.logger); err != nil {
		return err
	}

	if _, err := PruneRemote(ctx, t.store, ScopeLogs, t.keep, t.logger); err != nil {
		t.logger.Warn().Err(err).Msg("Remote log retention failed")
	}

	t.logger.Info().Int("records", len(records)).Str("file", path).Msg("Log collection complete")
	if collectErr != nil {
		return fmt.Errorf("collect logs: %w", collectErr)
	}
	return nil
}
