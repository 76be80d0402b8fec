// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
)

// Prune deletes dated log files beyond the keep newest, judged by
// modification time, and returns how many were removed. Individual
// delete failures are logged and do not stop the sweep.
func Prune(dir string, keep int, logger zerolog.Logger) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("retention keep must be at least 1, got %d", keep)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "logs-*.log"))
	if err != nil {
		return 0, fmt.Errorf("failed to list log files: %w", err)
	}

	type datedFile struct {
		path  string
		mtime time.Time
	}

	files := make([]datedFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Skipping unstatable log file")
			continue
		}
		files = append(files, datedFile{path: path, mtime: info.ModTime()})
	}

	if len(files) <= keep {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	deleted := 0
	for _, stale := range files[keep:] {
		if err := os.Remove(stale.path); err != nil {
			logger.Warn().Err(err).Str("file", stale.path).Msg("Failed to delete old log file")
			continue
		}
		deleted++
		metrics.RetentionDeletions.WithLabelValues("local").Inc()
		logger.Debug().Str("file", stale.path).Msg("Old log file deleted")
	}

	return deleted, nil
}
