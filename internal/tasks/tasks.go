// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/archive"
	"github.com/tomtom215/tabularium/internal/logs"
	"github.com/tomtom215/tabularium/internal/metrics"
	"github.com/tomtom215/tabularium/internal/remote"
)

// Task names as they appear in the registry, the schedule document,
// the journal, and the API.
const (
	NameLokiLogs   = "loki-logs"
	NameAppState   = "app-state"
	NameTSDB       = "prometheus-tsdb"
	NameDashboards = "grafana-dashboards"
)

// Remote store scope prefixes, one per task family.
const (
	ScopeLogs       = "logs"
	ScopeState      = "state"
	ScopeTSDB       = "tsdb"
	ScopeDashboards = "dashboards"
)

// stampLayout names archive generations. UTC, second precision, safe in
// both filenames and object names.
const stampLayout = "20060102T150405Z"

// Collector pulls a time window of log records from the query source.
// Satisfied by logs.Aggregator.
type Collector interface {
	Collect(ctx context.Context, windowStart, windowEnd time.Time, filterExpr string, pageSize int) ([]logs.Record, error)
}

// DailyWriter appends records to the dated output file.
// Satisfied by logs.Writer.
type DailyWriter interface {
	WriteDaily(records []logs.Record, now time.Time) (string, error)
}

// Archiver bundles local paths into a tar.gz with an embedded manifest.
// Satisfied by archive.Builder.
type Archiver interface {
	Create(ctx context.Context, destPath string, paths []string) (*archive.Manifest, error)
}

// uploadFile streams a local file into the remote store under
// scope/name and records the upload metrics.
func uploadFile(ctx context.Context, store remote.Store, scope, name, path string, logger zerolog.Logger) error {
	file, err := os.Open(path) //nolint:gosec // G304: path is produced by this task's own staging
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // Read-only file

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	object := scope + "/" + name
	err = store.Upload(ctx, object, file)
	metrics.RecordUpload(scope, info.Size(), err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}

	logger.Debug().Str("object", object).Int64("bytes", info.Size()).Msg("Uploaded file")
	return nil
}

// uploadBytes uploads an in-memory payload under scope/name.
func uploadBytes(ctx context.Context, store remote.Store, scope, name string, data []byte, logger zerolog.Logger) error {
	object := scope + "/" + name
	err := store.Upload(ctx, object, bytes.NewReader(data))
	metrics.RecordUpload(scope, int64(len(data)), err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}

	logger.Debug().Str("object", object).Int("bytes", len(data)).Msg("Uploaded payload")
	return nil
}

// removeStaged deletes staging artifacts once their upload settled.
// Missing files are fine: an upload error may have left nothing behind.
func removeStaged(logger zerolog.Logger, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove staged file")
		}
	}
}
