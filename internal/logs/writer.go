// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package logs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
)

// recordTimestampLayout is the display format for written records.
const recordTimestampLayout = "2006-01-02 15:04:05.000"

// DedupIndex remembers content hashes of records already written so a
// re-collection within the retention window can skip them. Entries are
// expected to expire on their own (TTL), matching log retention.
type DedupIndex interface {
	Seen(hash string) (bool, error)
	Mark(hash string) error
}

// Writer appends records to one dated file per day.
//
// Files are append-only: a second collection on the same day adds a
// new block after the existing content and never rewrites it. Without
// a DedupIndex that means re-collected records are appended again;
// with one, records whose hash is already marked are skipped.
type Writer struct {
	dir    string
	dedup  DedupIndex
	logger zerolog.Logger
}

// NewWriter creates a writer for dir. dedup may be nil to disable
// content-hash deduplication.
func NewWriter(dir string, dedup DedupIndex, logger zerolog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		dedup:  dedup,
		logger: logger.With().Str("component", "log-writer").Logger(),
	}
}

// FileName returns the dated file name for day: logs-<dd-MM>.log.
func FileName(day time.Time) string {
	return fmt.Sprintf("logs-%s.log", day.Format("02-01"))
}

// WriteDaily appends records to the dated file for now's day, creating
// it if needed, and returns the file path. Records are written in the
// order given (the aggregator's canonical newest-first order); each
// record is one line per body line, the first prefixed with the
// display timestamp.
func (w *Writer) WriteDaily(records []Record, now time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(w.dir, FileName(now))

	//nolint:gosec // G304: path is derived from the configured log directory
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	written := 0
	for _, record := range records {
		if w.skipDuplicate(record) {
			continue
		}
		line := fmt.Sprintf("%s %s\n", record.Timestamp.Format(recordTimestampLayout), record.Text)
		if _, err := file.WriteString(line); err != nil {
			//nolint:errcheck // Best effort cleanup on error
			file.Close()
			return "", fmt.Errorf("failed to append log record: %w", err)
		}
		written++
	}

	if err := file.Sync(); err != nil {
		//nolint:errcheck // Best effort cleanup on error
		file.Close()
		return "", fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close log file: %w", err)
	}

	w.logger.Debug().Str("file", path).Int("records", written).Int("skipped", len(records)-written).Msg("Daily log file written")
	return path, nil
}

// skipDuplicate consults the dedup index. Index failures never block a
// write: on error the record is written anyway.
func (w *Writer) skipDuplicate(record Record) bool {
	if w.dedup == nil {
		return false
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", record.Timestamp.UnixNano(), record.Text)))
	hash := hex.EncodeToString(sum[:])

	seen, err := w.dedup.Seen(hash)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Dedup index read failed, writing record anyway")
		return false
	}
	if seen {
		metrics.DedupSkips.Inc()
		return true
	}

	if err := w.dedup.Mark(hash); err != nil {
		w.logger.Warn().Err(err).Msg("Dedup index write failed")
	}
	return false
}
