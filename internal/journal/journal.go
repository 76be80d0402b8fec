// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tabularium/internal/schedule"
)

// ErrClosed indicates the journal has been closed.
var ErrClosed = errors.New("journal: store is closed")

const (
	runPrefix   = "run:"
	seenPrefix  = "seen:"
	lastPassKey = "pass:last"

	defaultSeenTTL = 7 * 24 * time.Hour
	defaultHistory = 512
)

// RunRecord is one journaled task run.
type RunRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// PassID links the run to the pass that dispatched it. Empty for
	// manual single-task triggers.
	PassID string `json:"passId"`

	// Recorded is when the record was written.
	Recorded time.Time `json:"recorded"`

	// Result is the scheduler's verdict for the run.
	Result schedule.TaskResult `json:"result"`
}

// Journal persists run history, the latest pass report, and the
// content-hash dedup index.
//
// Seen and Mark carry no context so the journal can stand in directly
// for the log writer's DedupIndex.
type Journal interface {
	// Append stores one run record.
	Append(ctx context.Context, record RunRecord) error

	// Recent returns up to n run records, newest first.
	Recent(ctx context.Context, n int) ([]RunRecord, error)

	// RecordPass stores the report of a completed pass, replacing the
	// previous one.
	RecordPass(ctx context.Context, report schedule.PassReport) error

	// LastPass returns the most recent pass report, or nil when no pass
	// has completed yet.
	LastPass(ctx context.Context) (*schedule.PassReport, error)

	// Seen reports whether a content hash was marked within the TTL window.
	Seen(hash string) (bool, error)

	// Mark stores a content hash; the mark expires after the configured TTL.
	Mark(hash string) error

	// Close releases journal resources.
	Close() error
}

// runKey builds a run record key whose lexicographic order matches
// chronological order.
func runKey(recorded time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runPrefix, recorded.UnixNano(), id))
}

func seenKey(hash string) []byte {
	return []byte(seenPrefix + hash)
}
