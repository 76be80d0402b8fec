// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/metrics"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// MemoryJournal keeps run history and the dedup index in process.
// Used by tests and by deployments that run without a journal directory;
// contents are lost on restart.
type MemoryJournal struct {
	mu       sync.RWMutex
	records  []RunRecord
	lastPass *schedule.PassReport
	seen     map[string]time.Time // hash -> mark expiry
	seenTTL  time.Duration
	history  int
	closed   bool
}

// NewMemory creates an in-memory journal.
func NewMemory(cfg config.JournalConfig) *MemoryJournal {
	m := &MemoryJournal{
		seen:    make(map[string]time.Time),
		seenTTL: cfg.SeenTTL,
		history: cfg.History,
	}
	if m.seenTTL <= 0 {
		m.seenTTL = defaultSeenTTL
	}
	if m.history <= 0 {
		m.history = defaultHistory
	}
	return m
}

// Append stores one run record and trims history beyond the retention count.
func (m *MemoryJournal) Append(ctx context.Context, record RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if record.Recorded.IsZero() {
		record.Recorded = time.Now().UTC()
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	m.records = append(m.records, record)
	if len(m.records) > m.history {
		m.records = m.records[len(m.records)-m.history:]
	}

	metrics.JournalWrites.WithLabelValues("success").Inc()
	return nil
}

// Recent returns up to n run records, newest first.
func (m *MemoryJournal) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	sorted := make([]RunRecord, len(m.records))
	copy(sorted, m.records)
	sort.SliceStable(sorted, func(i, k int) bool {
		return sorted[i].Recorded.After(sorted[k].Recorded)
	})

	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// RecordPass stores the report of a completed pass, replacing the previous one.
func (m *MemoryJournal) RecordPass(ctx context.Context, report schedule.PassReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.lastPass = &report
	metrics.JournalWrites.WithLabelValues("success").Inc()
	return nil
}

// LastPass returns the most recent pass report, or nil when no pass has
// completed yet.
func (m *MemoryJournal) LastPass(ctx context.Context) (*schedule.PassReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.lastPass == nil {
		return nil, nil
	}

	report := *m.lastPass
	return &report, nil
}

// Seen reports whether a content hash was marked within the TTL window.
func (m *MemoryJournal) Seen(hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	expiry, ok := m.seen[hash]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// Mark stores a content hash with the configured TTL.
func (m *MemoryJournal) Mark(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.seen[hash] = time.Now().Add(m.seenTTL)
	return nil
}

// Close discards the journal contents. Safe to call twice.
func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	m.seen = nil
	m.lastPass = nil
	return nil
}
