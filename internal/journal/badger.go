// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/metrics"
	"github.com/tomtom215/tabularium/internal/schedule"
)

// BadgerJournal is the BadgerDB-backed journal for daemon deployments.
type BadgerJournal struct {
	db      *badger.DB
	seenTTL time.Duration
	history int
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal database at cfg.Path.
func Open(cfg config.JournalConfig, logger zerolog.Logger) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Run records and hashes are tiny; keep the value log small
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	j := &BadgerJournal{
		db:      db,
		seenTTL: cfg.SeenTTL,
		history: cfg.History,
		logger:  logger.With().Str("component", "journal").Logger(),
	}
	if j.seenTTL <= 0 {
		j.seenTTL = defaultSeenTTL
	}
	if j.history <= 0 {
		j.history = defaultHistory
	}
	return j, nil
}

// guard returns ErrClosed once Close has run.
func (j *BadgerJournal) guard() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// Append stores one run record and trims history beyond the retention count.
func (j *BadgerJournal) Append(ctx context.Context, record RunRecord) error {
	if err := j.guard(); err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return err
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

	data, err := json.Marshal(record)
	if err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("marshal run record: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(record.Recorded, record.ID), data)
	})
	if err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("store run record: %w", err)
	}
	metrics.JournalWrites.WithLabelValues("success").Inc()

	if removed, err := j.trimHistory(); err != nil {
		j.logger.Warn().Err(err).Msg("Run history trim failed")
	} else if removed > 0 {
		j.logger.Debug().Int("removed", removed).Msg("Trimmed run history")
	}

	return nil
}

// trimHistory deletes the oldest run records beyond the retention count.
func (j *BadgerJournal) trimHistory() (int, error) {
	var keysToDelete [][]byte

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // We only need the keys
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := make([]byte, len(it.Item().Key()))
			copy(key, it.Item().Key())
			keys = append(keys, key)
		}
		if len(keys) > j.history {
			keysToDelete = keys[:len(keys)-j.history]
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keysToDelete) == 0 {
		return 0, nil
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keysToDelete), nil
}

// Recent returns up to n run records, newest first.
func (j *BadgerJournal) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if err := j.guard(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	var records []RunRecord
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		// Reverse iteration starts just past the newest run key
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < n; it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var record RunRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				// Skip records we can't parse
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// RecordPass stores the report of a completed pass, replacing the previous one.
func (j *BadgerJournal) RecordPass(ctx context.Context, report schedule.PassReport) error {
	if err := j.guard(); err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("marshal pass report: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastPassKey), data)
	})
	if err != nil {
		metrics.JournalWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("store pass report: %w", err)
	}
	metrics.JournalWrites.WithLabelValues("success").Inc()
	return nil
}

// LastPass returns the most recent pass report, or nil when no pass has
// completed yet.
func (j *BadgerJournal) LastPass(ctx context.Context) (*schedule.PassReport, error) {
	if err := j.guard(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report *schedule.PassReport
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastPassKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r schedule.PassReport
			if err := json.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("decode pass report: %w", err)
			}
			report = &r
			return nil
		})
	})
	return report, err
}

// Seen reports whether a content hash was marked within the TTL window.
// BadgerDB drops expired entries on read, so an expired mark reads as unseen.
func (j *BadgerJournal) Seen(hash string) (bool, error) {
	if err := j.guard(); err != nil {
		return false, err
	}

	var seen bool
	err := j.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(seenKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	return seen, err
}

// Mark stores a content hash with the configured TTL.
func (j *BadgerJournal) Mark(hash string) error {
	if err := j.guard(); err != nil {
		return err
	}

	return j.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(seenKey(hash), []byte(time.Now().UTC().Format(time.RFC3339))).WithTTL(j.seenTTL)
		return txn.SetEntry(e)
	})
}

// Close closes the underlying database. Safe to call twice.
func (j *BadgerJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
