// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
	"github.com/tomtom215/tabularium/internal/monitor"
)

// Record is one logical log record: a display timestamp and a body
// that may span multiple source lines (continuations folded in with
// newlines).
type Record struct {
	Timestamp time.Time
	Text      string
}

// Aggregator assembles logical records from a paged query source.
type Aggregator struct {
	source monitor.QuerySource
	logger zerolog.Logger
}

// NewAggregator creates an aggregator reading from source.
func NewAggregator(source monitor.QuerySource, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		logger: logger.With().Str("component", "log-aggregator").Logger(),
	}
}

// Collect fetches every entry in [windowStart, windowEnd) matching
// filterExpr and reassembles them into logical records, newest first.
//
// Pagination walks backward: each page is fetched with the window's
// current end bound and pageSize as the limit; a full page moves the
// end bound to the oldest timestamp seen and a short page ends the
// loop. A query failure or context cancellation stops pagination and
// returns everything accumulated so far together with the error;
// partial results are never discarded.
//
// Entries repeated across page boundaries (same source timestamp and
// raw line) are folded once.
func (a *Aggregator) Collect(ctx context.Context, windowStart, windowEnd time.Time, filterExpr string, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	records, err := a.paginate(ctx, windowStart, windowEnd, filterExpr, pageSize)

	// Canonical output order, applied to partial results too: the
	// writer appends whatever was collected.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	metrics.LogRecordsCollected.Add(float64(len(records)))
	return records, err
}

func (a *Aggregator) paginate(ctx context.Context, windowStart, windowEnd time.Time, filterExpr string, pageSize int) ([]Record, error) {
	var (
		records    []Record
		builder    recordBuilder
		seen       = make(map[string]struct{})
		currentEnd = windowEnd
		pages      int
	)

	for {
		if err := ctx.Err(); err != nil {
			a.logger.Info().Int("pages", pages).Int("records", len(records)).Msg("Log collection cancelled, keeping partial results")
			return records, err
		}

		page, err := a.source.QueryRange(ctx, filterExpr, pageSize, windowStart, currentEnd)
		if err != nil {
			metrics.LogQueryErrors.Inc()
			a.logger.Warn().Err(err).Int("pages", pages).Int("records", len(records)).Msg("Log query failed, keeping partial results")
			return records, fmt.Errorf("page %d query failed: %w", pages+1, err)
		}
		pages++
		metrics.LogPagesFetched.Inc()

		// Pages arrive newest-first but records assemble
		// chronologically, so continuation lines follow the head line
		// they belong to: walk the page oldest-first.
		oldest := currentEnd
		for i := len(page) - 1; i >= 0; i-- {
			entry := page[i]
			if entry.Timestamp.Before(oldest) {
				oldest = entry.Timestamp
			}

			key := fmt.Sprintf("%d|%s", entry.Timestamp.UnixNano(), entry.Line)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			records = builder.feed(records, entry)
		}
		// A record never spans pages: close any open buffer here.
		records = builder.flush(records)

		if len(page) < pageSize {
			a.logger.Debug().Int("pages", pages).Int("records", len(records)).Msg("Log collection complete")
			return records, nil
		}
		if !oldest.Before(currentEnd) {
			// An inclusive-end source can return a full page that does
			// not move the window; step past it instead of spinning.
			oldest = currentEnd.Add(-time.Nanosecond)
		}
		currentEnd = oldest
	}
}

// recordBuilder folds continuation lines into the record under
// construction.
type recordBuilder struct {
	lines []string
	ts    time.Time
}

// feed processes one source entry and returns the records slice with
// any record completed by this entry appended.
func (b *recordBuilder) feed(records []Record, entry monitor.LogEntry) []Record {
	ts, body, ok := parseLeadingTimestamp(stripNoise(entry.Line))
	if !ok {
		ts = entry.Timestamp
	}

	if isContinuation(body) && len(b.lines) > 0 {
		b.lines = append(b.lines, body)
		return records
	}

	records = b.flush(records)
	b.lines = append(b.lines, body)
	b.ts = ts
	return records
}

// flush completes the in-progress record, if any.
func (b *recordBuilder) flush(records []Record) []Record {
	if len(b.lines) == 0 {
		return records
	}
	records = append(records, Record{
		Timestamp: b.ts,
		Text:      strings.Join(b.lines, "\n"),
	})
	b.lines = b.lines[:0]
	return records
}
