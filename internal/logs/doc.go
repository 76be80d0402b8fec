// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

/*
Package logs turns a flat stream of timestamped log lines into dated,
append-only archive files.

The pipeline has three stages:

	QuerySource ──> Aggregator.Collect ──> Writer.WriteDaily ──> Prune
	 (paged,         reassembles multi-     logs-<dd-MM>.log      keep N
	  newest         line records, dedups    append-only          newest
	  first)         and orders them         newest-first         files

Collect pages backward through the query window: each page's oldest
timestamp becomes the next query's end bound until a short page signals
the window is exhausted. Continuation lines (stack frames, wrapped
output) are folded into the preceding record, so one record may span
many source lines. Query failures and context cancellation stop
pagination cleanly and return everything accumulated so far; partial
results are never discarded.

The writer appends newest-first blocks to one file per day and never
rewrites existing content. Repeated collections within the same day
append duplicates unless a DedupIndex is supplied, which skips records
whose content hash was already recorded. Retention deletes all but the
newest N dated files.
*/
package logs
