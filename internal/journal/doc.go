// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package journal persists run history and the log dedup index.
//
// Two implementations share the Journal interface: BadgerJournal keeps
// records in a BadgerDB directory and survives restarts, MemoryJournal
// keeps everything in process for tests and journal-less deployments.
//
// Key layout (BadgerDB):
//
//	run:<nanos>:<uuid>  one completed task run, zero-padded so
//	                    lexicographic order matches chronological order
//	seen:<sha256>       content-hash dedup mark, expires via TTL
//	pass:last           the most recent pass report
//
// Seen and Mark satisfy the log writer's DedupIndex contract. Recorder
// adapts the scheduler's observer callbacks onto a Journal.
package journal
