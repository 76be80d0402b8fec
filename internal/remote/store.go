// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package remote provides the archive destination abstraction.
//
// A Store holds named documents: small text documents (the schedule) and
// large binary archives (state bundles, TSDB snapshots). Names may contain
// slashes, which backends map to directories or object name prefixes.
// Two backends exist: a local directory store for testing and NFS-style
// deployments, and a Google Cloud Storage store for durable off-host
// archival.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tomtom215/tabularium/internal/config"
)

// ErrNotFound is returned when a named document does not exist in the store.
var ErrNotFound = errors.New("remote: document not found")

// Object describes a stored document.
type Object struct {
	// Name is the full document name within the store.
	Name string
	// Size is the content length in bytes.
	Size int64
	// Updated is the last modification time.
	Updated time.Time
}

// Store abstracts the archive destination.
//
// Implementations must be safe for concurrent use. All operations take a
// context and honor its cancellation where the backend allows it.
type Store interface {
	// Find returns metadata for the named document, or ErrNotFound.
	Find(ctx context.Context, name string) (*Object, error)

	// Upload replaces the named document with the contents of r.
	// The write is atomic: readers never observe a partial document.
	Upload(ctx context.Context, name string, r io.Reader) error

	// Delete removes the named document. Deleting a document that does
	// not exist is not an error.
	Delete(ctx context.Context, name string) error

	// ReadText returns the full content of the named document as a
	// string, or ErrNotFound.
	ReadText(ctx context.Context, name string) (string, error)

	// List returns all documents whose name starts with prefix,
	// sorted by name.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Close releases backend resources.
	Close() error
}

// New constructs the Store selected by cfg.Backend.
func New(ctx context.Context, cfg config.RemoteConfig) (Store, error) {
	switch cfg.Backend {
	case "dir":
		return NewDirStore(cfg.Dir.Path)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("remote: unknown backend %q", cfg.Backend)
	}
}

// SortNewestFirst orders objects by modification time, newest first.
// Ties break by name descending so generation-stamped names stay stable.
func SortNewestFirst(objects []Object) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].Updated.Equal(objects[j].Updated) {
			return objects[i].Updated.After(objects[j].Updated)
		}
		return objects[i].Name > objects[j].Name
	})
}
