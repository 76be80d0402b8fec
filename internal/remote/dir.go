// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package remote

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore is a Store backed by a local directory tree.
//
// Document names map to file paths under the root; slashes in names become
// subdirectories. Uploads write to a temp file in the target directory and
// rename into place, so concurrent readers always see a complete document.
type DirStore struct {
	root string
}

// NewDirStore creates a directory-backed store rooted at path.
// The root directory is created if it does not exist.
func NewDirStore(path string) (*DirStore, error) {
	if path == "" {
		return nil, fmt.Errorf("remote: dir store path must not be empty")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("remote: failed to create dir store root: %w", err)
	}
	return &DirStore{root: path}, nil
}

// resolve maps a document name to a file path under the root, rejecting
// names that would escape it.
func (s *DirStore) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("remote: document name must not be empty")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("remote: document name %q escapes store root", name)
	}
	return filepath.Join(s.root, clean), nil
}

// Find returns metadata for the named document, or ErrNotFound.
func (s *DirStore) Find(_ context.Context, name string) (*Object, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("remote: stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	return &Object{Name: name, Size: info.Size(), Updated: info.ModTime()}, nil
}

// Upload writes the document atomically via a temp file and rename.
func (s *DirStore) Upload(_ context.Context, name string, r io.Reader) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("remote: failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("remote: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()        //nolint:errcheck // Best effort cleanup on error
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
	}

	if _, err := io.Copy(tmp, r); err != nil {
		discard()
		return fmt.Errorf("remote: failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		discard()
		return fmt.Errorf("remote: failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("remote: failed to close %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("remote: failed to publish %s: %w", name, err)
	}
	return nil
}

// Delete removes the named document. Missing documents are not an error.
func (s *DirStore) Delete(_ context.Context, name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remote: failed to delete %s: %w", name, err)
	}
	return nil
}

// ReadText returns the full content of the named document.
func (s *DirStore) ReadText(_ context.Context, name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is confined to the store root by resolve
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("remote: read %s: %w", name, err)
	}
	return string(data), nil
}

// List walks the store and returns documents under prefix, sorted by name.
func (s *DirStore) List(_ context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Name: name, Size: info.Size(), Updated: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote: list %q: %w", prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Close is a no-op for the directory store.
func (s *DirStore) Close() error {
	return nil
}
