// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tabularium/internal/remote"
)

// memoryStore is a scriptable in-memory remote.Store for task tests.
type memoryStore struct {
	contents  map[string][]byte
	updated   map[string]time.Time
	uploadErr error
	listErr   error
	deleteErr map[string]error
	deletes   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contents: make(map[string][]byte),
		updated:  make(map[string]time.Time),
	}
}

// put seeds an object with an explicit modification time.
func (s *memoryStore) put(name string, content []byte, updated time.Time) {
	s.contents[name] = content
	s.updated[name] = updated
}

// names returns the sorted object names under prefix.
func (s *memoryStore) names(prefix string) []string {
	var out []string
	for name := range s.contents {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *memoryStore) Find(_ context.Context, name string) (*remote.Object, error) {
	content, ok := s.contents[name]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &remote.Object{Name: name, Size: int64(len(content)), Updated: s.updated[name]}, nil
}

func (s *memoryStore) Upload(_ context.Context, name string, r io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.put(name, content, time.Now())
	return nil
}

func (s *memoryStore) Delete(_ context.Context, name string) error {
	if err := s.deleteErr[name]; err != nil {
		return err
	}
	delete(s.contents, name)
	delete(s.updated, name)
	s.deletes = append(s.deletes, name)
	return nil
}

func (s *memoryStore) ReadText(_ context.Context, name string) (string, error) {
	content, ok := s.contents[name]
	if !ok {
		return "", remote.ErrNotFound
	}
	return string(content), nil
}

func (s *memoryStore) List(_ context.Context, prefix string) ([]remote.Object, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var objects []remote.Object
	for name, content := range s.contents {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		objects = append(objects, remote.Object{Name: name, Size: int64(len(content)), Updated: s.updated[name]})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (s *memoryStore) Close() error { return nil }

// archiveEntries lists the entry names of an uploaded tar.gz payload.
func archiveEntries(t *testing.T, data []byte) []string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next() error = %v", err)
		}
		names = append(names, header.Name)
	}
	return names
}

// wantObjects fails the test unless the store holds exactly the given
// names under prefix.
func wantObjects(t *testing.T, store *memoryStore, prefix string, want ...string) {
	t.Helper()
	got := store.names(prefix)
	if len(got) != len(want) {
		t.Fatalf("objects under %s = %v, want %v", prefix, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("objects under %s = %v, want %v", prefix, got, want)
		}
	}
}
