// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package schedule

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/remote"
)

// fakeRemote is an in-memory remote.Store with per-operation error
// injection, shared by the store and scheduler tests.
type fakeRemote struct {
	mu      sync.Mutex
	docs    map[string]string
	readErr error
	saveErr error
	saves   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]string)}
}

func (f *fakeRemote) Find(_ context.Context, name string) (*remote.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.docs[name]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &remote.Object{Name: name, Size: int64(len(content)), Updated: time.Now()}, nil
}

func (f *fakeRemote) Upload(_ context.Context, name string, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.docs[name] = string(data)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, name)
	return nil
}

func (f *fakeRemote) ReadText(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", f.readErr
	}
	content, ok := f.docs[name]
	if !ok {
		return "", remote.ErrNotFound
	}
	return content, nil
}

func (f *fakeRemote) List(_ context.Context, prefix string) ([]remote.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var objects []remote.Object
	for name, content := range f.docs {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, remote.Object{Name: name, Size: int64(len(content))})
		}
	}
	return objects, nil
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func TestStoreLoadMissingDocument(t *testing.T) {
	store := NewStore(newFakeRemote(), zerolog.Nop())

	sched := store.Load(context.Background())
	if sched == nil {
		t.Fatal("Load() returned nil, want empty schedule")
	}
	if len(sched) != 0 {
		t.Errorf("Load() returned %d entries, want 0", len(sched))
	}
}

func TestStoreLoadReadFailure(t *testing.T) {
	fake := newFakeRemote()
	fake.readErr = fmt.Errorf("connection refused")
	store := NewStore(fake, zerolog.Nop())

	sched := store.Load(context.Background())
	if len(sched) != 0 {
		t.Errorf("Load() after read failure returned %d entries, want 0", len(sched))
	}
}

func TestStoreLoadCorruptDocument(t *testing.T) {
	fake := newFakeRemote()
	fake.docs[DocumentName] = `{"loki-logs": {"lastUpdate": not-json`
	store := NewStore(fake, zerolog.Nop())

	sched := store.Load(context.Background())
	if len(sched) != 0 {
		t.Errorf("Load() of corrupt document returned %d entries, want 0", len(sched))
	}
}

func TestStoreLoadNullDocument(t *testing.T) {
	fake := newFakeRemote()
	fake.docs[DocumentName] = `null`
	store := NewStore(fake, zerolog.Nop())

	sched := store.Load(context.Background())
	if sched == nil {
		t.Fatal("Load() of null document returned nil map")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(newFakeRemote(), zerolog.Nop())
	ctx := context.Background()

	lastUpdate := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	in := Schedule{
		"loki-logs": {LastUpdate: lastUpdate, Period: PeriodDaily},
		"app-state": {LastUpdate: lastUpdate, Period: PeriodWeekly, DisableUpdates: true},
	}

	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out := store.Load(ctx)
	if len(out) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(out))
	}
	if !out["loki-logs"].LastUpdate.Equal(lastUpdate) {
		t.Errorf("loki-logs lastUpdate = %v, want %v", out["loki-logs"].LastUpdate, lastUpdate)
	}
	if out["app-state"].Period != PeriodWeekly {
		t.Errorf("app-state period = %q, want WEEKLY", out["app-state"].Period)
	}
	if !out["app-state"].DisableUpdates {
		t.Error("app-state disableUpdates lost in round trip")
	}
}

func TestStoreSaveReplacesWholeDocument(t *testing.T) {
	fake := newFakeRemote()
	store := NewStore(fake, zerolog.Nop())
	ctx := context.Background()

	if err := store.Save(ctx, Schedule{"a": {Period: PeriodDaily}, "b": {Period: PeriodDaily}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, Schedule{"a": {Period: PeriodHourly}}); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	out := store.Load(ctx)
	if len(out) != 1 {
		t.Fatalf("Load() returned %d entries, want 1 (whole-document replace)", len(out))
	}
	if out["a"].Period != PeriodHourly {
		t.Errorf("a period = %q, want HOURLY", out["a"].Period)
	}
}

func TestStoreSavePropagatesUploadError(t *testing.T) {
	fake := newFakeRemote()
	fake.saveErr = fmt.Errorf("bucket unavailable")
	store := NewStore(fake, zerolog.Nop())

	if err := store.Save(context.Background(), Schedule{}); err == nil {
		t.Error("Save() with failing upload returned nil, want error")
	}
}
