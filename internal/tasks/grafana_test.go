// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package tasks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/monitor"
)

// fakeDashboards serves scripted dashboard listings and renders.
type fakeDashboards struct {
	refs      []monitor.DashboardRef
	listErr   error
	renders   map[string][]byte
	renderErr map[string]error
}

func (f *fakeDashboards) ListDashboards(context.Context) ([]monitor.DashboardRef, error) {
	return f.refs, f.listErr
}

func (f *fakeDashboards) Render(_ context.Context, ref monitor.DashboardRef) ([]byte, error) {
	if err := f.renderErr[ref.UID]; err != nil {
		return nil, err
	}
	return f.renders[ref.UID], nil
}

var dashTestNow = time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)

func newDashboardsTask(source *fakeDashboards, store *memoryStore, keep int) *DashboardsTask {
	task := NewDashboards(source, store, keep, zerolog.Nop())
	task.now = func() time.Time { return dashTestNow }
	return task
}

func TestDashboardsRunUploadsBatch(t *testing.T) {
	source := &fakeDashboards{
		refs: []monitor.DashboardRef{
			{UID: "home", Title: "Home"},
			{UID: "node-exporter", Title: "Node Exporter"},
		},
		renders: map[string][]byte{
			"home":          []byte("png home"),
			"node-exporter": []byte("png node"),
		},
	}
	store := newMemoryStore()

	task := newDashboardsTask(source, store, 5)
	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantObjects(t, store, "dashboards/",
		"dashboards/20260825T140000Z/home.png",
		"dashboards/20260825T140000Z/node-exporter.png",
	)
	if !bytes.Equal(store.contents["dashboards/20260825T140000Z/home.png"], []byte("png home")) {
		t.Error("uploaded render does not match the source image")
	}
}

func TestDashboardsNothingToExport(t *testing.T) {
	store := newMemoryStore()
	task := newDashboardsTask(&fakeDashboards{}, store, 5)

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	wantObjects(t, store, "dashboards/")
}

func TestDashboardsListFailure(t *testing.T) {
	source := &fakeDashboards{listErr: errors.New("grafana down")}
	task := newDashboardsTask(source, newMemoryStore(), 5)

	if err := task.Run(context.Background()); err == nil {
		t.Fatal("Run() with failing listing should fail")
	}
}

func TestDashboardsPartialFailureSkipsRetention(t *testing.T) {
	source := &fakeDashboards{
		refs: []monitor.DashboardRef{
			{UID: "home"},
			{UID: "broken"},
			{UID: "loki"},
		},
		renders: map[string][]byte{
			"home": []byte("png home"),
			"loki": []byte("png loki"),
		},
		renderErr: map[string]error{"broken": errors.New("renderer timeout")},
	}
	store := newMemoryStore()
	stale := "dashboards/20260818T120000Z/home.png"
	store.put(stale, []byte("png old"), time.Now().Add(-7*24*time.Hour))

	task := newDashboardsTask(source, store, 1)
	err := task.Run(context.Background())
	if err == nil {
		t.Fatal("Run() with a failed render should fail")
	}
	if !strings.Contains(err.Error(), "exported 2 of 3") {
		t.Errorf("error = %v", err)
	}

	// The healthy renders landed, and the partial batch did not evict
	// the previous complete generation.
	wantObjects(t, store, "dashboards/",
		stale,
		"dashboards/20260825T140000Z/home.png",
		"dashboards/20260825T140000Z/loki.png",
	)
}

func TestDashboardsRetentionAfterCleanBatch(t *testing.T) {
	source := &fakeDashboards{
		refs:    []monitor.DashboardRef{{UID: "home"}},
		renders: map[string][]byte{"home": []byte("png home")},
	}
	store := newMemoryStore()
	base := time.Now().Add(-14 * 24 * time.Hour)
	store.put("dashboards/20260811T120000Z/home.png", []byte("png"), base)
	store.put("dashboards/20260818T120000Z/home.png", []byte("png"), base.Add(7*24*time.Hour))

	task := newDashboardsTask(source, store, 1)
	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	wantObjects(t, store, "dashboards/", "dashboards/20260825T140000Z/home.png")
}

func TestDashboardsHonorsContext(t *testing.T) {
	source := &fakeDashboards{
		refs:    []monitor.DashboardRef{{UID: "home"}},
		renders: map[string][]byte{"home": []byte("png home")},
	}
	store := newMemoryStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := newDashboardsTask(source, store, 5)
	if err := task.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	wantObjects(t, store, "dashboards/")
}
