// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/auth"
	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/journal"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
)

const (
	testAdminPassword = "correct-horse-battery"
	testJWTSecret     = "api-test-secret-at-least-32-chars-long"
)

// stubRemote is an in-memory remote.Store with an injectable Find error
// for readiness tests.
type stubRemote struct {
	mu      sync.Mutex
	docs    map[string]string
	findErr error
}

func newStubRemote() *stubRemote {
	return &stubRemote{docs: make(map[string]string)}
}

func (s *stubRemote) Find(_ context.Context, name string) (*remote.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	content, ok := s.docs[name]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &remote.Object{Name: name, Size: int64(len(content)), Updated: time.Now()}, nil
}

func (s *stubRemote) Upload(_ context.Context, name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.docs[name] = string(data)
	return nil
}

func (s *stubRemote) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, name)
	return nil
}

func (s *stubRemote) ReadText(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.docs[name]
	if !ok {
		return "", remote.ErrNotFound
	}
	return content, nil
}

func (s *stubRemote) List(_ context.Context, prefix string) ([]remote.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var objects []remote.Object
	for name, content := range s.docs {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, remote.Object{Name: name, Size: int64(len(content))})
		}
	}
	return objects, nil
}

func (s *stubRemote) Close() error { return nil }

// stubTask is a configurable schedule.Task.
type stubTask struct {
	name   string
	period schedule.Period
	run    func(ctx context.Context) error
	runs   atomic.Int32
}

func (s *stubTask) Name() string                   { return s.name }
func (s *stubTask) DefaultPeriod() schedule.Period { return s.period }

func (s *stubTask) Run(ctx context.Context) error {
	s.runs.Add(1)
	if s.run != nil {
		return s.run(ctx)
	}
	return nil
}

type okProbe struct{}

func (okProbe) Healthy(context.Context) bool { return true }

func testSecurity(mode string) config.SecurityConfig {
	return config.SecurityConfig{
		AuthMode:          mode,
		JWTSecret:         testJWTSecret,
		SessionTimeout:    time.Hour,
		AdminUsername:     "admin",
		AdminPassword:     testAdminPassword,
		RateLimitDisabled: true,
	}
}

// apiHarness bundles the full API stack over in-memory collaborators.
type apiHarness struct {
	remote    *stubRemote
	store     *schedule.Store
	registry  *schedule.Registry
	scheduler *schedule.Scheduler
	journal   *journal.MemoryJournal
	authMW    *auth.Middleware
	handler   *Handler
	routes    http.Handler
}

func newAPIHarness(t *testing.T, mode string, tasks ...*stubTask) *apiHarness {
	t.Helper()

	registry := schedule.NewRegistry()
	for _, task := range tasks {
		if err := registry.Register(task); err != nil {
			t.Fatalf("Register(%s) error = %v", task.name, err)
		}
	}

	rem := newStubRemote()
	store := schedule.NewStore(rem, zerolog.Nop())
	scheduler := schedule.NewScheduler(registry, store, okProbe{}, zerolog.Nop())
	jrnl := journal.NewMemory(config.JournalConfig{})

	cfg := testSecurity(mode)
	authMW, err := auth.NewMiddleware(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("auth.NewMiddleware() error = %v", err)
	}

	handler := NewHandler(scheduler, store, registry, jrnl, rem, authMW, "1.2.3-test", zerolog.Nop())
	router := NewRouter(handler, authMW, cfg, zerolog.Nop())

	return &apiHarness{
		remote:    rem,
		store:     store,
		registry:  registry,
		scheduler: scheduler,
		journal:   jrnl,
		authMW:    authMW,
		handler:   handler,
		routes:    router.Routes(),
	}
}

func (h *apiHarness) seed(t *testing.T, sched schedule.Schedule) {
	t.Helper()
	if err := h.store.Save(context.Background(), sched); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}
}

func (h *apiHarness) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.routes.ServeHTTP(rec, req)
	return rec
}

// testEnvelope mirrors APIResponse with the data kept raw so tests can
// decode it into the payload type under test.
type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) testEnvelope {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("envelope success = false, error = %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data payload: %v\ndata: %s", err, env.Data)
	}
	return env
}

func TestHealthLive(t *testing.T) {
	h := newAPIHarness(t, "none")

	rec := h.do(http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data map[string]interface{}
	decodeData(t, rec, &data)
	if data["alive"] != true {
		t.Errorf("alive = %v, want true", data["alive"])
	}
}

func TestHealthReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := newAPIHarness(t, "none")

		rec := h.do(http.MethodGet, "/api/v1/health/ready", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var data map[string]interface{}
		decodeData(t, rec, &data)
		if data["ready"] != true {
			t.Errorf("ready = %v, want true", data["ready"])
		}
	})

	t.Run("remote unreachable", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		h.remote.findErr = fmt.Errorf("backend unavailable")

		rec := h.do(http.MethodGet, "/api/v1/health/ready", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}

		env := decodeEnvelope(t, rec)
		if env.Success {
			t.Error("envelope success = true for unready service")
		}
		if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
			t.Fatalf("error = %+v, want code %s", env.Error, ErrCodeServiceUnavailable)
		}
		details, ok := env.Error.Details.(map[string]interface{})
		if !ok {
			t.Fatalf("error details = %T, want map", env.Error.Details)
		}
		if details["remote_reachable"] != false {
			t.Errorf("remote_reachable = %v, want false", details["remote_reachable"])
		}
	})

	t.Run("journal closed", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		if err := h.journal.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		rec := h.do(http.MethodGet, "/api/v1/health/ready", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("missing schedule document still counts as reachable", func(t *testing.T) {
		// A fresh install has no schedule document yet; the store
		// answering 404 proves it is up.
		h := newAPIHarness(t, "none")

		rec := h.do(http.MethodGet, "/api/v1/health/ready", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 on empty remote", rec.Code)
		}
	})
}

func TestStatus(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	t.Run("merges registered and orphan entries", func(t *testing.T) {
		h := newAPIHarness(t, "none",
			&stubTask{name: "loki-logs", period: schedule.PeriodDaily},
			&stubTask{name: "app-state", period: schedule.PeriodWeekly},
		)
		h.seed(t, schedule.Schedule{
			"loki-logs": {LastUpdate: now.Add(-2 * time.Hour), Period: schedule.PeriodDaily},
			"ghost":     {LastUpdate: now.Add(-90 * 24 * time.Hour), Period: schedule.PeriodDaily},
		})

		rec := h.do(http.MethodGet, "/api/v1/status", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var status StatusResponse
		decodeData(t, rec, &status)

		if status.Version != "1.2.3-test" {
			t.Errorf("version = %q, want 1.2.3-test", status.Version)
		}
		if status.AuthMode != "none" {
			t.Errorf("auth_mode = %q, want none", status.AuthMode)
		}
		if status.LastPass != nil {
			t.Errorf("last_pass = %+v before any pass, want nil", status.LastPass)
		}
		if len(status.Tasks) != 3 {
			t.Fatalf("got %d task states, want 3 (2 registered + 1 orphan)", len(status.Tasks))
		}

		byName := make(map[string]TaskState, len(status.Tasks))
		for _, ts := range status.Tasks {
			byName[ts.Name] = ts
		}

		lokiState := byName["loki-logs"]
		if !lokiState.Registered {
			t.Error("loki-logs not marked registered")
		}
		if lokiState.NextDue == nil {
			t.Fatal("loki-logs nextDue missing")
		}
		wantDue := now.Add(22 * time.Hour)
		if !lokiState.NextDue.Equal(wantDue) {
			t.Errorf("loki-logs nextDue = %v, want %v", lokiState.NextDue, wantDue)
		}

		// Registered but never scheduled: default period, no due time.
		appState := byName["app-state"]
		if appState.Period != schedule.PeriodWeekly {
			t.Errorf("app-state period = %q, want task default WEEKLY", appState.Period)
		}
		if appState.NextDue != nil {
			t.Errorf("app-state nextDue = %v before first pass, want nil", appState.NextDue)
		}

		ghost := byName["ghost"]
		if ghost.Registered {
			t.Error("ghost entry marked registered")
		}
	})

	t.Run("carries the last pass report", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		report := schedule.PassReport{ID: "pass-7", Started: now, Finished: now.Add(time.Minute), Ran: 2}
		if err := h.journal.RecordPass(context.Background(), report); err != nil {
			t.Fatalf("RecordPass() error = %v", err)
		}

		var status StatusResponse
		decodeData(t, h.do(http.MethodGet, "/api/v1/status", ""), &status)

		if status.LastPass == nil || status.LastPass.ID != "pass-7" {
			t.Errorf("last_pass = %+v, want id pass-7", status.LastPass)
		}
	})

	t.Run("journal failure falls back to in-process report", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		if err := h.journal.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		rec := h.do(http.MethodGet, "/api/v1/status", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d with closed journal, want 200", rec.Code)
		}
	})
}

func TestScheduleGet(t *testing.T) {
	h := newAPIHarness(t, "none")
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	h.seed(t, schedule.Schedule{
		"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily, DisableUpdates: true},
	})

	rec := h.do(http.MethodGet, "/api/v1/schedule", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var sched schedule.Schedule
	decodeData(t, rec, &sched)
	entry, ok := sched["loki-logs"]
	if !ok {
		t.Fatalf("schedule missing loki-logs: %+v", sched)
	}
	if entry.Period != schedule.PeriodDaily || !entry.DisableUpdates {
		t.Errorf("entry = %+v, want DAILY disabled", entry)
	}
}

func TestScheduleUpdate(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	t.Run("changes period and keeps other fields", func(t *testing.T) {
		h := newAPIHarness(t, "none", &stubTask{name: "loki-logs", period: schedule.PeriodDaily})
		h.seed(t, schedule.Schedule{
			"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily, DisableUpdates: true},
		})

		rec := h.do(http.MethodPut, "/api/v1/schedule/loki-logs", `{"schedule": "hourly"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		persisted := h.store.Load(context.Background())
		entry := persisted["loki-logs"]
		if entry.Period != schedule.PeriodHourly {
			t.Errorf("period = %q, want HOURLY (lowercase input normalized)", entry.Period)
		}
		if !entry.DisableUpdates {
			t.Error("disableUpdates reset by a period-only update")
		}
		if !entry.LastUpdate.Equal(now) {
			t.Errorf("lastUpdate moved to %v by a schedule edit", entry.LastUpdate)
		}
	})

	t.Run("toggles flags via pointers", func(t *testing.T) {
		h := newAPIHarness(t, "none", &stubTask{name: "loki-logs", period: schedule.PeriodDaily})
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily}})

		rec := h.do(http.MethodPut, "/api/v1/schedule/loki-logs",
			`{"disableUpdates": true, "overrideAppHealthStatus": true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		entry := h.store.Load(context.Background())["loki-logs"]
		if !entry.DisableUpdates || !entry.OverrideAppHealthStatus {
			t.Errorf("entry = %+v, want both flags set", entry)
		}
		if entry.Period != schedule.PeriodDaily {
			t.Errorf("period = %q changed by a flags-only update", entry.Period)
		}
	})

	t.Run("bootstraps a registered task with no entry", func(t *testing.T) {
		h := newAPIHarness(t, "none", &stubTask{name: "fresh", period: schedule.PeriodWeekly})
		h.handler.now = func() time.Time { return now }

		rec := h.do(http.MethodPut, "/api/v1/schedule/fresh", `{"disableUpdates": true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		entry, ok := h.store.Load(context.Background())["fresh"]
		if !ok {
			t.Fatal("bootstrap entry not persisted")
		}
		if entry.Period != schedule.PeriodWeekly {
			t.Errorf("period = %q, want task default WEEKLY", entry.Period)
		}
		if !entry.DisableUpdates {
			t.Error("disableUpdates not applied on bootstrap")
		}
		if !entry.LastUpdate.Equal(now) {
			t.Errorf("bootstrap lastUpdate = %v, want %v", entry.LastUpdate, now)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		h := newAPIHarness(t, "none")

		rec := h.do(http.MethodPut, "/api/v1/schedule/nope", `{"disableUpdates": true}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Error == nil || !strings.Contains(env.Error.Message, "Unknown task") {
			t.Errorf("error = %+v, want unknown-task message", env.Error)
		}
	})

	t.Run("rejects an invalid period", func(t *testing.T) {
		h := newAPIHarness(t, "none", &stubTask{name: "loki-logs", period: schedule.PeriodDaily})
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily}})

		rec := h.do(http.MethodPut, "/api/v1/schedule/loki-logs", `{"schedule": "FORTNIGHTLY"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
		}

		entry := h.store.Load(context.Background())["loki-logs"]
		if entry.Period != schedule.PeriodDaily {
			t.Errorf("rejected update still changed period to %q", entry.Period)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		h := newAPIHarness(t, "none", &stubTask{name: "loki-logs", period: schedule.PeriodDaily})

		rec := h.do(http.MethodPut, "/api/v1/schedule/loki-logs", `{"schedule": `)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestTaskRun(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	t.Run("runs the task and returns its result", func(t *testing.T) {
		task := &stubTask{name: "loki-logs", period: schedule.PeriodDaily}
		h := newAPIHarness(t, "none", task)
		h.handler.now = func() time.Time { return now }
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now.Add(-time.Minute), Period: schedule.PeriodDaily}})

		rec := h.do(http.MethodPost, "/api/v1/tasks/loki-logs/run", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var result schedule.TaskResult
		decodeData(t, rec, &result)
		if result.Outcome != schedule.OutcomeRan {
			t.Errorf("outcome = %s, want ran", result.Outcome)
		}
		if task.runs.Load() != 1 {
			t.Errorf("task ran %d times, want 1", task.runs.Load())
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		h := newAPIHarness(t, "none")

		rec := h.do(http.MethodPost, "/api/v1/tasks/nope/run", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("disabled task refused without force", func(t *testing.T) {
		task := &stubTask{name: "loki-logs", period: schedule.PeriodDaily}
		h := newAPIHarness(t, "none", task)
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily, DisableUpdates: true}})

		rec := h.do(http.MethodPost, "/api/v1/tasks/loki-logs/run", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (refusal reported in the result)", rec.Code)
		}

		var result schedule.TaskResult
		decodeData(t, rec, &result)
		if result.Outcome != schedule.OutcomeDisabled {
			t.Errorf("outcome = %s, want disabled", result.Outcome)
		}
		if task.runs.Load() != 0 {
			t.Error("disabled task ran without force")
		}
	})

	t.Run("force bypasses the disabled flag", func(t *testing.T) {
		task := &stubTask{name: "loki-logs", period: schedule.PeriodDaily}
		h := newAPIHarness(t, "none", task)
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now, Period: schedule.PeriodDaily, DisableUpdates: true}})

		rec := h.do(http.MethodPost, "/api/v1/tasks/loki-logs/run?force=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result schedule.TaskResult
		decodeData(t, rec, &result)
		if result.Outcome != schedule.OutcomeRan {
			t.Errorf("outcome = %s, want ran", result.Outcome)
		}
	})
}

func TestPassRun(t *testing.T) {
	t.Run("returns the pass report", func(t *testing.T) {
		now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		task := &stubTask{name: "loki-logs", period: schedule.PeriodDaily}
		h := newAPIHarness(t, "none", task)
		h.handler.now = func() time.Time { return now }
		h.seed(t, schedule.Schedule{"loki-logs": {LastUpdate: now.Add(-48 * time.Hour), Period: schedule.PeriodDaily}})

		rec := h.do(http.MethodPost, "/api/v1/pass", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var report schedule.PassReport
		decodeData(t, rec, &report)
		if report.Ran != 1 {
			t.Errorf("report.Ran = %d, want 1", report.Ran)
		}
		if report.ID == "" {
			t.Error("pass report has no ID")
		}
	})

	t.Run("conflicts while a pass is in flight", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		slow := &stubTask{
			name:   "slow",
			period: schedule.PeriodDaily,
			run: func(ctx context.Context) error {
				close(started)
				<-release
				return nil
			},
		}
		h := newAPIHarness(t, "none", slow)
		now := time.Now()
		h.seed(t, schedule.Schedule{"slow": {LastUpdate: now.Add(-48 * time.Hour), Period: schedule.PeriodDaily}})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := h.do(http.MethodPost, "/api/v1/pass", ""); rec.Code != http.StatusOK {
				t.Errorf("first pass status = %d, want 200", rec.Code)
			}
		}()

		<-started
		if rec := h.do(http.MethodPost, "/api/v1/pass", ""); rec.Code != http.StatusConflict {
			t.Errorf("concurrent pass status = %d, want 409", rec.Code)
		}
		if rec := h.do(http.MethodPost, "/api/v1/tasks/slow/run", ""); rec.Code != http.StatusConflict {
			t.Errorf("concurrent task run status = %d, want 409", rec.Code)
		}

		close(release)
		wg.Wait()
	})
}

func TestRuns(t *testing.T) {
	seedRecords := func(t *testing.T, h *apiHarness, n int) {
		t.Helper()
		base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			record := journal.RunRecord{
				ID:       fmt.Sprintf("r%d", i),
				PassID:   "pass-1",
				Recorded: base.Add(time.Duration(i) * time.Minute),
				Result:   schedule.TaskResult{Task: "loki-logs", Outcome: schedule.OutcomeRan},
			}
			if err := h.journal.Append(context.Background(), record); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}
	}

	t.Run("returns newest first with pagination meta", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		seedRecords(t, h, 3)

		rec := h.do(http.MethodGet, "/api/v1/runs?limit=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var records []journal.RunRecord
		env := decodeData(t, rec, &records)
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
		if records[0].ID != "r2" || records[1].ID != "r1" {
			t.Errorf("order = [%s %s], want [r2 r1]", records[0].ID, records[1].ID)
		}
		if env.Meta == nil || env.Meta.Pagination == nil {
			t.Fatal("pagination meta missing")
		}
		if env.Meta.Pagination.Count != 2 || !env.Meta.Pagination.HasMore {
			t.Errorf("pagination = %+v, want count 2 hasMore true", env.Meta.Pagination)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		h := newAPIHarness(t, "none")
		seedRecords(t, h, 3)

		rec := h.do(http.MethodGet, "/api/v1/runs", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		env := decodeEnvelope(t, rec)
		if env.Meta == nil || env.Meta.Pagination == nil {
			t.Fatal("pagination meta missing")
		}
		if env.Meta.Pagination.Limit != defaultRunsLimit {
			t.Errorf("limit = %d, want default %d", env.Meta.Pagination.Limit, defaultRunsLimit)
		}
		if env.Meta.Pagination.HasMore {
			t.Error("hasMore = true with 3 of 50 records")
		}
	})

	t.Run("rejects out-of-range limits", func(t *testing.T) {
		h := newAPIHarness(t, "none")

		for _, limit := range []string{"0", "501", "-3"} {
			rec := h.do(http.MethodGet, "/api/v1/runs?limit="+limit, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s status = %d, want 400", limit, rec.Code)
			}
		}
	})
}

func TestLogin(t *testing.T) {
	body := fmt.Sprintf(`{"username": "admin", "password": %q}`, testAdminPassword)

	t.Run("disabled outside jwt mode", func(t *testing.T) {
		for _, mode := range []string{"none", "basic"} {
			h := newAPIHarness(t, mode)
			rec := h.do(http.MethodPost, "/api/v1/auth/login", body)
			if rec.Code != http.StatusForbidden {
				t.Errorf("mode %s: status = %d, want 403", mode, rec.Code)
				continue
			}
			env := decodeEnvelope(t, rec)
			if env.Error == nil || env.Error.Code != "AUTH_DISABLED" {
				t.Errorf("mode %s: error = %+v, want AUTH_DISABLED", mode, env.Error)
			}
		}
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		h := newAPIHarness(t, "jwt")

		rec := h.do(http.MethodPost, "/api/v1/auth/login", `{"username": "admin", "password": "wrong"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Error == nil || env.Error.Code != ErrCodeUnauthorized {
			t.Errorf("error = %+v, want %s", env.Error, ErrCodeUnauthorized)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		h := newAPIHarness(t, "jwt")

		rec := h.do(http.MethodPost, "/api/v1/auth/login", `{"username": "admin"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("issues a usable token and cookie", func(t *testing.T) {
		h := newAPIHarness(t, "jwt")

		rec := h.do(http.MethodPost, "/api/v1/auth/login", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
		}

		var login LoginResponse
		decodeData(t, rec, &login)
		if login.Token == "" {
			t.Fatal("no token in login response")
		}
		if login.Role != auth.RoleAdmin {
			t.Errorf("role = %q, want %q", login.Role, auth.RoleAdmin)
		}
		if !login.ExpiresAt.After(time.Now()) {
			t.Errorf("expires_at = %v, want future", login.ExpiresAt)
		}

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "token" {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("token cookie not set")
		}
		if !cookie.HttpOnly || cookie.Path != "/" {
			t.Errorf("cookie = %+v, want HttpOnly with path /", cookie)
		}

		// The issued token must open the authenticated routes.
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		req.Header.Set("Authorization", "Bearer "+login.Token)
		res := httptest.NewRecorder()
		h.routes.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Errorf("authenticated request with issued token = %d, want 200", res.Code)
		}
	})
}
