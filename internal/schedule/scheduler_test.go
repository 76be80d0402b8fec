// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeTask is a configurable Task for scheduler tests.
type fakeTask struct {
	name   string
	period Period
	run    func(ctx context.Context) error
	runs   atomic.Int32
}

func (f *fakeTask) Name() string          { return f.name }
func (f *fakeTask) DefaultPeriod() Period { return f.period }

func (f *fakeTask) Run(ctx context.Context) error {
	f.runs.Add(1)
	if f.run != nil {
		return f.run(ctx)
	}
	return nil
}

func (f *fakeTask) runCount() int { return int(f.runs.Load()) }

// stubProbe is a HealthProbe with a fixed answer and a call counter.
type stubProbe struct {
	healthy bool
	calls   atomic.Int32
}

func (p *stubProbe) Healthy(context.Context) bool {
	p.calls.Add(1)
	return p.healthy
}

// testHarness bundles the scheduler with its collaborators.
type testHarness struct {
	scheduler *Scheduler
	registry  *Registry
	store     *Store
	remote    *fakeRemote
	probe     *stubProbe
}

func newHarness(t *testing.T, healthy bool, tasks ...*fakeTask) *testHarness {
	t.Helper()
	registry := NewRegistry()
	for _, task := range tasks {
		if err := registry.Register(task); err != nil {
			t.Fatalf("Register(%s) error = %v", task.name, err)
		}
	}
	fake := newFakeRemote()
	store := NewStore(fake, zerolog.Nop())
	probe := &stubProbe{healthy: healthy}
	return &testHarness{
		scheduler: NewScheduler(registry, store, probe, zerolog.Nop()),
		registry:  registry,
		store:     store,
		remote:    fake,
		probe:     probe,
	}
}

// seed persists an initial schedule document.
func (h *testHarness) seed(t *testing.T, sched Schedule) {
	t.Helper()
	if err := h.store.Save(context.Background(), sched); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}
}

func resultFor(t *testing.T, report *PassReport, task string) TaskResult {
	t.Helper()
	for _, r := range report.Results {
		if r.Task == task {
			return r
		}
	}
	t.Fatalf("no result for task %q in %+v", task, report.Results)
	return TaskResult{}
}

func TestRunPassRunsDueTask(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	h := newHarness(t, true, task)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-25 * time.Hour), Period: PeriodDaily}})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if task.runCount() != 1 {
		t.Errorf("task ran %d times, want 1", task.runCount())
	}
	if got := resultFor(t, report, "loki-logs"); got.Outcome != OutcomeRan {
		t.Errorf("outcome = %s, want ran", got.Outcome)
	}
	if report.Ran != 1 || report.Failed != 0 {
		t.Errorf("report counts = ran %d failed %d, want 1, 0", report.Ran, report.Failed)
	}

	// Success moves lastUpdate to the pass reference time, persisted.
	persisted := h.store.Load(context.Background())
	if !persisted["loki-logs"].LastUpdate.Equal(now) {
		t.Errorf("persisted lastUpdate = %v, want %v", persisted["loki-logs"].LastUpdate, now)
	}
}

func TestRunPassDueBoundary(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lastUpdate time.Time
		want       RunOutcome
	}{
		{"exactly one period ago is due", now.Add(-24 * time.Hour), OutcomeRan},
		{"one nanosecond short is not due", now.Add(-24*time.Hour + time.Nanosecond), OutcomeNotDue},
		{"well overdue is due", now.Add(-72 * time.Hour), OutcomeRan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &fakeTask{name: "app-state", period: PeriodDaily}
			h := newHarness(t, true, task)
			h.seed(t, Schedule{"app-state": {LastUpdate: tt.lastUpdate, Period: PeriodDaily}})

			report, err := h.scheduler.RunPass(context.Background(), now)
			if err != nil {
				t.Fatalf("RunPass() error = %v", err)
			}
			if got := resultFor(t, report, "app-state"); got.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", got.Outcome, tt.want)
			}
		})
	}
}

func TestRunPassFailureLeavesLastUpdateUnchanged(t *testing.T) {
	task := &fakeTask{
		name:   "app-state",
		period: PeriodDaily,
		run:    func(context.Context) error { return fmt.Errorf("archive failed") },
	}
	h := newHarness(t, true, task)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	lastUpdate := now.Add(-30 * time.Hour)
	h.seed(t, Schedule{"app-state": {LastUpdate: lastUpdate, Period: PeriodDaily}})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	got := resultFor(t, report, "app-state")
	if got.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", got.Outcome)
	}
	if got.Error != "archive failed" {
		t.Errorf("result error = %q, want archive failed", got.Error)
	}

	// Task stays due: retry happens naturally on the next pass.
	persisted := h.store.Load(context.Background())
	if !persisted["app-state"].LastUpdate.Equal(lastUpdate) {
		t.Errorf("lastUpdate moved on failure: %v, want %v", persisted["app-state"].LastUpdate, lastUpdate)
	}
}

func TestRunPassDisabledTaskSkipped(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	h := newHarness(t, true, task)
	now := time.Now()
	h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-48 * time.Hour), Period: PeriodDaily, DisableUpdates: true}})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if task.runCount() != 0 {
		t.Errorf("disabled task ran %d times, want 0", task.runCount())
	}
	if got := resultFor(t, report, "loki-logs"); got.Outcome != OutcomeDisabled {
		t.Errorf("outcome = %s, want disabled", got.Outcome)
	}
	// Disabled tasks never consult the probe.
	if h.probe.calls.Load() != 0 {
		t.Errorf("probe called %d times for a disabled task, want 0", h.probe.calls.Load())
	}
}

func TestRunPassUnhealthySkipsUnlessOverridden(t *testing.T) {
	gated := &fakeTask{name: "gated", period: PeriodDaily}
	override := &fakeTask{name: "override", period: PeriodDaily}
	h := newHarness(t, false, gated, override)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"gated":    {LastUpdate: old, Period: PeriodDaily},
		"override": {LastUpdate: old, Period: PeriodDaily, OverrideAppHealthStatus: true},
	})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if got := resultFor(t, report, "gated"); got.Outcome != OutcomeUnhealthy {
		t.Errorf("gated outcome = %s, want unhealthy", got.Outcome)
	}
	if gated.runCount() != 0 {
		t.Errorf("gated task ran despite unhealthy app")
	}
	if got := resultFor(t, report, "override"); got.Outcome != OutcomeRan {
		t.Errorf("override outcome = %s, want ran", got.Outcome)
	}
	if override.runCount() != 1 {
		t.Errorf("override task ran %d times, want 1", override.runCount())
	}
	if report.Healthy == nil || *report.Healthy {
		t.Errorf("report.Healthy = %v, want false", report.Healthy)
	}
}

func TestRunPassProbesAtMostOnce(t *testing.T) {
	a := &fakeTask{name: "a", period: PeriodDaily}
	b := &fakeTask{name: "b", period: PeriodDaily}
	c := &fakeTask{name: "c", period: PeriodDaily}
	h := newHarness(t, true, a, b, c)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"a": {LastUpdate: old, Period: PeriodDaily},
		"b": {LastUpdate: old, Period: PeriodDaily},
		"c": {LastUpdate: old, Period: PeriodDaily},
	})

	if _, err := h.scheduler.RunPass(context.Background(), now); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if h.probe.calls.Load() != 1 {
		t.Errorf("probe called %d times in one pass, want 1", h.probe.calls.Load())
	}
}

func TestRunPassBadPeriodIsContained(t *testing.T) {
	bad := &fakeTask{name: "bad", period: PeriodDaily}
	good := &fakeTask{name: "good", period: PeriodDaily}
	h := newHarness(t, true, bad, good)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"bad":  {LastUpdate: old, Period: "FORTNIGHTLY"},
		"good": {LastUpdate: old, Period: PeriodDaily},
	})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	got := resultFor(t, report, "bad")
	if got.Outcome != OutcomeBadPeriod {
		t.Errorf("bad outcome = %s, want bad-period", got.Outcome)
	}
	if got.Error == "" {
		t.Error("bad-period result should carry the configuration error")
	}
	if bad.runCount() != 0 {
		t.Errorf("task with bad period ran")
	}
	if resultFor(t, report, "good").Outcome != OutcomeRan {
		t.Errorf("sibling task did not run after bad-period entry")
	}
}

func TestRunPassUnregisteredTaskIsSoftError(t *testing.T) {
	registered := &fakeTask{name: "registered", period: PeriodDaily}
	h := newHarness(t, true, registered)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"registered": {LastUpdate: old, Period: PeriodDaily},
		"ghost":      {LastUpdate: old, Period: PeriodDaily},
	})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if got := resultFor(t, report, "ghost"); got.Outcome != OutcomeUnregistered {
		t.Errorf("ghost outcome = %s, want unregistered", got.Outcome)
	}
	if resultFor(t, report, "registered").Outcome != OutcomeRan {
		t.Errorf("registered task did not run alongside ghost entry")
	}

	// The ghost entry survives the pass untouched.
	persisted := h.store.Load(context.Background())
	if _, ok := persisted["ghost"]; !ok {
		t.Error("unregistered entry dropped from persisted schedule")
	}
}

func TestRunPassRecoversPanic(t *testing.T) {
	panicky := &fakeTask{
		name:   "panicky",
		period: PeriodDaily,
		run:    func(context.Context) error { panic("boom") },
	}
	calm := &fakeTask{name: "calm", period: PeriodDaily}
	h := newHarness(t, true, panicky, calm)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"calm":    {LastUpdate: old, Period: PeriodDaily},
		"panicky": {LastUpdate: old, Period: PeriodDaily},
	})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	got := resultFor(t, report, "panicky")
	if got.Outcome != OutcomeFailed {
		t.Errorf("panicky outcome = %s, want failed", got.Outcome)
	}
	if got.Error == "" {
		t.Error("panic should surface in the result error")
	}
	if resultFor(t, report, "calm").Outcome != OutcomeRan {
		t.Errorf("sibling task did not survive the panic")
	}
}

func TestRunPassBootstrapsFreshInstall(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	h := newHarness(t, true, task)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	// Fresh entries start with lastUpdate = now, so nothing fires yet.
	if task.runCount() != 0 {
		t.Errorf("task ran %d times on bootstrap pass, want 0", task.runCount())
	}
	if got := resultFor(t, report, "loki-logs"); got.Outcome != OutcomeNotDue {
		t.Errorf("outcome = %s, want not-due", got.Outcome)
	}

	persisted := h.store.Load(context.Background())
	entry, ok := persisted["loki-logs"]
	if !ok {
		t.Fatal("bootstrap entry not persisted")
	}
	if !entry.LastUpdate.Equal(now) {
		t.Errorf("bootstrap lastUpdate = %v, want %v", entry.LastUpdate, now)
	}
	if entry.Period != PeriodDaily {
		t.Errorf("bootstrap period = %q, want task default DAILY", entry.Period)
	}
}

func TestRunPassPersistFailureDoesNotFailPass(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	h := newHarness(t, true, task)
	now := time.Now()
	h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-48 * time.Hour), Period: PeriodDaily}})
	h.remote.saveErr = fmt.Errorf("bucket unavailable")

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v, want nil despite save failure", err)
	}
	if resultFor(t, report, "loki-logs").Outcome != OutcomeRan {
		t.Errorf("task outcome lost when persistence failed")
	}
}

func TestRunPassNoChangesSkipsSave(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	h := newHarness(t, true, task)
	now := time.Now()
	h.seed(t, Schedule{"loki-logs": {LastUpdate: now, Period: PeriodDaily}})
	before := h.remote.saveCount()

	if _, err := h.scheduler.RunPass(context.Background(), now); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if got := h.remote.saveCount(); got != before {
		t.Errorf("pass with no changes wrote the document %d extra times", got-before)
	}
}

func TestRunPassSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := &fakeTask{
		name:   "slow",
		period: PeriodDaily,
		run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	h := newHarness(t, true, slow)
	now := time.Now()
	h.seed(t, Schedule{"slow": {LastUpdate: now.Add(-48 * time.Hour), Period: PeriodDaily}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := h.scheduler.RunPass(context.Background(), now); err != nil {
			t.Errorf("first RunPass() error = %v", err)
		}
	}()

	<-started
	if _, err := h.scheduler.RunPass(context.Background(), now); !errors.Is(err, ErrPassInProgress) {
		t.Errorf("concurrent RunPass() error = %v, want ErrPassInProgress", err)
	}
	if _, err := h.scheduler.RunTask(context.Background(), "slow", false, now); !errors.Is(err, ErrPassInProgress) {
		t.Errorf("concurrent RunTask() error = %v, want ErrPassInProgress", err)
	}

	close(release)
	wg.Wait()
}

func TestRunPassContextCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeTask{
		name:   "a-first",
		period: PeriodDaily,
		run: func(context.Context) error {
			cancel()
			return nil
		},
	}
	second := &fakeTask{name: "b-second", period: PeriodDaily}
	h := newHarness(t, true, first, second)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"a-first":  {LastUpdate: old, Period: PeriodDaily},
		"b-second": {LastUpdate: old, Period: PeriodDaily},
	})

	report, err := h.scheduler.RunPass(ctx, now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if len(report.Results) != 1 {
		t.Fatalf("got %d results, want 1 (clean stop after cancellation)", len(report.Results))
	}
	if report.Results[0].Task != "a-first" || report.Results[0].Outcome != OutcomeRan {
		t.Errorf("partial result = %+v, want a-first ran", report.Results[0])
	}
	if second.runCount() != 0 {
		t.Errorf("task after cancellation still ran")
	}
}

func TestRunPassResultsAreNameOrdered(t *testing.T) {
	tasks := []*fakeTask{
		{name: "zeta", period: PeriodDaily},
		{name: "alpha", period: PeriodDaily},
		{name: "mid", period: PeriodDaily},
	}
	h := newHarness(t, true, tasks[0], tasks[1], tasks[2])
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"zeta":  {LastUpdate: old, Period: PeriodDaily},
		"alpha": {LastUpdate: old, Period: PeriodDaily},
		"mid":   {LastUpdate: old, Period: PeriodDaily},
	})

	report, err := h.scheduler.RunPass(context.Background(), now)
	if err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if report.Results[i].Task != name {
			t.Errorf("Results[%d] = %s, want %s", i, report.Results[i].Task, name)
		}
	}
}

func TestRunTaskManualTrigger(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	t.Run("unknown task", func(t *testing.T) {
		h := newHarness(t, true)
		_, err := h.scheduler.RunTask(context.Background(), "nope", false, now)
		if !errors.Is(err, ErrUnknownTask) {
			t.Errorf("RunTask() error = %v, want ErrUnknownTask", err)
		}
	})

	t.Run("runs even when not due", func(t *testing.T) {
		task := &fakeTask{name: "loki-logs", period: PeriodDaily}
		h := newHarness(t, true, task)
		h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-time.Minute), Period: PeriodDaily}})

		result, err := h.scheduler.RunTask(context.Background(), "loki-logs", false, now)
		if err != nil {
			t.Fatalf("RunTask() error = %v", err)
		}
		if result.Outcome != OutcomeRan {
			t.Errorf("outcome = %s, want ran", result.Outcome)
		}
		persisted := h.store.Load(context.Background())
		if !persisted["loki-logs"].LastUpdate.Equal(now) {
			t.Errorf("manual success did not move lastUpdate")
		}
	})

	t.Run("disabled task refused without force", func(t *testing.T) {
		task := &fakeTask{name: "loki-logs", period: PeriodDaily}
		h := newHarness(t, true, task)
		h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-48 * time.Hour), Period: PeriodDaily, DisableUpdates: true}})

		result, err := h.scheduler.RunTask(context.Background(), "loki-logs", false, now)
		if err != nil {
			t.Fatalf("RunTask() error = %v", err)
		}
		if result.Outcome != OutcomeDisabled {
			t.Errorf("outcome = %s, want disabled", result.Outcome)
		}
		if task.runCount() != 0 {
			t.Errorf("disabled task ran without force")
		}
	})

	t.Run("force bypasses disabled and health", func(t *testing.T) {
		task := &fakeTask{name: "loki-logs", period: PeriodDaily}
		h := newHarness(t, false, task)
		h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-time.Minute), Period: PeriodDaily, DisableUpdates: true}})

		result, err := h.scheduler.RunTask(context.Background(), "loki-logs", true, now)
		if err != nil {
			t.Fatalf("RunTask() error = %v", err)
		}
		if result.Outcome != OutcomeRan {
			t.Errorf("outcome = %s, want ran", result.Outcome)
		}
		if h.probe.calls.Load() != 0 {
			t.Errorf("forced run consulted the probe")
		}
	})

	t.Run("unhealthy refused without force", func(t *testing.T) {
		task := &fakeTask{name: "loki-logs", period: PeriodDaily}
		h := newHarness(t, false, task)
		h.seed(t, Schedule{"loki-logs": {LastUpdate: now.Add(-48 * time.Hour), Period: PeriodDaily}})

		result, err := h.scheduler.RunTask(context.Background(), "loki-logs", false, now)
		if err != nil {
			t.Fatalf("RunTask() error = %v", err)
		}
		if result.Outcome != OutcomeUnhealthy {
			t.Errorf("outcome = %s, want unhealthy", result.Outcome)
		}
	})

	t.Run("bootstraps missing entry", func(t *testing.T) {
		task := &fakeTask{name: "fresh", period: PeriodWeekly}
		h := newHarness(t, true, task)

		result, err := h.scheduler.RunTask(context.Background(), "fresh", false, now)
		if err != nil {
			t.Fatalf("RunTask() error = %v", err)
		}
		if result.Outcome != OutcomeRan {
			t.Errorf("outcome = %s, want ran", result.Outcome)
		}
		persisted := h.store.Load(context.Background())
		if persisted["fresh"].Period != PeriodWeekly {
			t.Errorf("bootstrap period = %q, want WEEKLY", persisted["fresh"].Period)
		}
	})
}

func TestSchedulerObservers(t *testing.T) {
	task := &fakeTask{name: "loki-logs", period: PeriodDaily}
	failing := &fakeTask{
		name:   "app-state",
		period: PeriodDaily,
		run:    func(context.Context) error { return fmt.Errorf("nope") },
	}
	h := newHarness(t, true, task, failing)
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	h.seed(t, Schedule{
		"loki-logs": {LastUpdate: old, Period: PeriodDaily},
		"app-state": {LastUpdate: old, Period: PeriodDaily},
	})

	obs := &recordingObserver{}
	h.scheduler.AddObserver(obs)

	if _, err := h.scheduler.RunPass(context.Background(), now); err != nil {
		t.Fatalf("RunPass() error = %v", err)
	}

	if len(obs.started) != 2 {
		t.Errorf("observer saw %d starts, want 2", len(obs.started))
	}
	if len(obs.finished) != 2 {
		t.Errorf("observer saw %d finishes, want 2", len(obs.finished))
	}
	if len(obs.passes) != 1 {
		t.Fatalf("observer saw %d pass completions, want 1", len(obs.passes))
	}
	if obs.passes[0].Ran != 1 || obs.passes[0].Failed != 1 {
		t.Errorf("pass report counts = %d/%d, want 1 ran, 1 failed", obs.passes[0].Ran, obs.passes[0].Failed)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []TaskResult
	passes   []PassReport
}

func (r *recordingObserver) TaskStarted(_ context.Context, _, task string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, task)
}

func (r *recordingObserver) TaskFinished(_ context.Context, _ string, result TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, result)
}

func (r *recordingObserver) PassCompleted(_ context.Context, report PassReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, report)
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&fakeTask{name: "a", period: PeriodDaily}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(&fakeTask{name: "a", period: PeriodDaily}); err == nil {
		t.Error("Register() duplicate succeeded, want error")
	}
	if err := registry.Register(&fakeTask{name: "", period: PeriodDaily}); err == nil {
		t.Error("Register() empty name succeeded, want error")
	}
	if err := registry.Register(&fakeTask{name: "b", period: "NEVER"}); err == nil {
		t.Error("Register() invalid default period succeeded, want error")
	}

	names := registry.Names()
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("Names() = %v, want [a]", names)
	}
	if registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", registry.Len())
	}
}
