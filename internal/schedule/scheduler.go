// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
)

// HealthProbe gates scheduled runs on upstream application health.
// Healthy is fail-closed: any probe problem reads as unhealthy.
type HealthProbe interface {
	Healthy(ctx context.Context) bool
}

// Observer receives task lifecycle notifications during a pass.
// The journal and the event bus subscribe through this interface.
// Implementations must not block; they run inline on the pass goroutine.
type Observer interface {
	TaskStarted(ctx context.Context, passID, task string)
	TaskFinished(ctx context.Context, passID string, result TaskResult)
	PassCompleted(ctx context.Context, report PassReport)
}

// ErrPassInProgress is returned when a pass or manual run is requested
// while another one holds the scheduler.
var ErrPassInProgress = errors.New("schedule: a pass is already in progress")

// ErrUnknownTask is returned by RunTask for a name with no registered task.
var ErrUnknownTask = errors.New("schedule: unknown task")

// Scheduler runs passes over the schedule document.
//
// One logical pass at a time: RunPass and RunTask share a mutex acquired
// with TryLock, so the daemon ticker and the API's manual triggers cannot
// overlap; the loser gets ErrPassInProgress instead of queueing.
type Scheduler struct {
	registry *Registry
	store    *Store
	probe    HealthProbe
	logger   zerolog.Logger

	taskTimeout time.Duration
	observers   []Observer

	mu sync.Mutex

	lastMu sync.RWMutex
	last   *PassReport
}

// NewScheduler wires a scheduler over the given registry, store, and probe.
func NewScheduler(registry *Registry, store *Store, probe HealthProbe, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		store:    store,
		probe:    probe,
		logger:   logger,
	}
}

// SetTaskTimeout bounds each task run. Zero means no per-task timeout.
func (s *Scheduler) SetTaskTimeout(d time.Duration) {
	s.taskTimeout = d
}

// AddObserver registers an observer for task lifecycle notifications.
// Must be called during wiring, before the scheduler starts running.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// LastReport returns the most recent pass report, or nil before the first
// pass completes.
func (s *Scheduler) LastReport() *PassReport {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// RunPass executes one scheduling pass with now as the reference time.
//
// The pass loads the schedule, bootstraps entries for registered tasks
// that have none, evaluates every entry in name order, runs the due ones
// sequentially, and persists the updated document best-effort. A failing
// task never affects its siblings; context cancellation stops the pass
// cleanly after the current task.
func (s *Scheduler) RunPass(ctx context.Context, now time.Time) (*PassReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrPassInProgress
	}
	defer s.mu.Unlock()

	passID := uuid.NewString()
	logger := s.logger.With().Str("pass_id", passID).Logger()
	started := time.Now()

	sched := s.store.Load(ctx)
	dirty := s.bootstrap(sched, now, logger)

	probe := s.cachedProbe()

	report := &PassReport{ID: passID, Started: now}
	names := make([]string, 0, len(sched))
	for name := range sched {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("Pass interrupted, keeping partial results")
			break
		}

		meta := sched[name]
		result, updated, changed := s.evaluate(ctx, logger, passID, name, meta, now, probe)
		if changed {
			sched[name] = updated
			dirty = true
		}
		report.Results = append(report.Results, result)
	}

	if dirty {
		if err := s.store.Save(ctx, sched); err != nil {
			// A failed save leaves the updated tasks due again next pass.
			logger.Warn().Err(err).Msg("Failed to persist schedule after pass")
		}
	}

	report.Finished = time.Now()
	report.Duration = report.Finished.Sub(started)
	report.Healthy = probe.observed()
	report.tally()

	metrics.RecordPass(report.Duration)
	logger.Info().
		Int("ran", report.Ran).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Pass completed")

	s.lastMu.Lock()
	s.last = report
	s.lastMu.Unlock()

	for _, o := range s.observers {
		o.PassCompleted(ctx, *report)
	}

	return report, nil
}

// RunTask executes one task immediately, outside its cadence.
//
// Without force the disabled flag and the health gate still apply; force
// bypasses both. Due-ness is always ignored, that being the point of a
// manual trigger. Success updates the task's lastUpdate like a scheduled
// run would.
func (s *Scheduler) RunTask(ctx context.Context, name string, force bool, now time.Time) (*TaskResult, error) {
	task, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	if !s.mu.TryLock() {
		return nil, ErrPassInProgress
	}
	defer s.mu.Unlock()

	passID := uuid.NewString()
	logger := s.logger.With().Str("pass_id", passID).Str("task", name).Bool("manual", true).Logger()

	sched := s.store.Load(ctx)
	meta, exists := sched[name]
	if !exists {
		meta = TaskMeta{LastUpdate: now, Period: task.DefaultPeriod()}
	}

	if !force {
		if meta.DisableUpdates {
			logger.Info().Msg("Manual run refused, task disabled")
			result := TaskResult{Task: name, Outcome: OutcomeDisabled}
			return &result, nil
		}
		if !meta.OverrideAppHealthStatus && !s.probeOnce(ctx) {
			logger.Info().Msg("Manual run refused, application unhealthy")
			result := TaskResult{Task: name, Outcome: OutcomeUnhealthy}
			return &result, nil
		}
	}

	result := s.runTask(ctx, logger, passID, task)
	if result.Outcome == OutcomeRan {
		meta.LastUpdate = now
	}
	sched[name] = meta
	if err := s.store.Save(ctx, sched); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist schedule after manual run")
	}

	return &result, nil
}

// bootstrap fabricates default entries for registered tasks missing from
// the schedule. LastUpdate starts at now so a fresh install waits one full
// period instead of firing everything immediately.
func (s *Scheduler) bootstrap(sched Schedule, now time.Time, logger zerolog.Logger) bool {
	dirty := false
	for _, name := range s.registry.Names() {
		if _, ok := sched[name]; ok {
			continue
		}
		task, _ := s.registry.Get(name)
		sched[name] = TaskMeta{LastUpdate: now, Period: task.DefaultPeriod()}
		dirty = true
		logger.Info().
			Str("task", name).
			Str("period", string(task.DefaultPeriod())).
			Msg("Bootstrapped schedule entry")
	}
	return dirty
}

// evaluate applies the scheduling rules to one entry and runs the task if
// due. It returns the result, the possibly-updated entry, and whether the
// entry changed.
func (s *Scheduler) evaluate(ctx context.Context, logger zerolog.Logger, passID, name string, meta TaskMeta, now time.Time, probe *passProbe) (TaskResult, TaskMeta, bool) {
	taskLogger := logger.With().Str("task", name).Logger()

	if meta.DisableUpdates {
		taskLogger.Debug().Msg("Task disabled, skipping")
		return s.skipped(name, OutcomeDisabled, ""), meta, false
	}

	if !meta.OverrideAppHealthStatus && !probe.healthy(ctx) {
		taskLogger.Info().Msg("Application unhealthy, skipping task")
		return s.skipped(name, OutcomeUnhealthy, ""), meta, false
	}

	interval, err := meta.Period.Interval()
	if err != nil {
		taskLogger.Error().Err(err).Str("period", string(meta.Period)).Msg("Invalid period in schedule entry")
		return s.skipped(name, OutcomeBadPeriod, err.Error()), meta, false
	}

	if meta.LastUpdate.Add(interval).After(now) {
		taskLogger.Debug().
			Time("last_update", meta.LastUpdate).
			Time("due_at", meta.LastUpdate.Add(interval)).
			Msg("Task not due yet")
		return s.skipped(name, OutcomeNotDue, ""), meta, false
	}

	task, ok := s.registry.Get(name)
	if !ok {
		taskLogger.Warn().Msg("Schedule names an unregistered task")
		return s.skipped(name, OutcomeUnregistered, ""), meta, false
	}

	result := s.runTask(ctx, taskLogger, passID, task)
	if result.Outcome == OutcomeRan {
		meta.LastUpdate = now
		return result, meta, true
	}
	return result, meta, false
}

// runTask invokes one task with panic recovery and the per-task timeout,
// recording metrics and notifying observers.
func (s *Scheduler) runTask(ctx context.Context, logger zerolog.Logger, passID string, task Task) TaskResult {
	name := task.Name()
	for _, o := range s.observers {
		o.TaskStarted(ctx, passID, name)
	}

	started := time.Now()
	err := s.invoke(ctx, task)
	duration := time.Since(started)

	result := TaskResult{Task: name, Started: started, Duration: duration}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		logger.Error().Err(err).Dur("duration", duration).Msg("Task failed")
	} else {
		result.Outcome = OutcomeRan
		logger.Info().Dur("duration", duration).Msg("Task completed")
	}

	metrics.RecordTaskOutcome(name, string(result.Outcome))
	metrics.RecordTaskDuration(name, duration)

	for _, o := range s.observers {
		o.TaskFinished(ctx, passID, result)
	}
	return result
}

// invoke runs the task body, converting panics into errors so one broken
// task cannot take down the pass.
func (s *Scheduler) invoke(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	runCtx := ctx
	if s.taskTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		defer cancel()
	}
	return task.Run(runCtx)
}

// skipped builds a result for a task that did not run, and records the
// outcome metric.
func (s *Scheduler) skipped(name string, outcome RunOutcome, errMsg string) TaskResult {
	metrics.RecordTaskOutcome(name, string(outcome))
	return TaskResult{Task: name, Outcome: outcome, Error: errMsg}
}

// passProbe caches the health probe result for the duration of one pass,
// so at most one probe request happens per pass no matter how many tasks
// consult the gate.
type passProbe struct {
	probe  HealthProbe
	once   sync.Once
	result bool
	asked  bool
}

func (s *Scheduler) cachedProbe() *passProbe {
	return &passProbe{probe: s.probe}
}

func (p *passProbe) healthy(ctx context.Context) bool {
	p.once.Do(func() {
		p.asked = true
		p.result = p.probe.Healthy(ctx)
		metrics.RecordHealthProbe(p.result)
	})
	return p.result
}

// observed returns the probe result if any task consulted it, else nil.
func (p *passProbe) observed() *bool {
	if !p.asked {
		return nil
	}
	result := p.result
	return &result
}

// probeOnce performs a single uncached probe, used by manual runs.
func (s *Scheduler) probeOnce(ctx context.Context) bool {
	healthy := s.probe.Healthy(ctx)
	metrics.RecordHealthProbe(healthy)
	return healthy
}
