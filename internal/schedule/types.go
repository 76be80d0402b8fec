// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package schedule implements the task scheduler at the heart of the agent.
//
// A Schedule is a small JSON document, persisted in the remote store, that
// maps task names to their cadence and per-task flags. The scheduler loads
// it, decides which registered tasks are due, runs them sequentially, and
// writes the updated document back. Task failures are contained: a failing
// or panicking task is recorded and the pass moves on, leaving the task's
// lastUpdate untouched so it runs again on the next pass.
//
// Pass Flow:
//
//	┌──────────┐    ┌────────────┐    ┌──────────┐    ┌───────────┐
//	│  Store   │───▶│  Scheduler │───▶│ Registry │───▶│   Tasks   │
//	│ (remote) │    │  RunPass   │    │  lookup  │    │  Run(ctx) │
//	└──────────┘    └────────────┘    └──────────┘    └───────────┘
//	      ▲               │
//	      └───────────────┘
//	       best-effort save
//
// Usage:
//
//	registry := schedule.NewRegistry()
//	registry.Register(task)
//
//	store := schedule.NewStore(remoteStore, logger)
//	sched := schedule.NewScheduler(registry, store, probe, logger)
//	report, err := sched.RunPass(ctx, time.Now())
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is the cadence of a scheduled task.
type Period string

const (
	// PeriodHourly runs the task once per hour.
	PeriodHourly Period = "HOURLY"

	// PeriodDaily runs the task once per day.
	PeriodDaily Period = "DAILY"

	// PeriodWeekly runs the task once per week.
	PeriodWeekly Period = "WEEKLY"
)

// ErrUnknownPeriod is returned for a period value outside the known set.
// In a pass this is a configuration error fatal to the single affected
// task only.
var ErrUnknownPeriod = errors.New("schedule: unknown period")

// ParsePeriod converts a string to a Period. Matching is case-insensitive;
// the canonical uppercase form is returned.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodHourly, PeriodDaily, PeriodWeekly:
		return true
	default:
		return false
	}
}

// Interval returns the wall-clock duration of one period.
func (p Period) Interval() (time.Duration, error) {
	switch p {
	case PeriodHourly:
		return time.Hour, nil
	case PeriodDaily:
		return 24 * time.Hour, nil
	case PeriodWeekly:
		return 168 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
	}
}

// TaskMeta is one task's entry in the schedule document.
//
// The JSON field names are the wire contract of the persisted document and
// must not change; external tooling edits this document directly.
type TaskMeta struct {
	// LastUpdate is when the task last completed successfully.
	LastUpdate time.Time `json:"lastUpdate"`

	// Period is the task's cadence (HOURLY, DAILY, WEEKLY).
	Period Period `json:"schedule"`

	// OverrideAppHealthStatus runs the task even when the upstream
	// health probe reports unhealthy.
	OverrideAppHealthStatus bool `json:"overrideAppHealthStatus"`

	// DisableUpdates excludes the task from scheduled passes entirely.
	DisableUpdates bool `json:"disableUpdates"`
}

// Schedule maps task names to their entries. It is the in-memory form of
// the persisted schedule document.
type Schedule map[string]TaskMeta

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for name, meta := range s {
		out[name] = meta
	}
	return out
}

// RunOutcome classifies what happened to one task during a pass.
type RunOutcome string

const (
	// OutcomeRan indicates the task ran and succeeded.
	OutcomeRan RunOutcome = "ran"

	// OutcomeFailed indicates the task ran and returned an error
	// (or panicked; panics are recovered and recorded as failures).
	OutcomeFailed RunOutcome = "failed"

	// OutcomeNotDue indicates the task's period has not elapsed yet.
	OutcomeNotDue RunOutcome = "not-due"

	// OutcomeDisabled indicates the task is disabled in the schedule.
	OutcomeDisabled RunOutcome = "disabled"

	// OutcomeUnhealthy indicates the upstream health gate blocked the task.
	OutcomeUnhealthy RunOutcome = "unhealthy"

	// OutcomeBadPeriod indicates the entry carries an unknown period value.
	OutcomeBadPeriod RunOutcome = "bad-period"

	// OutcomeUnregistered indicates the schedule names a task that is not
	// in the registry.
	OutcomeUnregistered RunOutcome = "unregistered"
)

// Executed reports whether the outcome means the task body actually ran.
func (o RunOutcome) Executed() bool {
	return o == OutcomeRan || o == OutcomeFailed
}

// TaskResult records one task's outcome within a pass.
type TaskResult struct {
	// Task is the task name.
	Task string `json:"task"`

	// Outcome classifies the result.
	Outcome RunOutcome `json:"outcome"`

	// Started is when the task began running. Zero for skipped tasks.
	Started time.Time `json:"started"`

	// Duration of the task run in nanoseconds. Zero for skipped tasks.
	Duration time.Duration `json:"duration"`

	// Error holds the failure message when Outcome is failed,
	// or the configuration problem for bad-period entries.
	Error string `json:"error,omitempty"`
}

// PassReport summarizes one scheduler pass.
type PassReport struct {
	// ID uniquely identifies the pass.
	ID string `json:"id"`

	// Started is the reference time of the pass; due-ness was evaluated
	// against it and successful tasks have their lastUpdate set to it.
	Started time.Time `json:"started"`

	// Finished is when the pass completed.
	Finished time.Time `json:"finished"`

	// Duration of the whole pass in nanoseconds.
	Duration time.Duration `json:"duration"`

	// Healthy is the cached health probe result, nil when no task
	// consulted the probe during this pass.
	Healthy *bool `json:"healthy,omitempty"`

	// Results holds one entry per schedule task, in iteration order.
	Results []TaskResult `json:"results"`

	// Ran counts tasks that ran and succeeded.
	Ran int `json:"ran"`

	// Failed counts tasks that ran and failed.
	Failed int `json:"failed"`

	// Skipped counts tasks that did not run (not due, disabled,
	// unhealthy, bad period, unregistered).
	Skipped int `json:"skipped"`
}

// tally recomputes the outcome counters from Results.
func (r *PassReport) tally() {
	r.Ran, r.Failed, r.Skipped = 0, 0, 0
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeRan:
			r.Ran++
		case OutcomeFailed:
			r.Failed++
		default:
			r.Skipped++
		}
	}
}
