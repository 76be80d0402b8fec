// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Task is a unit of scheduled work.
//
// Implementations live in internal/tasks and are registered once at
// startup. Run must honor ctx cancellation and return rather than panic;
// the scheduler recovers panics regardless and records them as failures.
type Task interface {
	// Name is the stable identifier used in the schedule document,
	// the API, logs, and metrics.
	Name() string

	// DefaultPeriod is the cadence used when bootstrapping a schedule
	// entry for a task that has none.
	DefaultPeriod() Period

	// Run performs the work.
	Run(ctx context.Context) error
}

// Registry holds the registered tasks.
//
// Registration happens during startup wiring; lookups happen on every
// pass. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry returns an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. The name must be non-empty and unique, and the
// default period must be valid.
func (r *Registry) Register(t Task) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("schedule: task name must not be empty")
	}
	if !t.DefaultPeriod().Valid() {
		return fmt.Errorf("schedule: task %q has invalid default period %q", name, t.DefaultPeriod())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("schedule: task %q already registered", name)
	}
	r.tasks[name] = t
	return nil
}

// Get returns the named task.
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
