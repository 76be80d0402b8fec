// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/schedule"
)

// Topics carrying task lifecycle events.
const (
	TopicTaskStarted   = "task.started"
	TopicTaskCompleted = "task.completed"
	TopicTaskFailed    = "task.failed"
	TopicPassCompleted = "pass.completed"
)

// ErrBusClosed indicates a publish on a closed bus.
var ErrBusClosed = errors.New("events: bus is closed")

// Event is the JSON payload published on every topic. The topic conveys
// the event kind; only the fields relevant to that kind are set.
type Event struct {
	// ID uniquely identifies the event and doubles as the message ID
	// for broker-side deduplication.
	ID string `json:"id"`

	// Time is when the event was published.
	Time time.Time `json:"time"`

	// PassID links the event to a pass. Empty for manual single-task runs.
	PassID string `json:"passId,omitempty"`

	// Task is the task name for task.* topics.
	Task string `json:"task,omitempty"`

	// Result carries the scheduler verdict on task.completed and
	// task.failed.
	Result *schedule.TaskResult `json:"result,omitempty"`

	// Report carries the full pass report on pass.completed.
	Report *schedule.PassReport `json:"report,omitempty"`
}

// Bus publishes task lifecycle events.
type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}

// marshalEvent stamps defaults and wraps the event in a watermill message.
func marshalEvent(ctx context.Context, event *Event) (*message.Message, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.SetContext(ctx)
	if event.Task != "" {
		msg.Metadata.Set("task", event.Task)
	}
	if event.PassID != "" {
		msg.Metadata.Set("pass_id", event.PassID)
	}
	return msg, nil
}

// Notifier publishes scheduler lifecycle callbacks onto a bus.
// Publish failures are logged and never propagate into the pass.
type Notifier struct {
	bus    Bus
	logger zerolog.Logger
}

// NewNotifier creates a bus-backed scheduler observer.
func NewNotifier(bus Bus, logger zerolog.Logger) *Notifier {
	return &Notifier{
		bus:    bus,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// TaskStarted publishes a task.started event.
func (n *Notifier) TaskStarted(ctx context.Context, passID, task string) {
	n.publish(ctx, TopicTaskStarted, Event{PassID: passID, Task: task})
}

// TaskFinished publishes task.completed, or task.failed for failed runs.
func (n *Notifier) TaskFinished(ctx context.Context, passID string, result schedule.TaskResult) {
	topic := TopicTaskCompleted
	if result.Outcome == schedule.OutcomeFailed {
		topic = TopicTaskFailed
	}
	res := result
	n.publish(ctx, topic, Event{PassID: passID, Task: result.Task, Result: &res})
}

// PassCompleted publishes a pass.completed event with the full report.
func (n *Notifier) PassCompleted(ctx context.Context, report schedule.PassReport) {
	rep := report
	n.publish(ctx, TopicPassCompleted, Event{PassID: report.ID, Report: &rep})
}

func (n *Notifier) publish(ctx context.Context, topic string, event Event) {
	if err := n.bus.Publish(ctx, topic, event); err != nil {
		n.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}
