// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package events publishes task lifecycle events over Watermill.
//
// Topics:
//
//	task.started    a task was dispatched
//	task.completed  a task ran and succeeded
//	task.failed     a task ran and returned an error
//	pass.completed  a full scheduler pass finished
//
// ChannelBus is the default in-process transport and is always compiled.
// NATSBus publishes to NATS JetStream (external or embedded server) and
// requires building with -tags=nats; without the tag its constructor
// returns an error. Notifier adapts the scheduler's observer callbacks
// onto a Bus.
package events
