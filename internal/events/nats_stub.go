// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

//go:build !nats

package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

// NATSBus is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable JetStream publishing.
type NATSBus struct{}

// NewNATSBus returns an error when NATS dependencies are not compiled in.
func NewNATSBus(_ config.NATSEventsConfig, _ zerolog.Logger) (*NATSBus, error) {
	return nil, fmt.Errorf("NATS event bus not available: build with -tags=nats")
}

// Publish is a stub.
func (b *NATSBus) Publish(context.Context, string, Event) error {
	return fmt.Errorf("NATS event bus not available: build with -tags=nats")
}

// Close is a no-op stub.
func (b *NATSBus) Close() error {
	return nil
}
