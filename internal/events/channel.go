// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/metrics"
)

// ChannelBus is the in-process event bus, built on watermill's Go channel
// Pub/Sub. It is the default transport; events reach only subscribers
// inside the same process and are not retained across restarts.
type ChannelBus struct {
	pubSub *gochannel.GoChannel
}

// NewChannelBus creates the in-process bus.
func NewChannelBus(logger zerolog.Logger) *ChannelBus {
	componentLogger := logger.With().Str("component", "events").Logger()
	return &ChannelBus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, NewLoggerAdapter(componentLogger)),
	}
}

// Publish sends one event to all current subscribers of the topic.
func (b *ChannelBus) Publish(ctx context.Context, topic string, event Event) error {
	msg, err := marshalEvent(ctx, &event)
	if err != nil {
		return err
	}
	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe delivers events published on topic until ctx is cancelled.
func (b *ChannelBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// Close shuts the bus down; pending deliveries are dropped.
func (b *ChannelBus) Close() error {
	return b.pubSub.Close()
}
