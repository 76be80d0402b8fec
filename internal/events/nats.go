// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

//go:build nats

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/metrics"
)

const embeddedServerTimeout = 30 * time.Second

// NATSBus publishes events to NATS JetStream so other systems can react
// to backup runs. With cfg.Embedded it starts an in-process nats-server,
// giving single-binary deployments a durable stream without an external
// broker.
type NATSBus struct {
	publisher message.Publisher
	server    *server.Server
	logger    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewNATSBus connects to NATS (or starts the embedded server) and creates
// the JetStream publisher.
func NewNATSBus(cfg config.NATSEventsConfig, logger zerolog.Logger) (*NATSBus, error) {
	componentLogger := logger.With().Str("component", "events").Logger()
	bus := &NATSBus{logger: componentLogger}

	url := cfg.URL
	if cfg.Embedded {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		bus.server = ns
		url = ns.ClientURL()
		componentLogger.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				componentLogger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			componentLogger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true, // Enable broker-side deduplication
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, NewLoggerAdapter(componentLogger))
	if err != nil {
		bus.stopServer()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	bus.publisher = pub

	return bus, nil
}

// startEmbeddedServer boots an in-process nats-server with JetStream.
func startEmbeddedServer(cfg config.NATSEventsConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "tabularium-events",
		Host:       "127.0.0.1",
		Port:       4222,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()
	if !ns.ReadyForConnections(embeddedServerTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return ns, nil
}

// Publish sends one event to JetStream. The event ID doubles as the
// Nats-Msg-Id so redeliveries collapse on the broker.
func (b *NATSBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	b.mu.RUnlock()

	msg, err := marshalEvent(ctx, &event)
	if err != nil {
		return err
	}
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Close stops the publisher, then the embedded server when one is running.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			firstErr = err
		}
	}
	b.stopServer()
	return firstErr
}

func (b *NATSBus) stopServer() {
	if b.server == nil {
		return
	}
	b.server.Shutdown()
	b.server.WaitForShutdown()
	b.server = nil
}
