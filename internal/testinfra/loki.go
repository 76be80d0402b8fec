// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

//go:build integration

package testinfra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultLokiImage is the single-binary Loki image used for tests.
	DefaultLokiImage = "grafana/loki:2.9.4"

	// DefaultLokiPort is Loki's HTTP listen port.
	DefaultLokiPort = "3100"
)

// LokiContainer is a running Loki instance for integration tests.
type LokiContainer struct {
	testcontainers.Container
	URL string
}

// LokiOption configures the Loki container.
type LokiOption func(*lokiConfig)

type lokiConfig struct {
	image        string
	startTimeout time.Duration
}

// WithLokiImage overrides the Loki Docker image.
func WithLokiImage(image string) LokiOption {
	return func(c *lokiConfig) {
		c.image = image
	}
}

// WithLokiStartTimeout bounds the wait for Loki to report ready. The
// ingester holds /ready at 503 for a short warmup after boot, so this
// needs headroom beyond plain process startup.
func WithLokiStartTimeout(timeout time.Duration) LokiOption {
	return func(c *lokiConfig) {
		c.startTimeout = timeout
	}
}

// NewLokiContainer starts a Loki container and waits for /ready.
func NewLokiContainer(ctx context.Context, opts ...LokiOption) (*LokiContainer, error) {
	cfg := &lokiConfig{
		image:        DefaultLokiImage,
		startTimeout: 120 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultLokiPort + "/tcp"},
		WaitingFor: wait.ForHTTP("/ready").
			WithPort(DefaultLokiPort + "/tcp").
			WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create loki container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("loki container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultLokiPort+"/tcp")
	if err != nil {
		return nil, fmt.Errorf("loki container port: %w", err)
	}

	return &LokiContainer{
		Container: container,
		URL:       fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil
}

// PushEntry is one log line to seed into Loki.
type PushEntry struct {
	Timestamp time.Time
	Line      string
}

// Push seeds log lines into the container through the push API so tests
// can query them back.
func (c *LokiContainer) Push(ctx context.Context, labels map[string]string, entries []PushEntry) error {
	values := make([][2]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, [2]string{
			strconv.FormatInt(e.Timestamp.UnixNano(), 10),
			e.Line,
		})
	}

	payload := map[string]interface{}{
		"streams": []map[string]interface{}{
			{"stream": labels, "values": values},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.URL+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
