// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

const defaultSnapshotTimeout = 60 * time.Second

// SnapshotTrigger requests a TSDB snapshot and returns its name.
type SnapshotTrigger interface {
	Snapshot(ctx context.Context, skipHead bool) (string, error)
}

// PrometheusClient triggers TSDB snapshots through the Prometheus
// admin API. The admin API must be enabled on the server
// (--web.enable-admin-api); a 404 or 405 here usually means it is not.
type PrometheusClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewPrometheusClient creates a snapshot client from the prometheus
// configuration.
func NewPrometheusClient(cfg config.PrometheusConfig, logger zerolog.Logger) *PrometheusClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &PrometheusClient{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "prometheus-client").Logger(),
	}
}

// snapshotResponse mirrors the admin API snapshot envelope.
type snapshotResponse struct {
	Status string `json:"status"`
	Data   struct {
		Name string `json:"name"`
	} `json:"data"`
	Error string `json:"error"`
}

// Snapshot requests a new TSDB snapshot and returns the snapshot
// directory name reported by Prometheus. With skipHead set, samples
// still in the head block are excluded, which is cheaper and the usual
// choice for periodic backups.
func (c *PrometheusClient) Snapshot(ctx context.Context, skipHead bool) (string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/admin/tsdb/snapshot", c.baseURL)
	if skipHead {
		reqURL += "?skip_head=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return "", fmt.Errorf("snapshot failed with status %d: %s", resp.StatusCode, string(body))
	}

	var decoded snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode snapshot response: %w", err)
	}

	if decoded.Status != "success" {
		return "", fmt.Errorf("snapshot returned status %q: %s", decoded.Status, decoded.Error)
	}
	if decoded.Data.Name == "" {
		return "", fmt.Errorf("snapshot response missing snapshot name")
	}

	c.logger.Debug().Str("snapshot", decoded.Data.Name).Msg("TSDB snapshot created")
	return decoded.Data.Name, nil
}
