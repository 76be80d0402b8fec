// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

const defaultProbeTimeout = 5 * time.Second

// AppProbe checks the monitored application's health endpoint.
//
// The probe is deliberately coarse: any 2xx response means healthy,
// everything else (non-2xx status, transport error, timeout) means
// unhealthy. Tasks that must run regardless carry the per-task
// health override in the schedule document instead of loosening the
// probe.
//
// An empty URL disables probing entirely and reports healthy, for
// deployments without a suitable endpoint.
type AppProbe struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewAppProbe creates a health probe from the health configuration.
func NewAppProbe(cfg config.HealthConfig, logger zerolog.Logger) *AppProbe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &AppProbe{
		url: cfg.URL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "health-probe").Logger(),
	}
}

// Healthy reports whether the monitored application currently answers
// its health endpoint with a success status. Fail-closed: errors are
// treated as unhealthy, never propagated.
func (p *AppProbe) Healthy(ctx context.Context) bool {
	if p.url == "" {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", p.url).Msg("Invalid health probe request")
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", p.url).Msg("Health probe failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		p.logger.Warn().Int("status", resp.StatusCode).Str("url", p.url).Msg("Health probe returned non-success status")
		return false
	}

	return true
}
