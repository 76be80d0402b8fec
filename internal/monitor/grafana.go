// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

const (
	defaultGrafanaTimeout = 60 * time.Second

	// Render dimensions for dashboard captures. The render API is the
	// slowest Grafana endpoint; keep dimensions modest.
	renderWidth  = 1600
	renderHeight = 900

	// maxRenderBytes caps a single rendered image read.
	maxRenderBytes = 32 * 1024 * 1024 // 32MB
)

// DashboardRef identifies one dashboard found via the search API.
type DashboardRef struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DashboardSource lists dashboards and renders them to images.
type DashboardSource interface {
	ListDashboards(ctx context.Context) ([]DashboardRef, error)
	Render(ctx context.Context, ref DashboardRef) ([]byte, error)
}

// GrafanaClient talks to the Grafana HTTP API with service account
// token authentication. Rendering requires the grafana-image-renderer
// plugin on the server; without it Render returns the server's error.
type GrafanaClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewGrafanaClient creates a Grafana client from the grafana
// configuration.
func NewGrafanaClient(cfg config.GrafanaConfig, logger zerolog.Logger) *GrafanaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGrafanaTimeout
	}
	return &GrafanaClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "grafana-client").Logger(),
	}
}

func (c *GrafanaClient) newRequest(ctx context.Context, reqURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// ListDashboards returns every dashboard visible to the configured
// token, via GET /api/search?type=dash-db.
func (c *GrafanaClient) ListDashboards(ctx context.Context) ([]DashboardRef, error) {
	params := url.Values{}
	params.Set("type", "dash-db")

	req, err := c.newRequest(ctx, fmt.Sprintf("%s/api/search?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashboard search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("dashboard search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var refs []DashboardRef
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return refs, nil
}

// Render captures one dashboard as a PNG through the render API. The
// dashboard URL from the search result is reused so the slug part
// stays consistent with what Grafana reports.
func (c *GrafanaClient) Render(ctx context.Context, ref DashboardRef) ([]byte, error) {
	path := ref.URL
	if path == "" {
		path = "/d/" + ref.UID + "/"
	}

	params := url.Values{}
	params.Set("width", fmt.Sprintf("%d", renderWidth))
	params.Set("height", fmt.Sprintf("%d", renderHeight))
	params.Set("kiosk", "true")

	req, err := c.newRequest(ctx, fmt.Sprintf("%s/render%s?%s", c.baseURL, path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashboard render failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("dashboard render failed with status %d: %s", resp.StatusCode, string(body))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("dashboard render returned unexpected content type %q", ct)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered image: %w", err)
	}

	c.logger.Debug().Str("dashboard", ref.UID).Int("bytes", len(image)).Msg("Dashboard rendered")
	return image, nil
}
