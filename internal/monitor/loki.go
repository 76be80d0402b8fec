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
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tabularium/internal/config"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

const defaultQueryTimeout = 30 * time.Second

// LogEntry is one raw entry returned by the log query source: the
// source timestamp (nanosecond precision) and the unparsed line.
type LogEntry struct {
	Timestamp time.Time
	Line      string
}

// QuerySource fetches one page of log entries from a range query.
//
// The page holds the newest limit entries of [start, end), returned
// newest-first; the end bound is exclusive, which is what makes
// backward pagination by oldest-seen-timestamp walk without overlap.
// Implementations must treat a non-success protocol status as an
// error; the aggregator relies on errors to stop pagination while
// keeping prior pages.
type QuerySource interface {
	QueryRange(ctx context.Context, query string, limit int, start, end time.Time) ([]LogEntry, error)
}

// LokiClient queries a Loki-compatible query_range endpoint.
//
// Requests pass through a token bucket limiter so backward pagination
// over a large window cannot flood the query frontend. Thread safety:
// safe for concurrent use, each call builds its own request.
type LokiClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLokiClient creates a Loki query client from the loki configuration.
func NewLokiClient(cfg config.LokiConfig, logger zerolog.Logger) *LokiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &LokiClient{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger.With().Str("component", "loki-client").Logger(),
	}
}

// queryRangeResponse mirrors the Loki query_range response envelope.
// Values are pairs of [nanosecond epoch string, raw line].
type queryRangeResponse struct {
	Status string         `json:"status"`
	Data   queryRangeData `json:"data"`
}

type queryRangeData struct {
	ResultType string         `json:"resultType"`
	Result     []streamResult `json:"result"`
}

type streamResult struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// QueryRange fetches up to limit entries in [start, end), newest first.
//
// Entries from all matched streams are merged into a single
// timestamp-descending sequence so callers see one consistent page
// regardless of how Loki sharded the result.
func (c *LokiClient) QueryRange(ctx context.Context, query string, limit int, start, end time.Time) ([]LogEntry, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	params.Set("end", strconv.FormatInt(end.UnixNano(), 10))

	reqURL := fmt.Sprintf("%s/loki/api/v1/query_range?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create query_range request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query_range request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("query_range failed with status %d: %s", resp.StatusCode, string(body))
	}

	var decoded queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode query_range response: %w", err)
	}

	if decoded.Status != "success" {
		return nil, fmt.Errorf("query_range returned status %q", decoded.Status)
	}

	entries := make([]LogEntry, 0, limit)
	for _, stream := range decoded.Data.Result {
		for _, value := range stream.Values {
			nanos, err := strconv.ParseInt(value[0], 10, 64)
			if err != nil {
				c.logger.Warn().Str("timestamp", value[0]).Msg("Skipping entry with unparseable timestamp")
				continue
			}
			entries = append(entries, LogEntry{
				Timestamp: time.Unix(0, nanos),
				Line:      value[1],
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// readBodyForError reads a bounded amount of the response body for
// error reporting. Returns a placeholder if reading fails.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
