// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

func newLokiClient(url string) *LokiClient {
	return NewLokiClient(config.LokiConfig{
		URL:       url,
		RateLimit: 1000, // Effectively unlimited for tests
		Timeout:   5 * time.Second,
	}, zerolog.Nop())
}

func TestLokiQueryRangeParsesEntries(t *testing.T) {
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	payload := fmt.Sprintf(`{
		"status": "success",
		"data": {
			"resultType": "streams",
			"result": [
				{
					"stream": {"job": "app"},
					"values": [
						["%d", "newest line"],
						["%d", "middle line"]
					]
				},
				{
					"stream": {"job": "db"},
					"values": [
						["%d", "oldest line"]
					]
				}
			]
		}
	}`, base.Add(2*time.Second).UnixNano(), base.Add(time.Second).UnixNano(), base.UnixNano())

	var gotQuery, gotLimit, gotStart, gotEnd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/query_range" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = q.Get("query")
		gotLimit = q.Get("limit")
		gotStart = q.Get("start")
		gotEnd = q.Get("end")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer server.Close()

	start := base.Add(-time.Hour)
	end := base.Add(time.Hour)
	entries, err := newLokiClient(server.URL).QueryRange(context.Background(), `{job=~".+"}`, 100, start, end)
	if err != nil {
		t.Fatalf("QueryRange() error = %v", err)
	}

	if gotQuery != `{job=~".+"}` {
		t.Errorf("query param = %q", gotQuery)
	}
	if gotLimit != "100" {
		t.Errorf("limit param = %q, want 100", gotLimit)
	}
	if gotStart != strconv.FormatInt(start.UnixNano(), 10) {
		t.Errorf("start param = %q, want nanosecond epoch", gotStart)
	}
	if gotEnd != strconv.FormatInt(end.UnixNano(), 10) {
		t.Errorf("end param = %q, want nanosecond epoch", gotEnd)
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Streams are merged newest-first.
	wantLines := []string{"newest line", "middle line", "oldest line"}
	for i, want := range wantLines {
		if entries[i].Line != want {
			t.Errorf("entries[%d].Line = %q, want %q", i, entries[i].Line, want)
		}
	}
	if !entries[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("entries[0].Timestamp = %v, want %v", entries[0].Timestamp, base.Add(2*time.Second))
	}
}

func TestLokiQueryRangeNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "data": {"result": []}}`))
	}))
	defer server.Close()

	_, err := newLokiClient(server.URL).QueryRange(context.Background(), "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("QueryRange() with protocol error status should fail")
	}
}

func TestLokiQueryRangeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many outstanding requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newLokiClient(server.URL).QueryRange(context.Background(), "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("QueryRange() with HTTP 429 should fail")
	}
}

func TestLokiQueryRangeMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "succ`))
	}))
	defer server.Close()

	_, err := newLokiClient(server.URL).QueryRange(context.Background(), "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("QueryRange() with truncated body should fail")
	}
}

func TestLokiQueryRangeSkipsBadTimestamps(t *testing.T) {
	payload := fmt.Sprintf(`{
		"status": "success",
		"data": {
			"result": [
				{"values": [["not-a-number", "broken"], ["%d", "good"]]}
			]
		}
	}`, time.Now().UnixNano())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	entries, err := newLokiClient(server.URL).QueryRange(context.Background(), "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("QueryRange() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Line != "good" {
		t.Errorf("entries = %+v, want just the parseable one", entries)
	}
}

func TestLokiQueryRangeEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "data": {"result": []}}`))
	}))
	defer server.Close()

	entries, err := newLokiClient(server.URL).QueryRange(context.Background(), "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("QueryRange() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from empty result", len(entries))
	}
}

func TestLokiQueryRangeRateLimiterHonorsContext(t *testing.T) {
	client := NewLokiClient(config.LokiConfig{
		URL:       "http://unused",
		RateLimit: 0.001, // One request per ~17 minutes: the second Wait blocks
		Timeout:   time.Second,
	}, zerolog.Nop())

	// Drain the single available token.
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.QueryRange(ctx, "{}", 10, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("QueryRange() should fail when the limiter wait outlives the context")
	}
}
