// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables and config files.
// Provides centralized configuration management for all agent components including the
// scheduler, collectors (Loki, Prometheus, Grafana), remote storage, journal, events,
// server, security, and logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Collection Sources:
//     - Loki: Log aggregation via the query_range API
//     - Prometheus: TSDB snapshots via the admin API
//     - Grafana: Dashboard definition export
//
//  2. Infrastructure:
//     - Remote: Archive destination (GCS bucket or local directory)
//     - Journal: BadgerDB run history and dedup index (optional)
//     - Events: Task lifecycle events with Watermill (channel or NATS JetStream)
//
//  3. Agent Behavior:
//     - Scheduler: Pass cadence and per-task timeouts
//     - Health: Upstream health gate for scheduled runs
//     - Logs: Daily log file output and retention
//     - State: Application state paths to archive
//
//  4. API & Security:
//     - Server: HTTP server configuration (port, host, timeout)
//     - Security: Authentication, rate limiting, session management
//
//  5. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Loki.URL, cfg.Remote.Backend, etc. are now populated
//
// Validation:
// The Load() function validates all required fields and returns an error if:
//   - Required settings are missing for an enabled collector (e.g. LOKI_URL)
//   - Values are malformed (invalid URL format, out-of-range numbers)
//   - Authentication is enabled but credentials are incomplete
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Health     HealthConfig     `koanf:"health"`
	Loki       LokiConfig       `koanf:"loki"`
	Prometheus PrometheusConfig `koanf:"prometheus"`
	Grafana    GrafanaConfig    `koanf:"grafana"`
	Remote     RemoteConfig     `koanf:"remote"`
	Logs       LogsConfig       `koanf:"logs"`
	State      StateConfig      `koanf:"state"`
	Journal    JournalConfig    `koanf:"journal"`
	Events     EventsConfig     `koanf:"events"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SchedulerConfig holds scheduling cadence settings.
//
// The scheduler wakes every CheckInterval, runs one pass over all registered
// tasks, and goes back to sleep. Individual tasks only run when their own
// schedule period has elapsed, so CheckInterval bounds scheduling latency
// rather than task frequency.
//
// Environment Variables:
//   - CHECK_INTERVAL: Pass cadence (default: 10m)
//   - TASK_TIMEOUT: Per-task run timeout (default: 30m)
type SchedulerConfig struct {
	CheckInterval time.Duration `koanf:"check_interval"`
	TaskTimeout   time.Duration `koanf:"task_timeout"`
}

// HealthConfig holds the upstream health gate settings.
//
// When URL is set, each scheduled pass probes it before running tasks and
// skips the pass when the probe does not return a 2xx status. An empty URL
// disables the gate entirely. Per-task schedule entries can override the
// gate with their overrideAppHealthStatus flag.
//
// Environment Variables:
//   - HEALTH_URL: Health endpoint to probe before scheduled passes
//   - HEALTH_TIMEOUT: Probe request timeout (default: 5s)
type HealthConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LokiConfig holds Loki log collection settings.
//
// The collector pages backwards through the query_range API from the current
// time toward the oldest entry it has already seen, PageSize entries per
// query, and appends new records to the daily log file.
//
// Environment Variables:
//   - LOKI_ENABLED: Enable log collection (default: false)
//   - LOKI_URL: Loki base URL (e.g. http://localhost:3100)
//   - LOKI_QUERY: LogQL stream selector (default: {job=~".+"})
//   - LOKI_PAGE_SIZE: Entries per query_range call (default: 1000)
//   - LOKI_LOOKBACK: Horizon for the first collection (default: 24h)
//   - LOKI_RATE_LIMIT: query_range requests per second (default: 5)
//   - LOKI_TIMEOUT: Per-request timeout (default: 30s)
type LokiConfig struct {
	Enabled   bool          `koanf:"enabled"`
	URL       string        `koanf:"url"`
	Query     string        `koanf:"query"`
	PageSize  int           `koanf:"page_size"`
	Lookback  time.Duration `koanf:"lookback"`
	RateLimit float64       `koanf:"rate_limit"`
	Timeout   time.Duration `koanf:"timeout"`
}

// PrometheusConfig holds Prometheus TSDB snapshot settings.
//
// Snapshots are requested through the admin API (POST /api/v1/admin/tsdb/snapshot),
// which writes them under the Prometheus data directory. SnapshotDir must point
// at that snapshots directory (typically a shared mount) so the agent can
// archive and upload the result.
//
// Environment Variables:
//   - PROMETHEUS_ENABLED: Enable TSDB snapshot collection (default: false)
//   - PROMETHEUS_URL: Prometheus base URL (requires --web.enable-admin-api)
//   - PROMETHEUS_SNAPSHOT_DIR: Local path of the snapshots directory
//   - PROMETHEUS_SKIP_HEAD: Skip head block in snapshots (default: true)
//   - PROMETHEUS_TIMEOUT: Snapshot request timeout (default: 60s)
type PrometheusConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url"`
	SnapshotDir string        `koanf:"snapshot_dir"`
	SkipHead    bool          `koanf:"skip_head"`
	Timeout     time.Duration `koanf:"timeout"`
}

// GrafanaConfig holds Grafana dashboard export settings.
//
// Environment Variables:
//   - GRAFANA_ENABLED: Enable dashboard export (default: false)
//   - GRAFANA_URL: Grafana base URL (e.g. http://localhost:3000)
//   - GRAFANA_API_KEY: Service account token with dashboards:read scope
//   - GRAFANA_TIMEOUT: Per-request timeout (default: 30s)
type GrafanaConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// RemoteConfig holds the archive destination settings.
//
// Backend selects the store implementation: "dir" writes documents under a
// local directory (useful for testing and NFS mounts), "gcs" uploads them to
// a Google Cloud Storage bucket. Keep bounds how many generations of each
// uploaded archive family are retained remotely.
//
// Environment Variables:
//   - REMOTE_BACKEND: Store backend, "dir" or "gcs" (default: dir)
//   - REMOTE_KEEP: Archive generations to retain per family (default: 5)
//   - REMOTE_DIR_PATH: Root directory for the dir backend (default: ./remote)
//   - GCS_BUCKET: Bucket name for the gcs backend
//   - GCS_PREFIX: Object name prefix inside the bucket
//   - GCS_CREDENTIALS_FILE: Service account key file (optional, ADC otherwise)
type RemoteConfig struct {
	Backend string          `koanf:"backend"`
	Keep    int             `koanf:"keep"`
	Dir     DirRemoteConfig `koanf:"dir"`
	GCS     GCSRemoteConfig `koanf:"gcs"`
}

// DirRemoteConfig holds settings for the directory-backed remote store.
type DirRemoteConfig struct {
	Path string `koanf:"path"`
}

// GCSRemoteConfig holds settings for the Google Cloud Storage remote store.
type GCSRemoteConfig struct {
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	CredentialsFile string `koanf:"credentials_file"`
}

// LogsConfig holds daily log file output settings.
//
// Collected log records are appended newest-first to logs-<dd-MM>.log inside
// Dir. Keep is the number of daily files retained locally; older files are
// deleted after each collection. Dedup enables the journal-backed line index
// that drops records already written in a previous run.
//
// Environment Variables:
//   - LOGS_DIR: Output directory for daily log files (default: ./logs)
//   - LOGS_KEEP: Daily files to retain (default: 7)
//   - LOGS_DEDUP: Enable journal-backed line dedup (default: false)
type LogsConfig struct {
	Dir   string `koanf:"dir"`
	Keep  int    `koanf:"keep"`
	Dedup bool   `koanf:"dedup"`
}

// StateConfig holds application state archive settings.
//
// Paths lists the files and directories bundled into the state archive
// (tar.gz plus sha256 sidecar). WorkDir is the staging directory where the
// archive is assembled before upload.
//
// Environment Variables:
//   - STATE_PATHS: Comma-separated files/directories to archive
//   - STATE_WORK_DIR: Staging directory for archives (default: ./work)
type StateConfig struct {
	Paths   []string `koanf:"paths"`
	WorkDir string   `koanf:"work_dir"`
}

// JournalConfig holds run journal settings.
//
// When Path is set, run outcomes and the dedup index are persisted in a
// BadgerDB database at that path and survive restarts. An empty Path keeps
// the journal in memory only.
//
// Environment Variables:
//   - JOURNAL_PATH: BadgerDB directory (empty = in-memory journal)
//   - JOURNAL_SEEN_TTL: Dedup index entry lifetime (default: 168h)
//   - JOURNAL_HISTORY: Run records retained for the API (default: 512)
type JournalConfig struct {
	Path    string        `koanf:"path"`
	SeenTTL time.Duration `koanf:"seen_ttl"`
	History int           `koanf:"history"`
}

// EventsConfig holds task lifecycle event settings.
//
// Mode selects the Watermill transport: "channel" publishes on an in-process
// Go channel bus, "nats" publishes to NATS JetStream (requires a build with
// the nats tag).
//
// Environment Variables:
//   - EVENTS_MODE: Event transport, "channel" or "nats" (default: channel)
//   - NATS_URL: NATS server URL (default: nats://localhost:4222)
//   - NATS_EMBEDDED: Run an embedded JetStream server (default: false)
//   - NATS_STORE_DIR: Storage directory for the embedded server
type EventsConfig struct {
	Mode string           `koanf:"mode"`
	NATS NATSEventsConfig `koanf:"nats"`
}

// NATSEventsConfig holds NATS JetStream transport settings.
type NATSEventsConfig struct {
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // Environment mode: "development", "staging", "production" (default: "development")
}

// SecurityConfig holds authentication and authorization settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// JSON is recommended for production (structured, machine-parseable).
	// Console is human-readable for development.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Adds slight performance overhead.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, an optional YAML config file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// CollectorCount returns how many collection sources are enabled.
func (c *Config) CollectorCount() int {
	count := 0
	for _, enabled := range []bool{c.Loki.Enabled, c.Prometheus.Enabled, c.Grafana.Enabled} {
		if enabled {
			count++
		}
	}
	return count
}

// HasAnyCollector reports whether at least one collection source is enabled.
// State archiving is always available, so a config with no collectors is
// still valid; this exists for startup diagnostics.
func (c *Config) HasAnyCollector() bool {
	return c.CollectorCount() > 0
}
