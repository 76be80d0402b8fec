// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tabularium/config.yaml",
	"/etc/tabularium/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "TABULARIUM_CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			CheckInterval: 10 * time.Minute,
			TaskTimeout:   30 * time.Minute,
		},
		Health: HealthConfig{
			URL:     "", // Empty disables the health gate
			Timeout: 5 * time.Second,
		},
		Loki: LokiConfig{
			Enabled:   false,
			URL:       "",
			Query:     `{job=~".+"}`,
			PageSize:  1000,
			Lookback:  24 * time.Hour,
			RateLimit: 5,
			Timeout:   30 * time.Second,
		},
		Prometheus: PrometheusConfig{
			Enabled:     false,
			URL:         "",
			SnapshotDir: "",
			SkipHead:    true,
			Timeout:     60 * time.Second,
		},
		Grafana: GrafanaConfig{
			Enabled: false,
			URL:     "",
			APIKey:  "",
			Timeout: 30 * time.Second,
		},
		Remote: RemoteConfig{
			Backend: "dir",
			Keep:    5,
			Dir: DirRemoteConfig{
				Path: "./remote",
			},
			GCS: GCSRemoteConfig{
				Bucket:          "",
				Prefix:          "tabularium",
				CredentialsFile: "",
			},
		},
		Logs: LogsConfig{
			Dir:   "./logs",
			Keep:  7,
			Dedup: false,
		},
		State: StateConfig{
			Paths:   []string{},
			WorkDir: "./work",
		},
		Journal: JournalConfig{
			Path:    "", // In-memory journal by default
			SeenTTL: 168 * time.Hour,
			History: 512,
		},
		Events: EventsConfig{
			Mode: "channel",
			NATS: NATSEventsConfig{
				URL:      "nats://localhost:4222",
				Embedded: false,
				StoreDir: "",
			},
		},
		Server: ServerConfig{
			Port:        8220,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf reads configuration using the layered Koanf loader.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// LOKI_URL -> loki.url
	// CHECK_INTERVAL -> scheduler.check_interval
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"state.paths",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Only explicitly mapped variables are honored so that unrelated environment
// variables cannot pollute the configuration.
//
// Examples:
//   - LOKI_URL -> loki.url
//   - LOKI_PAGE_SIZE -> loki.page_size
//   - CHECK_INTERVAL -> scheduler.check_interval
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Scheduler mappings
		"check_interval": "scheduler.check_interval",
		"task_timeout":   "scheduler.task_timeout",

		// Health gate mappings
		"health_url":     "health.url",
		"health_timeout": "health.timeout",

		// Loki collector mappings
		"loki_enabled":    "loki.enabled",
		"loki_url":        "loki.url",
		"loki_query":      "loki.query",
		"loki_page_size":  "loki.page_size",
		"loki_lookback":   "loki.lookback",
		"loki_rate_limit": "loki.rate_limit",
		"loki_timeout":    "loki.timeout",

		// Prometheus collector mappings
		"prometheus_enabled":      "prometheus.enabled",
		"prometheus_url":          "prometheus.url",
		"prometheus_snapshot_dir": "prometheus.snapshot_dir",
		"prometheus_skip_head":    "prometheus.skip_head",
		"prometheus_timeout":      "prometheus.timeout",

		// Grafana collector mappings
		"grafana_enabled": "grafana.enabled",
		"grafana_url":     "grafana.url",
		"grafana_api_key": "grafana.api_key",
		"grafana_timeout": "grafana.timeout",

		// Remote store mappings
		"remote_backend":       "remote.backend",
		"remote_keep":          "remote.keep",
		"remote_dir_path":      "remote.dir.path",
		"gcs_bucket":           "remote.gcs.bucket",
		"gcs_prefix":           "remote.gcs.prefix",
		"gcs_credentials_file": "remote.gcs.credentials_file",

		// Log output mappings
		"logs_dir":   "logs.dir",
		"logs_keep":  "logs.keep",
		"logs_dedup": "logs.dedup",

		// State archive mappings
		"state_paths":    "state.paths",
		"state_work_dir": "state.work_dir",

		// Journal mappings
		"journal_path":     "journal.path",
		"journal_seen_ttl": "journal.seen_ttl",
		"journal_history":  "journal.history",

		// Event transport mappings
		"events_mode":    "events.mode",
		"nats_url":       "events.nats.url",
		"nats_embedded":  "events.nats.embedded",
		"nats_store_dir": "events.nats.store_dir",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Security mappings
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"rate_limit_disabled": "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage.
// This is useful for:
//   - Hot-reload scenarios (with proper mutex protection)
//   - Custom configuration sources
//   - Testing with mock configurations
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
//
// Example usage:
//
//	var cfgMu sync.RWMutex
//	var cfg *Config
//
//	err := WatchConfigFile(configPath, func() {
//	    cfgMu.Lock()
//	    defer cfgMu.Unlock()
//	    newCfg, err := LoadWithKoanf()
//	    if err != nil {
//	        log.Printf("Config reload failed: %v", err)
//	        return
//	    }
//	    cfg = newCfg
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	// Start watching the file for changes
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
