// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateHealth(); err != nil {
		return err
	}

	if err := c.validateLoki(); err != nil {
		return err
	}

	if err := c.validatePrometheus(); err != nil {
		return err
	}

	if err := c.validateGrafana(); err != nil {
		return err
	}

	if err := c.validateRemote(); err != nil {
		return err
	}

	if err := c.validateLogs(); err != nil {
		return err
	}

	if err := c.validateJournal(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// Scheduler bounds constants
const (
	minCheckInterval = 10 * time.Second
	maxCheckInterval = 24 * time.Hour
)

// validateScheduler validates scheduling cadence bounds
func (c *Config) validateScheduler() error {
	if c.Scheduler.CheckInterval < minCheckInterval || c.Scheduler.CheckInterval > maxCheckInterval {
		return fmt.Errorf("CHECK_INTERVAL must be between %v and %v", minCheckInterval, maxCheckInterval)
	}
	if c.Scheduler.TaskTimeout <= 0 {
		return fmt.Errorf("TASK_TIMEOUT must be positive")
	}
	return nil
}

// validateHealth validates the health gate configuration.
// An empty URL is valid and disables the gate.
func (c *Config) validateHealth() error {
	if c.Health.URL == "" {
		return nil
	}
	if err := validateEndpointURL(c.Health.URL, "HEALTH_URL"); err != nil {
		return fmt.Errorf("HEALTH_URL is invalid: %w", err)
	}
	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_TIMEOUT must be positive")
	}
	return nil
}

// validateLoki validates Loki collector configuration (only if enabled)
func (c *Config) validateLoki() error {
	if !c.Loki.Enabled {
		return nil
	}

	if err := c.validateLokiURL(); err != nil {
		return err
	}
	return c.validateLokiBounds()
}

// validateLokiURL validates the Loki base URL
func (c *Config) validateLokiURL() error {
	if c.Loki.URL == "" {
		return fmt.Errorf("LOKI_URL is required when LOKI_ENABLED=true")
	}
	if err := validateHTTPURL(c.Loki.URL, "LOKI_URL"); err != nil {
		return fmt.Errorf("LOKI_URL is invalid: %w", err)
	}
	return nil
}

// validateLokiBounds validates Loki paging and rate limit settings
func (c *Config) validateLokiBounds() error {
	if c.Loki.Query == "" {
		return fmt.Errorf("LOKI_QUERY must not be empty when LOKI_ENABLED=true")
	}
	if c.Loki.PageSize < 1 || c.Loki.PageSize > 5000 {
		return fmt.Errorf("LOKI_PAGE_SIZE must be between 1 and 5000")
	}
	if c.Loki.Lookback <= 0 {
		return fmt.Errorf("LOKI_LOOKBACK must be positive")
	}
	if c.Loki.RateLimit <= 0 {
		return fmt.Errorf("LOKI_RATE_LIMIT must be positive")
	}
	return nil
}

// validatePrometheus validates Prometheus collector configuration (only if enabled)
func (c *Config) validatePrometheus() error {
	if !c.Prometheus.Enabled {
		return nil
	}

	if c.Prometheus.URL == "" {
		return fmt.Errorf("PROMETHEUS_URL is required when PROMETHEUS_ENABLED=true")
	}
	if err := validateHTTPURL(c.Prometheus.URL, "PROMETHEUS_URL"); err != nil {
		return fmt.Errorf("PROMETHEUS_URL is invalid: %w", err)
	}
	if c.Prometheus.SnapshotDir == "" {
		return fmt.Errorf("PROMETHEUS_SNAPSHOT_DIR is required when PROMETHEUS_ENABLED=true")
	}
	return nil
}

// validateGrafana validates Grafana collector configuration (only if enabled)
func (c *Config) validateGrafana() error {
	if !c.Grafana.Enabled {
		return nil
	}

	if c.Grafana.URL == "" {
		return fmt.Errorf("GRAFANA_URL is required when GRAFANA_ENABLED=true")
	}
	if err := validateHTTPURL(c.Grafana.URL, "GRAFANA_URL"); err != nil {
		return fmt.Errorf("GRAFANA_URL is invalid: %w", err)
	}
	if c.Grafana.APIKey == "" {
		return fmt.Errorf("GRAFANA_API_KEY is required when GRAFANA_ENABLED=true")
	}
	return nil
}

// validRemoteBackends defines the allowed remote store backends
var validRemoteBackends = map[string]bool{
	"dir": true,
	"gcs": true,
}

// validateRemote validates the archive destination configuration
func (c *Config) validateRemote() error {
	if !validRemoteBackends[c.Remote.Backend] {
		return fmt.Errorf("REMOTE_BACKEND must be one of: dir, gcs")
	}
	if c.Remote.Keep < 1 || c.Remote.Keep > 100 {
		return fmt.Errorf("REMOTE_KEEP must be between 1 and 100")
	}

	switch c.Remote.Backend {
	case "dir":
		if c.Remote.Dir.Path == "" {
			return fmt.Errorf("REMOTE_DIR_PATH is required when REMOTE_BACKEND=dir")
		}
	case "gcs":
		if c.Remote.GCS.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when REMOTE_BACKEND=gcs")
		}
	}
	return nil
}

// validateLogs validates daily log file settings
func (c *Config) validateLogs() error {
	if c.Logs.Dir == "" {
		return fmt.Errorf("LOGS_DIR must not be empty")
	}
	if c.Logs.Keep < 1 || c.Logs.Keep > 365 {
		return fmt.Errorf("LOGS_KEEP must be between 1 and 365")
	}
	return nil
}

// validateJournal validates run journal settings
func (c *Config) validateJournal() error {
	if c.Journal.SeenTTL <= 0 {
		return fmt.Errorf("JOURNAL_SEEN_TTL must be positive")
	}
	if c.Journal.History < 1 || c.Journal.History > 100000 {
		return fmt.Errorf("JOURNAL_HISTORY must be between 1 and 100000")
	}
	return nil
}

// validEventModes defines the allowed event transports
var validEventModes = map[string]bool{
	"channel": true,
	"nats":    true,
}

// validateEvents validates event transport configuration
func (c *Config) validateEvents() error {
	if !validEventModes[c.Events.Mode] {
		return fmt.Errorf("EVENTS_MODE must be one of: channel, nats")
	}
	if c.Events.Mode == "nats" && !c.Events.NATS.Embedded {
		if c.Events.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_MODE=nats")
		}
		if err := validateNATSURL(c.Events.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	return c.validateAuthModeConfig()
}

// validateAuthModeConfig validates configuration for the selected auth mode
func (c *Config) validateAuthModeConfig() error {
	switch c.Security.AuthMode {
	case "jwt":
		return c.validateJWTAuth()
	case "basic":
		return c.validateBasicAuth()
	}
	return nil
}

// validateCORS checks for dangerous CORS configurations.
// Wildcard origins combined with authentication allow any website to make
// authenticated requests against the API using stolen credentials.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Either set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
}

// validateAuthMode checks if auth mode is valid
func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic")
	}

	return c.validateAuthModeForEnvironment()
}

// validateAuthModeForEnvironment ensures AUTH_MODE is appropriate for the environment.
// Refusing AUTH_MODE=none in production prevents accidental deployment of an
// unauthenticated admin API.
func (c *Config) validateAuthModeForEnvironment() error {
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Either set AUTH_MODE to a secure option (jwt, basic) " +
			"or use ENVIRONMENT=development for testing purposes")
	}

	return nil
}

// IsProduction returns true if the agent is running in production mode.
// Production mode is determined by the ENVIRONMENT environment variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the agent is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validateJWTAuth validates JWT authentication configuration
func (c *Config) validateJWTAuth() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	return c.validateAdminCredentials("jwt")
}

// validateJWTSecret validates the JWT secret configuration
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateBasicAuth validates Basic authentication configuration
func (c *Config) validateBasicAuth() error {
	return c.validateAdminCredentials("basic")
}

// validateAdminCredentials validates admin username and password
func (c *Config) validateAdminCredentials(authMode string) error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is %s", authMode)
	}
	return c.validateAdminPassword(authMode)
}

// minAdminPasswordLength is the minimum admin password length accepted at startup.
const minAdminPasswordLength = 12

// validateAdminPassword validates the admin password configuration
func (c *Config) validateAdminPassword(authMode string) error {
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is %s", authMode)
	}
	if len(c.Security.AdminPassword) < minAdminPasswordLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", minAdminPasswordLength)
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if strings.EqualFold(c.Security.AdminPassword, c.Security.AdminUsername) {
		return fmt.Errorf("ADMIN_PASSWORD must not match ADMIN_USERNAME")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log output formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns lists substrings that indicate a placeholder secret
var placeholderPatterns = []string{
	"CHANGEME",
	"CHANGE_ME",
	"CHANGE-ME",
	"PLACEHOLDER",
	"EXAMPLE",
	"YOUR_SECRET",
	"YOUR-SECRET",
	"INSERT_",
	"REPLACE_",
}

// containsPlaceholder checks if a secret value looks like an unchanged placeholder
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
