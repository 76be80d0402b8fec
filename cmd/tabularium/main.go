// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package main is the entry point for the Tabularium backup agent.
//
// Tabularium is a self-hosted backup agent for a small monitoring stack.
// It archives Loki log windows, Prometheus TSDB snapshots, Grafana
// dashboard exports, and application state files to a remote store,
// each on its own schedule, gated on the health of the monitored
// application.
//
// # Application Architecture
//
// The agent runs under Suture v4 process supervision:
//
//	RootSupervisor ("tabularium")
//	├── CoreSupervisor ("core-layer")
//	│   └── Scheduler service (periodic backup passes)
//	└── APISupervisor ("api-layer")
//	    └── HTTP server (REST API with Swagger documentation)
//
// Component initialization order:
//
//  1. Configuration: Koanf v2 with environment variables and config files
//  2. Logging: zerolog with JSON/console output modes
//  3. Remote store: directory backend or Google Cloud Storage
//  4. Run journal: BadgerDB persistence or in-memory fallback
//  5. Backup tasks: one per enabled collector, plus application state
//  6. Scheduler: pass loop with per-task periods and the health gate
//  7. Authentication: JWT, Basic Auth, or no-auth mode
//  8. Supervisor tree: Suture v4 process supervision
//  9. HTTP server: Chi router with middleware stack
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (see config.example.yaml)
//   - Config file (config.yaml, or TABULARIUM_CONFIG_PATH)
//   - Built-in defaults
//
// Collectors are opt-in. With none enabled the agent still archives
// application state:
//   - Loki: LOKI_ENABLED=true, LOKI_URL
//   - Prometheus: PROMETHEUS_ENABLED=true, PROMETHEUS_URL
//   - Grafana: GRAFANA_ENABLED=true, GRAFANA_URL, GRAFANA_API_KEY
//
// For JWT authentication:
//   - AUTH_MODE=jwt
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME / ADMIN_PASSWORD: admin credentials
//
// # Signal Handling
//
// The agent handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new HTTP connections
//   - Waits for in-flight requests and the current pass to complete
//   - Flushes and closes the run journal and remote store
//
// # Example Usage
//
// Archive Loki logs to a local directory, no auth (development):
//
//	export LOKI_ENABLED=true
//	export LOKI_URL=http://localhost:3100
//	export REMOTE_BACKEND=dir
//	export REMOTE_DIR_PATH=/var/backups/tabularium
//	export AUTH_MODE=none
//	./tabularium
//
// Full stack to Google Cloud Storage with JWT auth:
//
//	export LOKI_ENABLED=true LOKI_URL=http://loki:3100
//	export PROMETHEUS_ENABLED=true PROMETHEUS_URL=http://prometheus:9090
//	export GRAFANA_ENABLED=true GRAFANA_URL=http://grafana:3000 GRAFANA_API_KEY=...
//	export REMOTE_BACKEND=gcs GCS_BUCKET=my-backups
//	export AUTH_MODE=jwt JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin ADMIN_PASSWORD=secure-password
//	./tabularium
//
// One-shot pass from cron instead of the built-in scheduler:
//
//	./tabularium -once
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/tabularium/docs" // Import generated swagger docs
	"github.com/tomtom215/tabularium/internal/api"
	"github.com/tomtom215/tabularium/internal/archive"
	"github.com/tomtom215/tabularium/internal/auth"
	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/events"
	"github.com/tomtom215/tabularium/internal/journal"
	"github.com/tomtom215/tabularium/internal/logging"
	"github.com/tomtom215/tabularium/internal/logs"
	"github.com/tomtom215/tabularium/internal/monitor"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
	"github.com/tomtom215/tabularium/internal/supervisor"
	"github.com/tomtom215/tabularium/internal/tasks"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/tabularium
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file (overrides TABULARIUM_CONFIG_PATH)")
	once := flag.Bool("once", false, "Run a single scheduling pass and exit (for cron)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tabularium", version)
		return
	}

	if *configPath != "" {
		os.Setenv(config.ConfigPathEnvVar, *configPath)
	}

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Tabularium")

	if cfg.HasAnyCollector() {
		logging.Info().
			Int("collectors", cfg.CollectorCount()).
			Str("remote_backend", cfg.Remote.Backend).
			Str("auth_mode", cfg.Security.AuthMode).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Str("remote_backend", cfg.Remote.Backend).
			Str("auth_mode", cfg.Security.AuthMode).
			Msg("Configuration loaded (no collectors enabled, only application state will be archived)")
	}

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  All endpoints, including manual triggers, are publicly accessible.")
		logging.Warn().Msg("  Use this mode only on isolated networks or for local development.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.AuthMode == "basic" {
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remoteStore, err := remote.New(ctx, cfg.Remote)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize remote store")
	}
	defer func() {
		if err := remoteStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing remote store")
		}
	}()
	logging.Info().Str("backend", cfg.Remote.Backend).Msg("Remote store initialized")

	// Run journal: BadgerDB when a path is configured, in-memory otherwise.
	var jrnl journal.Journal
	if cfg.Journal.Path == "" {
		jrnl = journal.NewMemory(cfg.Journal)
		logging.Info().Msg("Run journal is in-memory (JOURNAL_PATH not set, history is lost on restart)")
	} else {
		badgerJournal, err := journal.Open(cfg.Journal, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open run journal")
		}
		jrnl = badgerJournal
		logging.Info().Str("path", cfg.Journal.Path).Msg("Run journal opened")
	}
	defer func() {
		if err := jrnl.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run journal")
		}
	}()

	store := schedule.NewStore(remoteStore, logging.Logger())
	registry := schedule.NewRegistry()
	registerTasks(cfg, registry, remoteStore, jrnl)
	logging.Info().Strs("tasks", registry.Names()).Msg("Backup tasks registered")

	probe := monitor.NewAppProbe(cfg.Health, logging.Logger())
	if cfg.Health.URL == "" {
		logging.Info().Msg("Health gate disabled (HEALTH_URL not set, tasks always run)")
	}

	scheduler := schedule.NewScheduler(registry, store, probe, logging.Logger())
	scheduler.SetTaskTimeout(cfg.Scheduler.TaskTimeout)
	scheduler.AddObserver(journal.NewRecorder(jrnl, logging.Logger()))

	// Event bus: in-process channel by default, NATS JetStream with
	// EVENTS_MODE=nats (requires a build with -tags nats).
	var bus events.Bus
	if cfg.Events.Mode == "nats" {
		natsBus, err := events.NewNATSBus(cfg.Events.NATS, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect event bus to NATS")
		}
		bus = natsBus
		logging.Info().Str("url", cfg.Events.NATS.URL).Msg("NATS event bus connected")
	} else {
		bus = events.NewChannelBus(logging.Logger())
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	scheduler.AddObserver(events.NewNotifier(bus, logging.Logger()))

	if *once {
		code := runOnce(ctx, scheduler)
		// os.Exit skips deferred calls; close resources explicitly,
		// newest first.
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
		if err := jrnl.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run journal")
		}
		if err := remoteStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing remote store")
		}
		os.Exit(code)
	}

	authMiddleware, err := auth.NewMiddleware(cfg.Security, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handler := api.NewHandler(scheduler, store, registry, jrnl, remoteStore, authMiddleware, version, logging.Logger())
	router := api.NewRouter(handler, authMiddleware, cfg.Security, logging.Logger())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	tree.AddCoreService(supervisor.NewSchedulerService(scheduler, cfg.Scheduler.CheckInterval, logging.Logger()))
	tree.AddAPIService(supervisor.NewAPIService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Agent stopped gracefully")
}

// registerTasks builds one backup task per enabled collector and always
// the application state task. Registration failures are impossible here
// (names are distinct constants) but logged anyway.
func registerTasks(cfg *config.Config, registry *schedule.Registry, remoteStore remote.Store, jrnl journal.Journal) {
	logger := logging.Logger()
	keep := cfg.Remote.Keep

	if cfg.Loki.Enabled {
		lokiClient := monitor.NewLokiClient(cfg.Loki, logger)
		querySource := monitor.NewBreakerQuerySource(lokiClient, logger)
		aggregator := logs.NewAggregator(querySource, logger)

		// The journal doubles as the dedup index: content hashes share
		// its TTL expiry.
		var dedup logs.DedupIndex
		if cfg.Logs.Dedup {
			dedup = jrnl
		}
		writer := logs.NewWriter(cfg.Logs.Dir, dedup, logger)

		register(registry, tasks.NewLokiLogs(cfg.Loki, cfg.Logs, aggregator, writer, remoteStore, keep, logger))
		logging.Info().Str("url", cfg.Loki.URL).Bool("dedup", cfg.Logs.Dedup).Msg("Loki log collection enabled")
	}

	if cfg.Prometheus.Enabled {
		promClient := monitor.NewPrometheusClient(cfg.Prometheus, logger)
		register(registry, tasks.NewTSDB(cfg.Prometheus, promClient, archive.NewBuilder(logger), remoteStore, cfg.State.WorkDir, keep, logger))
		logging.Info().Str("url", cfg.Prometheus.URL).Bool("skip_head", cfg.Prometheus.SkipHead).Msg("Prometheus snapshot task enabled")
	}

	if cfg.Grafana.Enabled {
		grafanaClient := monitor.NewGrafanaClient(cfg.Grafana, logger)
		register(registry, tasks.NewDashboards(grafanaClient, remoteStore, keep, logger))
		logging.Info().Str("url", cfg.Grafana.URL).Msg("Grafana dashboard export enabled")
	}

	register(registry, tasks.NewAppState(cfg.State, archive.NewBuilder(logger), remoteStore, keep, logger))
}

func register(registry *schedule.Registry, task schedule.Task) {
	if err := registry.Register(task); err != nil {
		logging.Error().Err(err).Str("task", task.Name()).Msg("Failed to register task")
	}
}

// runOnce executes a single scheduling pass and returns the process
// exit code. Individual task failures are contained in the pass report
// and do not fail the run; only being unable to execute a pass at all
// does.
func runOnce(ctx context.Context, scheduler *schedule.Scheduler) int {
	logging.Info().Msg("Running a single pass (-once)")

	report, err := scheduler.RunPass(ctx, time.Now())
	if err != nil {
		logging.Error().Err(err).Msg("Pass failed to run")
		return 1
	}

	logEvent := logging.Info
	if report.Failed > 0 {
		logEvent = logging.Warn
	}
	logEvent().
		Str("pass_id", report.ID).
		Int("ran", report.Ran).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Pass complete")
	return 0
}
