// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package api implements the admin HTTP API served in daemon mode.
//
// The surface is small: health probes, the agent's status, the schedule
// document, manual task and pass triggers, recent run records, and login
// for jwt deployments. All routes live under /api/v1 on a chi router with
// per-group rate limits; Prometheus metrics and Swagger UI hang off the
// root.
//
//	GET  /api/v1/health/live       liveness probe
//	GET  /api/v1/health/ready      readiness probe (remote store + journal)
//	GET  /api/v1/status            last pass report and per-task state
//	GET  /api/v1/schedule          the persisted schedule document
//	PUT  /api/v1/schedule/{task}   adjust one task's entry
//	POST /api/v1/tasks/{task}/run  manual single-task trigger (?force=1)
//	POST /api/v1/pass              manual full pass trigger
//	GET  /api/v1/runs              recent run records (?limit=)
//	POST /api/v1/auth/login        token issuance (jwt mode)
//	GET  /metrics                  Prometheus metrics
//	GET  /swagger/*                Swagger UI
//
// Every response uses the APIResponse envelope. Mutating routes sit
// behind RequireRole("admin"); in auth mode "none" the gates are inert.
// Manual triggers share the scheduler's single-pass lock and answer 409
// while a pass is in flight.
package api
