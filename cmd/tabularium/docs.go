// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package main provides the Tabularium backup agent HTTP API
//
// Tabularium archives Loki logs, Prometheus TSDB snapshots, Grafana
// dashboards, and application state files to a remote store on a
// per-task schedule.
//
// @title Tabularium API
// @version 1.0
// @description Monitoring stack backup and archival agent
// @description
// @description ## Scheduling Model
// @description
// @description Each backup task carries a period (HOURLY, DAILY, WEEKLY) in a schedule
// @description document stored next to the backups themselves. A scheduling pass walks
// @description the registered tasks and runs the ones whose period has elapsed, gated
// @description on the monitored application's health endpoint. Tasks can be triggered
// @description manually and the gates bypassed with force=true.
// @description
// @description ## Authentication
// @description
// @description AUTH_MODE selects none, basic, or jwt. In jwt mode, obtain a token via
// @description /api/v1/auth/login; it is set as an HTTP-only cookie and also returned
// @description in the body for Authorization: Bearer use. Schedule updates and manual
// @description triggers require the admin role.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Rate limit headers are included in responses: `X-RateLimit-Limit`, `X-RateLimit-Remaining`, `X-RateLimit-Reset`.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "meta": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/tabularium/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8220
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in cookie
// @name token
// @description JWT stored in an HTTP-only cookie. Obtain via /api/v1/auth/login.
//
// @tag.name Health
// @tag.description Liveness and readiness probes
//
// @tag.name Status
// @tag.description Agent status and run history
//
// @tag.name Schedule
// @tag.description Schedule document inspection and per-task overrides
//
// @tag.name Tasks
// @tag.description Manual task and pass triggers
//
// @tag.name Auth
// @tag.description Authentication and session management
package main
