// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

/*
Package monitor contains the HTTP clients for the monitored stack.

Every outbound dependency of the agent lives here behind a small
interface so tasks and the scheduler can be tested against fakes:

  - AppProbe: application health endpoint, consulted before each pass.
    Fail-closed: any transport or status error counts as unhealthy.
  - LokiClient: Loki query_range client used by the log aggregator.
    Rate limited with a token bucket so pagination cannot hammer the
    query frontend.
  - PrometheusClient: TSDB snapshot trigger via the Prometheus admin
    API.
  - GrafanaClient: dashboard discovery and PNG rendering through the
    Grafana HTTP API.
  - BreakerQuerySource: circuit breaker wrapper around any QuerySource.
    Opens after consecutive query failures so a dead Loki does not eat
    an entire pass worth of retries.

All clients take their configuration section and an injected
zerolog.Logger at construction and honor context cancellation on every
request.
*/
package monitor
