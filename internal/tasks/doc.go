// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package tasks holds the production task set run by the scheduler.
//
// Four tasks cover the monitoring stack:
//
//	loki-logs           collect log records, write the daily file, upload it
//	app-state           archive configured state paths, upload with checksum
//	prometheus-tsdb     trigger a TSDB snapshot, archive and upload it
//	grafana-dashboards  render every dashboard to PNG, upload the set
//
// Uploads land in the remote store under a per-task scope prefix:
//
//	logs/logs-25-08.log
//	state/state-20260825T120000Z.tar.gz        (+ .sha256 sidecar)
//	tsdb/tsdb-20260825T120000Z-6f69f0b0.tar.gz (+ .sha256 sidecar)
//	dashboards/20260825T120000Z/home.png
//
// After each upload the task prunes remote generations beyond the
// configured keep count, mirroring the local dated-file retention.
// Whether a task runs at all is decided at wiring time: cmd/tabularium
// registers only the tasks whose config section is enabled.
package tasks
