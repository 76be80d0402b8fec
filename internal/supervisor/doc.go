// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

/*
Package supervisor runs the daemon's long-lived services under suture v4.

The tree has two child supervisors for failure isolation:

	root ("tabularium")
	├── core ("core-layer")
	│   └── SchedulerService (ticker, one pass per interval)
	└── api ("api-layer")
	    └── APIService (http.Server with graceful shutdown)

A crashing scheduler pass is restarted with backoff without tearing down
the HTTP server, and vice versa. Supervision events (starts, failures,
backoff) are logged through a sutureslog handler bridged into the
application's zerolog output.

Service wrappers translate between suture's context-driven Serve
contract and the wrapped component's own lifecycle: the scheduler runs
until its context ends, the HTTP server gets a bounded Shutdown after
cancellation.
*/
package supervisor
