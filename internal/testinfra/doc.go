// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package testinfra manages Docker containers for integration tests.
//
// Everything here is behind the integration build tag; the default test
// run never touches Docker. Tests that need a real upstream start one
// with the helpers and skip cleanly when Docker is absent:
//
//	func TestLokiQueryRange(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//
//	    loki, err := testinfra.NewLokiContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, loki)
//
//	    // loki.URL is the base URL for query_range and push calls.
//	}
//
// Containers validate the actual API contract instead of a hand-written
// fake, at the cost of Docker and image downloads on first run.
//
// Run with:
//
//	go test -tags=integration ./...
package testinfra
