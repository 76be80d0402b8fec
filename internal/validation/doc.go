// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps the library in a thread-safe singleton with user-friendly error
// messages and a converter into the admin API's error envelope. The API
// handlers validate every decoded request body and query parameter set
// through ValidateStruct before acting on it.
//
// # Quick Start
//
//	type ScheduleUpdateRequest struct {
//	    Period string `validate:"omitempty,oneof=HOURLY DAILY WEEKLY"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Code / apiErr.Message / apiErr.Details
//	}
//
// # Error Message Translation
//
// Human-readable messages are generated for the tags the API uses:
//
//	required       -> "Username is required"
//	min=1 (int)    -> "Limit must be at least 1"
//	max=500 (int)  -> "Limit must be at most 500"
//	min=3 (string) -> "Username must be at least 3 characters"
//	oneof=a b      -> "Period must be one of: a b"
//
// The singleton validator caches struct reflection information, so repeated
// validation of the same request types is cheap.
package validation
