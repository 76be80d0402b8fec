// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package api

import "strings"

// ScheduleUpdateRequest is the body of PUT /schedule/{task}. Absent fields
// leave the entry untouched, so the booleans are pointers and an empty
// period means "keep the current cadence".
//
// The JSON names match the persisted schedule document.
type ScheduleUpdateRequest struct {
	Period                  string `json:"schedule" validate:"omitempty,oneof=HOURLY DAILY WEEKLY"`
	DisableUpdates          *bool  `json:"disableUpdates"`
	OverrideAppHealthStatus *bool  `json:"overrideAppHealthStatus"`
}

// Normalize folds the period to its canonical uppercase form before
// validation, mirroring schedule.ParsePeriod's case handling.
func (r *ScheduleUpdateRequest) Normalize() {
	r.Period = strings.ToUpper(strings.TrimSpace(r.Period))
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RunsRequest holds the validated query parameters of GET /runs.
type RunsRequest struct {
	Limit int `validate:"min=1,max=500"`
}
