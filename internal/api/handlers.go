// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/auth"
	"github.com/tomtom215/tabularium/internal/journal"
	"github.com/tomtom215/tabularium/internal/remote"
	"github.com/tomtom215/tabularium/internal/schedule"
	"github.com/tomtom215/tabularium/internal/validation"
)

// defaultRunsLimit is used when GET /runs carries no limit parameter.
const defaultRunsLimit = 50

// Handler implements the admin API endpoints.
type Handler struct {
	scheduler *schedule.Scheduler
	store     *schedule.Store
	registry  *schedule.Registry
	journal   journal.Journal
	remote    remote.Store
	auth      *auth.Middleware
	version   string
	logger    zerolog.Logger
	startTime time.Time
	now       func() time.Time
}

// NewHandler wires a handler over the agent's collaborators.
func NewHandler(scheduler *schedule.Scheduler, store *schedule.Store, registry *schedule.Registry, jrnl journal.Journal, remoteStore remote.Store, authMW *auth.Middleware, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		scheduler: scheduler,
		store:     store,
		registry:  registry,
		journal:   jrnl,
		remote:    remoteStore,
		auth:      authMW,
		version:   version,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		now:       time.Now,
	}
}

// TaskState is one task's entry in the status view: the persisted schedule
// entry merged with registration state and the computed due time.
type TaskState struct {
	Name                    string          `json:"name"`
	Registered              bool            `json:"registered"`
	Period                  schedule.Period `json:"schedule"`
	LastUpdate              time.Time       `json:"lastUpdate"`
	NextDue                 *time.Time      `json:"nextDue,omitempty"`
	DisableUpdates          bool            `json:"disableUpdates"`
	OverrideAppHealthStatus bool            `json:"overrideAppHealthStatus"`
}

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	Version       string               `json:"version"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	AuthMode      string               `json:"auth_mode"`
	LastPass      *schedule.PassReport `json:"last_pass,omitempty"`
	Tasks         []TaskState          `json:"tasks"`
}

// LoginResponse is the POST /auth/login payload.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// HealthLive handles liveness probe requests.
//
// @Summary Liveness probe
// @Description Returns 200 OK while the process is alive, regardless of external dependencies.
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests. Ready means the remote
// store answers and the journal is open; the upstream application's own
// health is deliberately not part of readiness, the scheduler handles an
// unhealthy application by skipping tasks.
//
// @Summary Readiness probe
// @Description Returns 200 OK when the remote store is reachable and the run journal is open, 503 otherwise.
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Service is ready"
// @Failure 503 {object} APIResponse "Dependencies unavailable"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	remoteReachable := h.remoteReachable(ctx)
	_, journalErr := h.journal.LastPass(ctx)
	journalOpen := journalErr == nil

	checks := map[string]interface{}{
		"remote_reachable": remoteReachable,
		"journal_open":     journalOpen,
		"ready":            remoteReachable && journalOpen,
	}
	if remoteReachable && journalOpen {
		rw.Success(checks)
		return
	}
	rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service dependencies unavailable", checks)
}

// remoteReachable probes the remote store with a cheap metadata lookup.
// A missing schedule document still proves the store answers.
func (h *Handler) remoteReachable(ctx context.Context) bool {
	_, err := h.remote.Find(ctx, schedule.DocumentName)
	return err == nil || errors.Is(err, remote.ErrNotFound)
}

// Status reports the last pass and the merged per-task schedule state.
//
// @Summary Agent status
// @Description Returns the most recent pass report and every task's schedule entry, registration state, and next due time.
// @Tags Status
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=StatusResponse} "Status retrieved"
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lastPass, err := h.journal.LastPass(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read last pass from journal")
		lastPass = h.scheduler.LastReport()
	}

	NewResponseWriter(w, r).Success(StatusResponse{
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		AuthMode:      string(h.auth.Mode()),
		LastPass:      lastPass,
		Tasks:         h.taskStates(h.store.Load(ctx)),
	})
}

// taskStates merges registered tasks with the persisted schedule. Entries
// for unregistered tasks (disabled integrations) are kept and flagged, so
// operators can see stale state instead of wondering where it went.
func (h *Handler) taskStates(sched schedule.Schedule) []TaskState {
	registered := make(map[string]struct{})
	states := make([]TaskState, 0, len(sched))

	for _, name := range h.registry.Names() {
		registered[name] = struct{}{}
		meta, ok := sched[name]
		if !ok {
			task, _ := h.registry.Get(name)
			meta = schedule.TaskMeta{Period: task.DefaultPeriod()}
		}
		states = append(states, newTaskState(name, true, meta))
	}

	var orphans []string
	for name := range sched {
		if _, ok := registered[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		states = append(states, newTaskState(name, false, sched[name]))
	}
	return states
}

func newTaskState(name string, registered bool, meta schedule.TaskMeta) TaskState {
	state := TaskState{
		Name:                    name,
		Registered:              registered,
		Period:                  meta.Period,
		LastUpdate:              meta.LastUpdate,
		DisableUpdates:          meta.DisableUpdates,
		OverrideAppHealthStatus: meta.OverrideAppHealthStatus,
	}
	if interval, err := meta.Period.Interval(); err == nil && !meta.LastUpdate.IsZero() {
		due := meta.LastUpdate.Add(interval)
		state.NextDue = &due
	}
	return state
}

// ScheduleGet returns the persisted schedule document as-is. Tasks the
// scheduler has not bootstrapped yet are absent here; /status shows the
// merged view.
//
// @Summary Get the schedule document
// @Description Returns the persisted schedule document mapping task names to their entries.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse "Schedule retrieved"
// @Router /schedule [get]
func (h *Handler) ScheduleGet(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.store.Load(r.Context()))
}

// ScheduleUpdate adjusts one task's schedule entry.
//
// @Summary Update one task's schedule entry
// @Description Adjusts the period, disable flag, or health override of one task. Absent fields keep their value.
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task path string true "Task name"
// @Param body body ScheduleUpdateRequest true "Fields to change"
// @Success 200 {object} APIResponse "Updated entry"
// @Failure 400 {object} APIResponse "Invalid body"
// @Failure 404 {object} APIResponse "Unknown task"
// @Router /schedule/{task} [put]
func (h *Handler) ScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "task")

	var req ScheduleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	ctx := r.Context()
	sched := h.store.Load(ctx)
	meta, ok := sched[name]
	if !ok {
		// Allow adjusting a registered task before its first pass by
		// fabricating the same entry the scheduler would bootstrap.
		task, isRegistered := h.registry.Get(name)
		if !isRegistered {
			rw.NotFound(fmt.Sprintf("Unknown task %q", name))
			return
		}
		meta = schedule.TaskMeta{LastUpdate: h.now(), Period: task.DefaultPeriod()}
	}

	if req.Period != "" {
		meta.Period = schedule.Period(req.Period)
	}
	if req.DisableUpdates != nil {
		meta.DisableUpdates = *req.DisableUpdates
	}
	if req.OverrideAppHealthStatus != nil {
		meta.OverrideAppHealthStatus = *req.OverrideAppHealthStatus
	}

	sched[name] = meta
	if err := h.store.Save(ctx, sched); err != nil {
		h.logger.Error().Err(err).Str("task", name).Msg("Failed to persist schedule update")
		rw.InternalError("Failed to persist schedule")
		return
	}

	h.logger.Info().
		Str("task", name).
		Str("period", string(meta.Period)).
		Bool("disabled", meta.DisableUpdates).
		Msg("Schedule entry updated")
	rw.Success(meta)
}

// TaskRun triggers one task immediately.
//
// @Summary Run one task now
// @Description Runs the named task outside its cadence. The disabled flag and health gate still apply unless force=1.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param task path string true "Task name"
// @Param force query bool false "Bypass the disabled flag and health gate"
// @Success 200 {object} APIResponse "Task result"
// @Failure 404 {object} APIResponse "Unknown task"
// @Failure 409 {object} APIResponse "A pass is in progress"
// @Router /tasks/{task}/run [post]
func (h *Handler) TaskRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "task")
	force := parseBoolParam(r.URL.Query().Get("force"))

	result, err := h.scheduler.RunTask(r.Context(), name, force, h.now())
	switch {
	case errors.Is(err, schedule.ErrUnknownTask):
		rw.NotFound(fmt.Sprintf("Unknown task %q", name))
	case errors.Is(err, schedule.ErrPassInProgress):
		rw.Conflict("A pass is already in progress")
	case err != nil:
		h.logger.Error().Err(err).Str("task", name).Msg("Manual task run failed")
		rw.InternalError("Task trigger failed")
	default:
		rw.Success(result)
	}
}

// PassRun triggers a full scheduling pass and waits for it.
//
// @Summary Run a pass now
// @Description Runs one full scheduling pass and returns its report. The response arrives when the pass completes.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse "Pass report"
// @Failure 409 {object} APIResponse "A pass is in progress"
// @Router /pass [post]
func (h *Handler) PassRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.scheduler.RunPass(r.Context(), h.now())
	switch {
	case errors.Is(err, schedule.ErrPassInProgress):
		rw.Conflict("A pass is already in progress")
	case err != nil:
		h.logger.Error().Err(err).Msg("Manual pass failed")
		rw.InternalError("Pass trigger failed")
	default:
		rw.Success(report)
	}
}

// Runs returns recent run records from the journal, newest first.
//
// @Summary Recent run records
// @Description Returns up to limit journaled task runs, newest first.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum records to return (1-500)" default(50)
// @Success 200 {object} APIResponse "Run records"
// @Failure 400 {object} APIResponse "Invalid limit"
// @Router /runs [get]
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := RunsRequest{Limit: getIntParam(r, "limit", defaultRunsLimit)}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	records, err := h.journal.Recent(r.Context(), req.Limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read run records")
		rw.InternalError("Failed to read run history")
		return
	}

	rw.SuccessWithPagination(records, &PaginationMeta{
		Count:   len(records),
		Limit:   req.Limit,
		HasMore: len(records) == req.Limit,
	})
}

// Login verifies the admin credentials and issues a token (jwt mode only).
//
// @Summary Log in
// @Description Verifies the admin credentials and returns a bearer token, also set as an HttpOnly cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=LoginResponse} "Token issued"
// @Failure 401 {object} APIResponse "Invalid credentials"
// @Failure 403 {object} APIResponse "Auth mode is not jwt"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrLoginUnavailable):
		rw.Error(http.StatusForbidden, "AUTH_DISABLED", "Login requires jwt auth mode")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.logger.Warn().Str("username", req.Username).Msg("Login rejected")
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid username or password")
	case err != nil:
		h.logger.Error().Err(err).Msg("Token issuance failed")
		rw.InternalError("Failed to issue token")
	default:
		expiresAt := time.Now().Add(h.auth.TokenTTL())
		h.setTokenCookie(w, r, token, expiresAt)
		rw.Success(LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			Username:  req.Username,
			Role:      auth.RoleAdmin,
		})
	}
}

// setTokenCookie mirrors the bearer token into an HttpOnly cookie for
// browser clients; the auth middleware accepts either.
func (h *Handler) setTokenCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseBoolParam reads a query flag, accepting the usual spellings.
func parseBoolParam(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
