// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/tabularium/internal/auth"
	"github.com/tomtom215/tabularium/internal/config"
)

// Router assembles the HTTP route tree.
type Router struct {
	handler *Handler
	auth    *auth.Middleware
	mw      *Middleware
	logger  zerolog.Logger
}

// NewRouter builds the route tree over the given handler.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg config.SecurityConfig, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		auth:    authMW,
		mw:      NewMiddleware(cfg),
		logger:  logger.With().Str("component", "router").Logger(),
	}
}

// Routes returns the assembled handler. Health and login sit outside the
// auth gate with their own tighter rate limits; everything else under
// /api/v1 is authenticated, and mutating routes additionally require the
// admin role.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.mw.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(rt.mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(rt.mw.RateLimitAuth())
		r.Use(APISecurityHeaders())
		r.With(rt.mw.RateLimitLogin()).Post("/login", rt.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(RequestMetrics)
		r.Use(rt.auth.Authenticate)

		r.Get("/status", rt.handler.Status)
		r.Get("/schedule", rt.handler.ScheduleGet)
		r.Get("/runs", rt.handler.Runs)

		r.Group(func(r chi.Router) {
			r.Use(rt.auth.RequireRole(auth.RoleAdmin))
			r.Put("/schedule/{task}", rt.handler.ScheduleUpdate)
			r.Post("/tasks/{task}/run", rt.handler.TaskRun)
			r.Post("/pass", rt.handler.PassRun)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	rt.logger.Debug().Msg("Route tree assembled")
	return r
}
