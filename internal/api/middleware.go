// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/tabularium/internal/config"
	"github.com/tomtom215/tabularium/internal/logging"
	"github.com/tomtom215/tabularium/internal/metrics"
)

// RateLimitConfig defines rate limit parameters for a route group.
type RateLimitConfig struct {
	// Requests is the number of requests allowed in the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
}

// Fixed limits for route groups with their own traffic shape. The default
// group limit comes from configuration.
var (
	// rateLimitHealth is permissive so monitoring tools can poll freely.
	rateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}

	// rateLimitAuth bounds the whole auth group.
	rateLimitAuth = RateLimitConfig{Requests: 5, Window: time.Minute}

	// rateLimitLogin is strictest, slowing credential stuffing.
	rateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}
)

// Middleware builds the chi middleware stack from the security config.
type Middleware struct {
	cfg  config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware factory for the given config.
func NewMiddleware(cfg config.SecurityConfig) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return &Middleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware. Origins default to empty, so
// cross-origin browser access requires explicit configuration.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP limiter from the configuration.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(RateLimitConfig{Requests: m.cfg.RateLimitReqs, Window: m.cfg.RateLimitWindow})
}

// RateLimitHealth returns the permissive limiter for health probes.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limit(rateLimitHealth)
}

// RateLimitAuth returns the strict limiter for the auth route group.
func (m *Middleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.limit(rateLimitAuth)
}

// RateLimitLogin returns the strictest limiter, applied to login only.
func (m *Middleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(rateLimitLogin)
}

func (m *Middleware) limit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled || cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(cfg.Requests, cfg.Window)
}

// RequestIDWithLogging assigns each request an ID, exposes it as the
// X-Request-ID header, and threads it through the logging context so the
// envelope and log lines correlate.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APISecurityHeaders sets the browser hardening headers on every
// response. HSTS is only sent over TLS or behind a TLS-terminating
// proxy (X-Forwarded-Proto).
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestMetrics records one Prometheus observation per request, labeled
// with the matched route pattern rather than the raw path so parameterized
// routes stay a single series.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		metrics.RecordAPIRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
