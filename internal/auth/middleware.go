// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/config"
)

// Middleware enforces the configured auth mode on API routes.
type Middleware struct {
	mode   Mode
	basic  *BasicVerifier
	tokens *TokenManager
	logger zerolog.Logger
}

// NewMiddleware builds the middleware for the configured mode. Both
// basic and jwt modes need the admin account; jwt mode additionally
// needs the signing secret for issuing and verifying tokens.
func NewMiddleware(cfg config.SecurityConfig, logger zerolog.Logger) (*Middleware, error) {
	mode, err := ParseMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	m := &Middleware{
		mode:   mode,
		logger: logger.With().Str("component", "auth").Logger(),
	}

	if mode == ModeBasic || mode == ModeJWT {
		m.basic, err = NewBasicVerifier(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
	}
	if mode == ModeJWT {
		m.tokens, err = NewTokenManager(cfg.JWTSecret, cfg.SessionTimeout)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Mode returns the active auth mode.
func (m *Middleware) Mode() Mode { return m.mode }

// TokenTTL returns the lifetime of issued tokens, or zero outside jwt mode.
func (m *Middleware) TokenTTL() time.Duration {
	if m.tokens == nil {
		return 0
	}
	return m.tokens.TTL()
}

// Authenticate verifies request credentials and stores the resulting
// claims in the request context. In none mode every request passes.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verifyRequest(r)
		if err != nil {
			m.deny(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole gates a route group on a role. Admin always passes; in
// none mode the gate is inert.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.mode == ModeNone {
				next.ServeHTTP(w, r)
				return
			}

			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Forbidden: no authenticated identity", http.StatusForbidden)
				return
			}
			if claims.Role != role && claims.Role != RoleAdmin {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Login verifies the admin credentials and issues a token. Only
// meaningful in jwt mode.
func (m *Middleware) Login(username, password string) (string, error) {
	if m.mode != ModeJWT {
		return "", ErrLoginUnavailable
	}
	if !m.basic.VerifyPassword(username, password) {
		return "", ErrInvalidCredentials
	}
	return m.tokens.Issue(username, RoleAdmin)
}

// verifyRequest authenticates one request per the active mode.
func (m *Middleware) verifyRequest(r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")

	switch m.mode {
	case ModeBasic:
		if authHeader == "" {
			return nil, ErrNoCredentials
		}
		username, err := m.basic.VerifyHeader(authHeader)
		if err != nil {
			return nil, err
		}
		// The only basic account is the configured admin.
		return &Claims{Username: username, Role: RoleAdmin}, nil

	case ModeJWT:
		token, err := bearerToken(r, authHeader)
		if err != nil {
			return nil, err
		}
		return m.tokens.Verify(token)

	default:
		return nil, ErrInvalidCredentials
	}
}

// bearerToken pulls the token from the Authorization header, falling
// back to the token cookie for browser clients.
func bearerToken(r *http.Request, authHeader string) (string, error) {
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", fmt.Errorf("%w: not a Bearer authorization header", ErrInvalidCredentials)
	}
	return token, nil
}

// deny writes the 401 response for a failed authentication.
func (m *Middleware) deny(w http.ResponseWriter, err error) {
	m.logger.Warn().Err(err).Msg("Authentication failed")

	if m.mode == ModeBasic {
		w.Header().Set("WWW-Authenticate", m.basic.Challenge())
	}
	if errors.Is(err, ErrNoCredentials) {
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
		return
	}
	http.Error(w, "Unauthorized: invalid credentials", http.StatusUnauthorized)
}
