// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

// Package auth guards the admin API.
//
// Three modes: "none" passes every request through, "basic" verifies
// the configured admin credentials against each request, "jwt" issues
// HS256 tokens through the login endpoint and verifies them on every
// request. The authenticated identity travels the request context as
// Claims.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Mode selects how API requests authenticate.
type Mode string

const (
	// ModeNone disables authentication entirely.
	ModeNone Mode = "none"
	// ModeBasic verifies HTTP Basic credentials on every request.
	ModeBasic Mode = "basic"
	// ModeJWT verifies bearer tokens issued by the login endpoint.
	ModeJWT Mode = "jwt"
)

// RoleAdmin grants access to every guarded route.
const RoleAdmin = "admin"

var (
	// ErrNoCredentials is returned when a request carries no credentials.
	ErrNoCredentials = errors.New("auth: no credentials provided")
	// ErrInvalidCredentials is returned when provided credentials fail
	// verification.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrLoginUnavailable is returned by Login outside jwt mode.
	ErrLoginUnavailable = errors.New("auth: login requires jwt auth mode")
)

// ParseMode maps a configured mode string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModeBasic, ModeJWT:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("auth: unknown auth mode %q", s)
	}
}

// Claims carries the authenticated identity through the request context
// and, in jwt mode, inside issued tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsContextKey contextKey = "claims"

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil when the
// request did not pass authentication middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
