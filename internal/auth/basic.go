// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances verification latency against brute-force cost.
const bcryptCost = 12

// BasicVerifier checks requests against the configured admin account.
// The password is hashed once at construction so requests only pay for
// the bcrypt comparison.
type BasicVerifier struct {
	username     string
	passwordHash []byte
}

// NewBasicVerifier hashes the admin password and returns a verifier.
func NewBasicVerifier(username, password string) (*BasicVerifier, error) {
	if username == "" {
		return nil, fmt.Errorf("auth: admin username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("auth: admin password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	return &BasicVerifier{username: username, passwordHash: hash}, nil
}

// VerifyHeader validates an Authorization header in Basic scheme and
// returns the authenticated username.
func (v *BasicVerifier) VerifyHeader(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("%w: not a Basic authorization header", ErrInvalidCredentials)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable credentials", ErrInvalidCredentials)
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", fmt.Errorf("%w: malformed credentials", ErrInvalidCredentials)
	}

	if !v.VerifyPassword(username, password) {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// VerifyPassword reports whether the credentials match the admin
// account. Both comparisons always run so response timing does not
// leak which part was wrong.
func (v *BasicVerifier) VerifyPassword(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// Challenge returns the WWW-Authenticate header value sent with 401
// responses in basic mode.
func (v *BasicVerifier) Challenge() string {
	return `Basic realm="Tabularium", charset="UTF-8"`
}
