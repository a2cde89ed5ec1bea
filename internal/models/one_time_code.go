// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package models

import "time"

// Purpose scopes a one-time code to the flow that requested it, so a
// login code cannot be replayed against password change and vice versa.
type Purpose string

const (
	PurposeLogin          Purpose = "login"
	PurposeSignup         Purpose = "signup"
	PurposePasswordChange Purpose = "password-change"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposeSignup, PurposePasswordChange:
		return true
	}
	return false
}

// OneTimeCode stores a bcrypt hash of a short-lived numeric code.
// At most one row exists per (email, purpose); issuing a new code
// replaces the previous one atomically. The row is keyed by email
// rather than account id because the signup purpose issues codes for
// addresses that have no account yet.
type OneTimeCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Purpose   Purpose   `db:"purpose" json:"purpose"`
	CodeHash  string    `db:"code_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the code is past its TTL at the given instant.
func (c *OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
