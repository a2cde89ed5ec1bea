// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package models

import "time"

// Account is a portal user account. Email lookups are case-insensitive
// (COLLATE NOCASE on the column).
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID              int64     `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Active          bool      `db:"active" json:"active"`
	MFAEnabled      bool      `db:"mfa_enabled" json:"mfa_enabled"`
	TOTPEnabled     bool      `db:"totp_enabled" json:"totp_enabled"`
	EmailMFAEnabled bool      `db:"email_mfa_enabled" json:"email_mfa_enabled"`
	TOTPSecret      string    `db:"totp_secret" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// MFASettings is the read-only view returned by the MFA status endpoint.
type MFASettings struct {
	MFAEnabled      bool `json:"mfaEnabled"`
	TOTPEnabled     bool `json:"totpEnabled"`
	EmailMFAEnabled bool `json:"emailMfaEnabled"`
}

// MFASettings extracts the second-factor settings from an account.
func (a *Account) MFASettings() MFASettings {
	return MFASettings{
		MFAEnabled:      a.MFAEnabled,
		TOTPEnabled:     a.TOTPEnabled,
		EmailMFAEnabled: a.EmailMFAEnabled,
	}
}
