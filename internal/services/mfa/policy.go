// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package mfa resolves which second factor an account must satisfy and
// verifies authenticator and backup codes.
package mfa

import "github.com/portal-ops/portal-auth/internal/models"

// Method is the second factor required for an account.
type Method string

const (
	MethodNone     Method = "none"
	MethodTOTP     Method = "totp"
	MethodEmailOTP Method = "email-otp"
)

// Resolve decides the required second factor from an account's MFA
// settings. TOTP wins when both factors are enabled; the email-code
// path is never used next to an authenticator app.
func Resolve(settings models.MFASettings) Method {
	switch {
	case settings.TOTPEnabled:
		return MethodTOTP
	case settings.EmailMFAEnabled:
		return MethodEmailOTP
	default:
		return MethodNone
	}
}
