// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package mfa

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpSkew is the number of adjacent 30-second steps accepted around
// the current one, absorbing client clock drift.
const totpSkew = 1

// VerifyTOTP checks a submitted authenticator code against the stored
// secret. Stateless; a code stays valid for its whole time step, which
// is inherent to TOTP.
func VerifyTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateTOTPSecret provisions a new authenticator secret for
// enrollment. The returned key carries the otpauth:// URI for QR codes.
func GenerateTOTPSecret(issuer, accountName string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
}
