// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/login"
	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/ratelimit"
)

// respondError maps domain errors to HTTP responses. Auth failures stay
// undifferentiated; unexpected errors are logged with detail and
// returned as an opaque 500.
func respondError(c echo.Context, err error) error {
	var rateLimited *ratelimit.RateLimitedError
	if errors.As(err, &rateLimited) {
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":      "too many requests",
			"retryAfter": int(rateLimited.RetryAfter.Seconds()),
		})
	}

	var passwordErr *credentials.PasswordValidationError
	if errors.As(err, &passwordErr) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":   "password does not meet the requirements",
			"details": passwordErr.Errors,
		})
	}

	switch {
	case errors.Is(err, credentials.ErrInvalidEmail),
		errors.Is(err, credentials.ErrSamePassword),
		errors.Is(err, mfa.ErrBackupCodeFormat):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.Is(err, credentials.ErrInvalidCredentials),
		errors.Is(err, login.ErrAuthFailed),
		errors.Is(err, otp.ErrInvalidOrExpired),
		errors.Is(err, mfa.ErrBackupCodeMismatch):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication failed"})

	case errors.Is(err, credentials.ErrAccountInactive):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "account is deactivated"})

	case errors.Is(err, credentials.ErrAccountNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "account not found"})

	case errors.Is(err, credentials.ErrAccountExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "account already exists"})
	}

	slog.Error("request_failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
