// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/login"
	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/ratelimit"
)

// AuthHandlers contains handlers for the authentication endpoints.
type AuthHandlers struct {
	repo    *repository.Repository
	creds   *credentials.Service
	otps    *otp.Service
	flow    *login.Flow
	limiter *ratelimit.Limiter
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(repo *repository.Repository, creds *credentials.Service, otps *otp.Service, flow *login.Flow, limiter *ratelimit.Limiter) *AuthHandlers {
	return &AuthHandlers{
		repo:    repo,
		creds:   creds,
		otps:    otps,
		flow:    flow,
		limiter: limiter,
	}
}

// SendOTPRequest is the request body for issuing a one-time code.
// CurrentPassword and NewPassword are required for the password-change
// purpose only.
type SendOTPRequest struct {
	Email           string `json:"email"`
	Purpose         string `json:"purpose"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SendOTP issues a one-time code for the given purpose and dispatches
// it by mail. The purpose precondition is checked before issuance and
// the quota is only consumed when a code actually went out.
func (h *AuthHandlers) SendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}
	purpose := models.Purpose(req.Purpose)
	if !purpose.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid purpose"})
	}

	ctx := c.Request().Context()
	if err := h.limiter.Check(ctx, req.Email, ratelimit.ActionSendOTP); err != nil {
		return respondError(c, err)
	}

	switch purpose {
	case models.PurposeLogin:
		if _, err := h.creds.ActiveAccount(ctx, req.Email); err != nil {
			return respondError(c, err)
		}
	case models.PurposeSignup:
		if err := h.creds.ForSignup(ctx, req.Email); err != nil {
			return respondError(c, err)
		}
	case models.PurposePasswordChange:
		if req.CurrentPassword == "" || req.NewPassword == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "currentPassword and newPassword are required"})
		}
		if _, err := h.creds.ForPasswordChange(ctx, req.Email, req.CurrentPassword, req.NewPassword); err != nil {
			return respondError(c, err)
		}
	}

	if err := h.otps.Issue(ctx, req.Email, purpose); err != nil {
		return respondError(c, err)
	}
	if err := h.limiter.Record(ctx, req.Email, ratelimit.ActionSendOTP); err != nil {
		slog.Warn("rate_limit_record_failed", "email", req.Email, "error", err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": i18n.T(ctx, "otp_sent"),
		"email":   req.Email,
		"purpose": string(purpose),
	})
}

// VerifyOTPRequest is the request body for verifying a one-time code.
type VerifyOTPRequest struct {
	Email   string `json:"email"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose"`
}

// VerifyOTP checks a submitted one-time code. Wrong, expired and never
// issued codes are indistinguishable to the caller. Failed attempts
// consume verification quota.
func (h *AuthHandlers) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Email == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and otp are required"})
	}
	purpose := models.Purpose(req.Purpose)
	if !purpose.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid purpose"})
	}

	ctx := c.Request().Context()
	if err := h.limiter.Check(ctx, req.Email, ratelimit.ActionVerifyOTP); err != nil {
		return respondError(c, err)
	}

	if err := h.otps.Verify(ctx, req.Email, purpose, req.OTP); err != nil {
		if errors.Is(err, otp.ErrInvalidOrExpired) {
			if recErr := h.limiter.Record(ctx, req.Email, ratelimit.ActionVerifyOTP); recErr != nil {
				slog.Warn("rate_limit_record_failed", "email", req.Email, "error", recErr)
			}
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": i18n.T(ctx, "otp_verified"),
	})
}

// LoginRequest is the request body for password login. TOTP carries the
// authenticator code when the account has an enrolled authenticator.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

// Login validates credentials and either establishes a session or
// reports which second factor is pending.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	ctx := c.Request().Context()
	if req.TOTP != "" {
		if err := h.limiter.Check(ctx, req.Email, ratelimit.ActionVerifyTOTP); err != nil {
			return respondError(c, err)
		}
	}

	result, err := h.flow.PasswordLogin(ctx, req.Email, req.Password, req.TOTP)
	if err != nil {
		// ErrAuthFailed from this flow means a rejected authenticator
		// code; wrong passwords surface as ErrInvalidCredentials.
		if req.TOTP != "" && errors.Is(err, login.ErrAuthFailed) {
			if recErr := h.limiter.Record(ctx, req.Email, ratelimit.ActionVerifyTOTP); recErr != nil {
				slog.Warn("rate_limit_record_failed", "email", req.Email, "error", recErr)
			}
		}
		return respondError(c, err)
	}

	return h.respondLogin(c, result)
}

// EmailOTPLoginRequest is the request body for completing a login with
// an emailed one-time code.
type EmailOTPLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// EmailOTPLogin completes the email-code login branch.
func (h *AuthHandlers) EmailOTPLogin(c echo.Context) error {
	var req EmailOTPLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email, password and otp are required"})
	}

	ctx := c.Request().Context()
	if err := h.limiter.Check(ctx, req.Email, ratelimit.ActionVerifyOTP); err != nil {
		return respondError(c, err)
	}

	result, err := h.flow.EmailOTPLogin(ctx, req.Email, req.Password, req.OTP)
	if err != nil {
		if errors.Is(err, login.ErrAuthFailed) {
			if recErr := h.limiter.Record(ctx, req.Email, ratelimit.ActionVerifyOTP); recErr != nil {
				slog.Warn("rate_limit_record_failed", "email", req.Email, "error", recErr)
			}
		}
		return respondError(c, err)
	}

	return h.respondLogin(c, result)
}

// VerifyBackupCodeRequest is the request body for the authenticator
// fallback with a backup code.
type VerifyBackupCodeRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	BackupCode string `json:"backupCode"`
}

// VerifyBackupCode completes a login with a single-use backup code and
// reports how many codes remain.
func (h *AuthHandlers) VerifyBackupCode(c echo.Context) error {
	var req VerifyBackupCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" || req.BackupCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email, password and backupCode are required"})
	}

	ctx := c.Request().Context()
	if err := h.limiter.Check(ctx, req.Email, ratelimit.ActionVerifyBackupCode); err != nil {
		return respondError(c, err)
	}

	result, err := h.flow.BackupCodeLogin(ctx, req.Email, req.Password, req.BackupCode)
	if err != nil {
		if errors.Is(err, login.ErrAuthFailed) || errors.Is(err, mfa.ErrBackupCodeMismatch) {
			if recErr := h.limiter.Record(ctx, req.Email, ratelimit.ActionVerifyBackupCode); recErr != nil {
				slog.Warn("rate_limit_record_failed", "email", req.Email, "error", recErr)
			}
		}
		return respondError(c, err)
	}

	c.SetCookie(result.Cookie)
	resp := map[string]any{
		"status":               "ok",
		"remainingBackupCodes": result.RemainingBackupCodes,
	}
	if result.RemainingBackupCodes <= mfa.LowBackupCodeThreshold {
		resp["warning"] = "backup codes are running low"
		slog.Warn("backup_codes_low", "account_id", result.Account.ID, "remaining", result.RemainingBackupCodes)
	}
	return c.JSON(http.StatusOK, resp)
}

// MFAStatus reports the MFA configuration for an address. Unknown
// addresses return all-false so the endpoint cannot be used to probe
// which accounts exist.
func (h *AuthHandlers) MFAStatus(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}

	account, err := h.repo.GetAccountByEmail(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, models.MFASettings{})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, account.MFASettings())
}

func (h *AuthHandlers) respondLogin(c echo.Context, result *login.Result) error {
	if result.State == login.StateSessionIssued {
		c.SetCookie(result.Cookie)
		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"mfa":    result.Method,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "mfa_required",
		"mfa":    result.Method,
	})
}
