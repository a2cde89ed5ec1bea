// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package ratelimit throttles guarded actions over a trailing window
// backed by the persisted rate-limit log.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/portal-ops/portal-auth/internal/repository"
)

// Action names used across the service.
const (
	ActionSendOTP          = "send-otp"
	ActionVerifyOTP        = "verify-otp"
	ActionVerifyTOTP       = "verify-totp"
	ActionVerifyBackupCode = "verify-backup-code"
)

const (
	// DefaultWindow is the trailing interval over which entries count.
	DefaultWindow = 60 * time.Second
	// DefaultLimit is the number of actions allowed per window.
	DefaultLimit = 3
)

// RateLimitedError reports that an identifier exceeded its budget.
// RetryAfter is always at least one second.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

// Limiter counts recent entries per (identifier, action) pair.
type Limiter struct {
	repo   *repository.Repository
	window time.Duration
	limit  int64
	now    func() time.Time
}

// New creates a Limiter. Non-positive window or limit fall back to the
// defaults.
func New(repo *repository.Repository, window time.Duration, limit int64) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{repo: repo, window: window, limit: limit, now: time.Now}
}

// Check returns a RateLimitedError when the identifier has reached the
// limit within the trailing window. The check and a later Record are not
// atomic: concurrent requests can both pass. That is accepted here; the
// limiter is best-effort throttling, not an exact quota.
func (l *Limiter) Check(ctx context.Context, identifier, action string) error {
	now := l.now()

	stats, err := l.repo.GetRateLimitWindow(ctx, identifier, action, now.Add(-l.window))
	if err != nil {
		return fmt.Errorf("rate limit lookup: %w", err)
	}

	if stats.Count >= l.limit {
		retryAfter := l.window - now.Sub(stats.Oldest)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		slog.Warn("rate_limited", "identifier", identifier, "action", action, "retry_after", retryAfter)
		return &RateLimitedError{RetryAfter: retryAfter}
	}

	// Opportunistic pruning; old rows never count anyway.
	if err := l.repo.DeleteRateLimitEntriesBefore(ctx, now.Add(-2*l.window)); err != nil {
		slog.Warn("rate_limit_prune_failed", "error", err)
	}

	return nil
}

// Record appends an entry for the identifier. Callers record after the
// guarded operation, so attempts that never reached it keep their quota.
func (l *Limiter) Record(ctx context.Context, identifier, action string) error {
	if err := l.repo.CreateRateLimitEntry(ctx, identifier, action, l.now()); err != nil {
		return fmt.Errorf("rate limit record: %w", err)
	}
	return nil
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}
