// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package otp issues and verifies short-lived single-use numeric codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidOrExpired is the single error for every verification
// failure. Callers cannot tell "wrong code" from "expired" from "never
// requested"; differentiating would leak which codes exist.
var ErrInvalidOrExpired = errors.New("code is invalid or expired")

const (
	// DefaultTTL is how long an issued code stays verifiable.
	DefaultTTL = 180 * time.Second
	// CodeDigits is the fixed width of issued codes.
	CodeDigits = 6
	// bcryptCost for code hashes. Codes live three minutes; a moderate
	// cost keeps verification latency reasonable.
	bcryptCost = 10
)

var codeSpace = big.NewInt(1_000_000)

// Notifier delivers a message to an address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service issues, persists and verifies one-time codes.
type Service struct {
	repo     *repository.Repository
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates an OTP service. A non-positive ttl falls back to
// DefaultTTL.
func NewService(repo *repository.Repository, notifier Notifier, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, notifier: notifier, ttl: ttl, now: time.Now}
}

// TTL returns the configured code lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh code for (email, purpose), stores its hash
// and dispatches the plaintext to the address. Any previous live code
// for the pair is replaced atomically by the upsert.
//
// The hash is persisted before dispatch. If dispatch fails the stored
// row is deleted best-effort; a row surviving a failed delete is inert
// after the TTL anyway.
func (s *Service) Issue(ctx context.Context, email string, purpose models.Purpose) error {
	code, err := GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.UpsertOneTimeCode(ctx, email, purpose, string(hash), expiresAt); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	subject := i18n.T(ctx, "otp_mail_subject_"+string(purpose))
	body := i18n.TData(ctx, "otp_mail_body", map[string]any{
		"Code":    code,
		"Minutes": int(s.ttl.Minutes()),
	})

	if err := s.notifier.Send(ctx, email, subject, body); err != nil {
		if delErr := s.repo.DeleteOneTimeCodeFor(ctx, email, purpose); delErr != nil {
			slog.Warn("otp_cleanup_failed", "email", email, "purpose", purpose, "error", delErr)
		}
		return fmt.Errorf("failed to dispatch code: %w", err)
	}

	slog.Info("otp_issued", "email", email, "purpose", purpose, "expires_at", expiresAt)
	return nil
}

// Verify checks a submitted code for (email, purpose) and consumes it
// on success. Single use: the row is deleted on match.
func (s *Service) Verify(ctx context.Context, email string, purpose models.Purpose, submitted string) error {
	row, err := s.repo.GetOneTimeCode(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("otp_verify_failed", "email", email, "purpose", purpose, "reason", "no_code")
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("failed to load code: %w", err)
	}

	if row.Expired(s.now()) {
		slog.Warn("otp_verify_failed", "email", email, "purpose", purpose, "reason", "expired")
		return ErrInvalidOrExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(row.CodeHash), []byte(submitted)) != nil {
		slog.Warn("otp_verify_failed", "email", email, "purpose", purpose, "reason", "mismatch")
		return ErrInvalidOrExpired
	}

	consumed, err := s.repo.ConsumeOneTimeCode(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if !consumed {
		// A concurrent submission redeemed the row first.
		slog.Warn("otp_verify_failed", "email", email, "purpose", purpose, "reason", "already_consumed")
		return ErrInvalidOrExpired
	}

	slog.Info("otp_verified", "email", email, "purpose", purpose)
	return nil
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateCode returns a uniformly distributed six-digit code with
// leading zeros preserved. crypto/rand.Int is rejection-sampled, so no
// bias toward small values.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
