// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package mfa

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/portal-ops/portal-auth/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrBackupCodeFormat rejects submissions before any storage access.
	ErrBackupCodeFormat = errors.New("backup code must match XXXX-XXXX")
	// ErrBackupCodeMismatch covers wrong and already-consumed codes alike.
	ErrBackupCodeMismatch = errors.New("backup code not accepted")
)

// backupCodePattern is the exact accepted language: two groups of four
// uppercase alphanumerics joined by one hyphen.
var backupCodePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

const (
	// BackupCodeCount is the default size of a generated set.
	BackupCodeCount = 8
	// LowBackupCodeThreshold is where callers should warn the user.
	LowBackupCodeThreshold = 2
	// backupAlphabet avoids the easily confused characters 0/O and 1/I.
	// Deliberately a subset of the accepted [A-Z0-9] language: generation
	// narrows for legibility while verification stays permissive, so
	// neither side should be "fixed" to match the other.
	backupAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	bcryptCost = 10
)

// BackupService validates and consumes single-use backup codes.
type BackupService struct {
	repo *repository.Repository
}

// NewBackupService creates a backup-code service.
func NewBackupService(repo *repository.Repository) *BackupService {
	return &BackupService{repo: repo}
}

// ValidBackupCodeFormat reports whether the submission is well formed.
func ValidBackupCodeFormat(code string) bool {
	return backupCodePattern.MatchString(code)
}

// Verify consumes a backup code for the account. Returns the remaining
// count on success. Format violations fail before touching storage;
// wrong and previously consumed codes fail with the same error.
func (s *BackupService) Verify(ctx context.Context, accountID int64, code string) (int64, error) {
	if !ValidBackupCodeFormat(code) {
		return 0, ErrBackupCodeFormat
	}

	remaining, ok, err := s.repo.ConsumeBackupCode(ctx, accountID, code)
	if err != nil {
		return 0, fmt.Errorf("failed to consume backup code: %w", err)
	}
	if !ok {
		slog.Warn("backup_code_rejected", "account_id", accountID)
		return 0, ErrBackupCodeMismatch
	}

	slog.Info("backup_code_consumed", "account_id", accountID, "remaining", remaining)
	return remaining, nil
}

// Generate replaces the account's backup codes with a fresh set and
// returns the plaintexts for one-time display.
func (s *BackupService) Generate(ctx context.Context, accountID int64, count int) ([]string, error) {
	if count <= 0 {
		count = BackupCodeCount
	}

	plaintexts := make([]string, count)
	hashes := make([]string, count)
	for i := 0; i < count; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash backup code: %w", err)
		}
		plaintexts[i] = code
		hashes[i] = string(hash)
	}

	if err := s.repo.DeleteBackupCodes(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to clear old backup codes: %w", err)
	}
	if err := s.repo.CreateBackupCodes(ctx, accountID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}

	return plaintexts, nil
}

// generateBackupCode draws eight alphabet characters and formats them
// as XXXX-XXXX.
func generateBackupCode() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i := range raw {
		raw[i] = backupAlphabet[int(raw[i])%len(backupAlphabet)]
	}
	return string(raw[:4]) + "-" + string(raw[4:]), nil
}
