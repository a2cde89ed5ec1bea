// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package credentials validates submitted credentials against stored
// accounts, with purpose-specific preconditions for one-time-code flows.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrSamePassword       = errors.New("new password must be different from the current password")
)

// dummyHash is compared against when no account matches, so the lookup
// path takes as long as a real bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Service validates credentials. Read-only; it never mutates accounts.
type Service struct {
	repo              *repository.Repository
	passwordValidator *PasswordValidator
}

// NewService creates a credential validation service.
func NewService(repo *repository.Repository) *Service {
	return &Service{
		repo:              repo,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// ForLogin validates email and password for the login purpose and
// returns the matching account.
func (s *Service) ForLogin(ctx context.Context, email, password string) (*models.Account, error) {
	return s.activeAccountWithPassword(ctx, email, password)
}

// ForSignup checks the signup precondition: the address must be well
// formed and must not belong to an existing account.
func (s *Service) ForSignup(ctx context.Context, email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	_, err := s.repo.GetAccountByEmail(ctx, email)
	if err == nil {
		return ErrAccountExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check existing account: %w", err)
	}
	return nil
}

// ForPasswordChange validates the current password and vets the new one.
// The new password must pass the password policy and must differ from
// the current password.
func (s *Service) ForPasswordChange(ctx context.Context, email, currentPassword, newPassword string) (*models.Account, error) {
	account, err := s.activeAccountWithPassword(ctx, email, currentPassword)
	if err != nil {
		return nil, err
	}

	if newPassword == currentPassword {
		return nil, ErrSamePassword
	}

	validation := s.passwordValidator.Validate(newPassword, email)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	return account, nil
}

// ActiveAccount checks that an active account exists for the address.
// Code issuance for the login purpose carries no password, so only
// existence and active status are checked here.
func (s *Service) ActiveAccount(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !account.Active {
		return nil, ErrAccountInactive
	}
	return account, nil
}

// PasswordValidator returns the configured password policy.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

func (s *Service) activeAccountWithPassword(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("credential_check_failed", "email", email, "reason", "account_not_found")
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.Active {
		slog.Warn("credential_check_failed", "email", email, "reason", "account_inactive")
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.Warn("credential_check_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	return account, nil
}
