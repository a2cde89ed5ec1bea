// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/portal-ops/portal-auth/internal/models"
)

// CreateAccount creates a new account and fills in the generated ID.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, active, mfa_enabled, totp_enabled, email_mfa_enabled, totp_secret)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.Email, account.PasswordHash, account.Active,
		account.MFAEnabled, account.TOTPEnabled, account.EmailMFAEnabled, account.TOTPSecret)
	if err != nil {
		return err
	}
	account.ID, err = res.LastInsertId()
	return err
}

// GetAccountByEmail retrieves an account by email. The email column is
// declared COLLATE NOCASE, so the match is case-insensitive.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByID retrieves an account by ID.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// UpdateAccountPassword updates an account's password hash.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	return err
}

// UpdateAccountMFA stores the second-factor settings and TOTP secret.
func (r *Repository) UpdateAccountMFA(ctx context.Context, id int64, settings models.MFASettings, totpSecret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET mfa_enabled = ?, totp_enabled = ?, email_mfa_enabled = ?, totp_secret = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		settings.MFAEnabled, settings.TOTPEnabled, settings.EmailMFAEnabled, totpSecret, id)
	return err
}
