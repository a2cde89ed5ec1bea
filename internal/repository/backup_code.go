// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/portal-ops/portal-auth/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// CreateBackupCodes stores backup code hashes for an account.
func (r *Repository) CreateBackupCodes(ctx context.Context, accountID int64, codeHashes []string) error {
	for _, hash := range codeHashes {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO backup_codes (account_id, code_hash) VALUES (?, ?)`,
			accountID, hash)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetUnusedBackupCodes retrieves the unused backup codes for an account.
func (r *Repository) GetUnusedBackupCodes(ctx context.Context, accountID int64) ([]models.BackupCode, error) {
	var codes []models.BackupCode
	err := r.db.SelectContext(ctx, &codes,
		`SELECT * FROM backup_codes WHERE account_id = ? AND used = 0`, accountID)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// CountUnusedBackupCodes returns how many backup codes remain.
func (r *Repository) CountUnusedBackupCodes(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM backup_codes WHERE account_id = ? AND used = 0`, accountID)
	return count, err
}

// ConsumeBackupCode matches the submitted code against the account's
// unused hashes and marks the matching row used. Returns the remaining
// count and whether a match was consumed. The `used = 0` guard on the
// update makes the consume atomic: of concurrent submissions of the
// same code, exactly one flips the row and the rest see zero affected
// rows and report no match.
func (r *Repository) ConsumeBackupCode(ctx context.Context, accountID int64, code string) (int64, bool, error) {
	codes, err := r.GetUnusedBackupCodes(ctx, accountID)
	if err != nil {
		return 0, false, err
	}

	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil {
			res, err := r.db.ExecContext(ctx,
				`UPDATE backup_codes SET used = 1, used_at = CURRENT_TIMESTAMP WHERE id = ? AND used = 0`,
				c.ID)
			if err != nil {
				return 0, false, err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return 0, false, err
			}
			remaining, err := r.CountUnusedBackupCodes(ctx, accountID)
			if err != nil {
				return 0, false, err
			}
			if affected == 0 {
				// Lost the race to a concurrent consume of this row.
				return remaining, false, nil
			}
			return remaining, true, nil
		}
	}

	return int64(len(codes)), false, nil
}

// DeleteBackupCodes removes all backup codes for an account, used or not.
// Called when a fresh set is generated.
func (r *Repository) DeleteBackupCodes(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}
