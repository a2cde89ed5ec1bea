// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/portal-ops/portal-auth/internal/models"
)

// UpsertOneTimeCode stores a new code hash for (email, purpose),
// replacing any previous code in a single atomic statement. Two
// concurrent issuances therefore cannot leave two live codes behind.
func (r *Repository) UpsertOneTimeCode(ctx context.Context, email string, purpose models.Purpose, codeHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (email, purpose, code_hash, created_at, expires_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)
		 ON CONFLICT (email, purpose)
		 DO UPDATE SET code_hash = excluded.code_hash, created_at = CURRENT_TIMESTAMP, expires_at = excluded.expires_at`,
		email, purpose, codeHash, expiresAt)
	return err
}

// GetOneTimeCode retrieves the code row for (email, purpose).
// Returns ErrNotFound when no code was ever issued or it was consumed.
func (r *Repository) GetOneTimeCode(ctx context.Context, email string, purpose models.Purpose) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := r.db.GetContext(ctx, &code,
		`SELECT * FROM one_time_codes WHERE email = ? AND purpose = ?`, email, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &code, nil
}

// ConsumeOneTimeCode deletes a code row and reports whether this call
// removed it. Of concurrent submissions of the same code, exactly one
// caller sees true; the rest find the row already gone.
func (r *Repository) ConsumeOneTimeCode(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteOneTimeCodeFor removes the code row for (email, purpose) if any.
func (r *Repository) DeleteOneTimeCodeFor(ctx context.Context, email string, purpose models.Purpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE email = ? AND purpose = ?`, email, purpose)
	return err
}

// DeleteExpiredOneTimeCodes removes rows past their TTL. Expired rows
// are inert either way; this just keeps the table small.
func (r *Repository) DeleteExpiredOneTimeCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at < ?`, time.Now())
	return err
}
