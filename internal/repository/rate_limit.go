// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"
)

// WindowStats describes the rate-limit entries inside a trailing window.
type WindowStats struct {
	Count  int64
	Oldest time.Time
}

// GetRateLimitWindow returns the number of entries for (identifier,
// action) created at or after since, and the creation time of the
// oldest such entry. Oldest is the zero time when Count is zero.
func (r *Repository) GetRateLimitWindow(ctx context.Context, identifier, action string, since time.Time) (WindowStats, error) {
	var row struct {
		Count  int64      `db:"count"`
		Oldest *time.Time `db:"oldest"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT COUNT(*) AS count, MIN(created_at) AS oldest
		 FROM rate_limit_entries
		 WHERE identifier = ? AND action = ? AND created_at >= ?`,
		identifier, action, since)
	if err != nil {
		return WindowStats{}, err
	}

	stats := WindowStats{Count: row.Count}
	if row.Oldest != nil {
		stats.Oldest = *row.Oldest
	}
	return stats, nil
}

// CreateRateLimitEntry appends an entry for (identifier, action).
func (r *Repository) CreateRateLimitEntry(ctx context.Context, identifier, action string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limit_entries (identifier, action, created_at) VALUES (?, ?, ?)`,
		identifier, action, at)
	return err
}

// DeleteRateLimitEntriesBefore prunes entries older than the cutoff.
// The log is append-only otherwise; pruning only keeps it small.
func (r *Repository) DeleteRateLimitEntriesBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_entries WHERE created_at < ?`, cutoff)
	return err
}
