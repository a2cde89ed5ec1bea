// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package models

import "time"

// RateLimitEntry records one guarded action for an identifier. Rows are
// append-only; only entries inside the trailing window count, older rows
// are pruned opportunistically.
type RateLimitEntry struct {
	ID         int64     `db:"id" json:"id"`
	Identifier string    `db:"identifier" json:"identifier"`
	Action     string    `db:"action" json:"action"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
