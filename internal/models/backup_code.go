// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package models

import "time"

// BackupCode stores a hashed single-use MFA bypass code.
type BackupCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	AccountID int64      `db:"account_id" json:"account_id"`
	CodeHash  string     `db:"code_hash" json:"-"`
	Used      bool       `db:"used" json:"used"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
}
