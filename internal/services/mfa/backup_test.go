// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package mfa_test

import (
	"context"
	"testing"

	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidBackupCodeFormat(t *testing.T) {
	valid := []string{"AAAA-1111", "Z9Z9-9Z9Z", "0000-0000"}
	for _, code := range valid {
		assert.True(t, mfa.ValidBackupCodeFormat(code), code)
	}

	invalid := []string{
		"",
		"aaaa-1111",    // lowercase
		"AAAA1111",     // missing hyphen
		"AAAA-11111",   // too long
		"AAA-1111",     // group too short
		"AAAA-111!",    // punctuation
		"AAAA--1111",   // double hyphen
		" AAAA-1111",   // leading space
		"AAAA-1111 ",   // trailing space
		"AAAA-1111-BB", // extra group
	}
	for _, code := range invalid {
		assert.False(t, mfa.ValidBackupCodeFormat(code), code)
	}
}

func TestBackupVerify(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")
	codes, err := svc.Generate(ctx, account.ID, 3)
	require.NoError(t, err)
	require.Len(t, codes, 3)

	remaining, err := svc.Verify(ctx, account.ID, codes[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestBackupVerify_SingleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")
	codes, err := svc.Generate(ctx, account.ID, 2)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, account.ID, codes[0])
	require.NoError(t, err)

	_, err = svc.Verify(ctx, account.ID, codes[0])
	assert.ErrorIs(t, err, mfa.ErrBackupCodeMismatch)
}

func TestBackupVerify_BadFormatNeverHitsStorage(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)

	// No account, no codes; format check must reject first.
	_, err := svc.Verify(context.Background(), 42, "not-a-code")
	assert.ErrorIs(t, err, mfa.ErrBackupCodeFormat)
}

func TestBackupVerify_WrongCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")
	_, err := svc.Generate(ctx, account.ID, 2)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, account.ID, "ZZZZ-2222")
	assert.ErrorIs(t, err, mfa.ErrBackupCodeMismatch)
}

func TestGenerate_CodesMatchAcceptedFormat(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")
	codes, err := svc.Generate(ctx, account.ID, 8)
	require.NoError(t, err)

	for _, code := range codes {
		assert.True(t, mfa.ValidBackupCodeFormat(code), code)
	}
}

func TestGenerate_ReplacesOldSet(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := mfa.NewBackupService(repo)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")
	old, err := svc.Generate(ctx, account.ID, 2)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, account.ID, 2)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, account.ID, old[0])
	assert.ErrorIs(t, err, mfa.ErrBackupCodeMismatch)

	count, err := repo.CountUnusedBackupCodes(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
