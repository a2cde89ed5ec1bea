// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/portal-ops/portal-auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAccountByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice@example.com")

	found, err := repo.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
}

func TestGetAccountByEmail_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "Alice@Example.com")

	found, err := repo.GetAccountByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
}

func TestGetAccountByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAccountByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateAccount_DuplicateEmailDiffersOnlyByCase(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAccount(t, repo, "bob@example.com")

	err := repo.CreateAccount(ctx, &models.Account{
		Email:        "BOB@example.com",
		PasswordHash: "x",
		Active:       true,
	})
	assert.Error(t, err, "unique index is case-insensitive")
}

func TestUpdateAccountMFA(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "carol@example.com")

	settings := models.MFASettings{MFAEnabled: true, TOTPEnabled: true}
	require.NoError(t, repo.UpdateAccountMFA(ctx, account.ID, settings, "JBSWY3DPEHPK3PXP"))

	found, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, found.MFAEnabled)
	assert.True(t, found.TOTPEnabled)
	assert.False(t, found.EmailMFAEnabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", found.TOTPSecret)
}
