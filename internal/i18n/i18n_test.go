// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
}

func TestT(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)
	result := i18n.T(ctx, "otp_sent")
	assert.NotEqual(t, "otp_sent", result)
}

func TestT_German(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.German)
	result := i18n.T(ctx, "otp_sent")
	assert.Contains(t, result, "Bestätigungscode")
}

func TestT_UnknownKey(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)
	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestTData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)
	result := i18n.TData(ctx, "otp_mail_body", map[string]any{"Code": "042137", "Minutes": 3})
	assert.Contains(t, result, "042137")
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.German, i18n.MatchLanguage("de-DE,de;q=0.9"))
	assert.Equal(t, language.English, i18n.MatchLanguage("fr-FR"))
}
