// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package login_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/login"
	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/session"
	"github.com/portal-ops/portal-auth/internal/testutil"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mailCodePattern = regexp.MustCompile(`\b(\d{6})\b`)

type fixture struct {
	flow     *login.Flow
	repo     *repository.Repository
	notifier *testutil.RecordingNotifier
	otps     *otp.Service
	backup   *mfa.BackupService
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, i18n.Init())

	_, repo := testutil.NewTestDB(t)
	notifier := &testutil.RecordingNotifier{}
	otps := otp.NewService(repo, notifier, 3*time.Minute)
	backup := mfa.NewBackupService(repo)

	sessions, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), nil, "portal_session", 24*time.Hour, false)
	require.NoError(t, err)

	flow := login.NewFlow(credentials.NewService(repo), otps, backup, sessions)
	return &fixture{flow: flow, repo: repo, notifier: notifier, otps: otps, backup: backup, sessions: sessions}
}

func TestPasswordLogin_NoMFA(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "plain@example.com")

	result, err := f.flow.PasswordLogin(context.Background(), "plain@example.com", testutil.Password, "")
	require.NoError(t, err)

	assert.Equal(t, login.StateSessionIssued, result.State)
	assert.Equal(t, mfa.MethodNone, result.Method)
	require.NotNil(t, result.Cookie)

	sess, err := f.sessions.Decode(result.Cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "plain@example.com", sess.Email)
	assert.Empty(t, f.notifier.Messages, "no-MFA login must not dispatch mail")
}

func TestPasswordLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "plain@example.com")

	_, err := f.flow.PasswordLogin(context.Background(), "plain@example.com", "not-the-password", "")
	assert.ErrorIs(t, err, credentials.ErrInvalidCredentials)
}

func TestPasswordLogin_TOTPPending(t *testing.T) {
	f := newFixture(t)
	key, err := mfa.GenerateTOTPSecret("Portal", "totp@example.com")
	require.NoError(t, err)
	testutil.NewTestAccount(t, f.repo, "totp@example.com", testutil.WithTOTP(key.Secret()))

	result, err := f.flow.PasswordLogin(context.Background(), "totp@example.com", testutil.Password, "")
	require.NoError(t, err)

	assert.Equal(t, login.StateTOTPPending, result.State)
	assert.Equal(t, mfa.MethodTOTP, result.Method)
	assert.Nil(t, result.Cookie)
}

func TestPasswordLogin_TOTPCompletes(t *testing.T) {
	f := newFixture(t)
	key, err := mfa.GenerateTOTPSecret("Portal", "totp@example.com")
	require.NoError(t, err)
	testutil.NewTestAccount(t, f.repo, "totp@example.com", testutil.WithTOTP(key.Secret()))

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	result, err := f.flow.PasswordLogin(context.Background(), "totp@example.com", testutil.Password, code)
	require.NoError(t, err)
	assert.Equal(t, login.StateSessionIssued, result.State)
	require.NotNil(t, result.Cookie)
}

func TestPasswordLogin_TOTPWrongCode(t *testing.T) {
	f := newFixture(t)
	key, err := mfa.GenerateTOTPSecret("Portal", "totp@example.com")
	require.NoError(t, err)
	testutil.NewTestAccount(t, f.repo, "totp@example.com", testutil.WithTOTP(key.Secret()))

	_, err = f.flow.PasswordLogin(context.Background(), "totp@example.com", testutil.Password, "000000")
	assert.ErrorIs(t, err, login.ErrAuthFailed)
}

func TestPasswordLogin_EmailOTPPending(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "mail@example.com", testutil.WithEmailMFA())

	result, err := f.flow.PasswordLogin(context.Background(), "mail@example.com", testutil.Password, "")
	require.NoError(t, err)

	assert.Equal(t, login.StateEmailOTPPending, result.State)
	assert.Equal(t, mfa.MethodEmailOTP, result.Method)
	assert.Nil(t, result.Cookie)
}

func TestEmailOTPLogin_Completes(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "mail@example.com", testutil.WithEmailMFA())
	ctx := context.Background()

	require.NoError(t, f.otps.Issue(ctx, "mail@example.com", models.PurposeLogin))
	match := mailCodePattern.FindStringSubmatch(f.notifier.Last(t).Body)
	require.NotNil(t, match)

	result, err := f.flow.EmailOTPLogin(ctx, "mail@example.com", testutil.Password, match[1])
	require.NoError(t, err)
	assert.Equal(t, login.StateSessionIssued, result.State)
	require.NotNil(t, result.Cookie)
}

func TestEmailOTPLogin_WrongCode(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "mail@example.com", testutil.WithEmailMFA())

	_, err := f.flow.EmailOTPLogin(context.Background(), "mail@example.com", testutil.Password, "123456")
	assert.ErrorIs(t, err, login.ErrAuthFailed)
}

func TestEmailOTPLogin_NotApplicable(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "plain@example.com")

	_, err := f.flow.EmailOTPLogin(context.Background(), "plain@example.com", testutil.Password, "123456")
	assert.ErrorIs(t, err, login.ErrAuthFailed)
}

func TestBackupCodeLogin_Completes(t *testing.T) {
	f := newFixture(t)
	key, err := mfa.GenerateTOTPSecret("Portal", "totp@example.com")
	require.NoError(t, err)
	account := testutil.NewTestAccount(t, f.repo, "totp@example.com", testutil.WithTOTP(key.Secret()))
	ctx := context.Background()

	codes, err := f.backup.Generate(ctx, account.ID, 3)
	require.NoError(t, err)

	result, err := f.flow.BackupCodeLogin(ctx, "totp@example.com", testutil.Password, codes[0])
	require.NoError(t, err)

	assert.Equal(t, login.StateSessionIssued, result.State)
	assert.EqualValues(t, 2, result.RemainingBackupCodes)
	require.NotNil(t, result.Cookie)

	// A consumed code must not work twice.
	_, err = f.flow.BackupCodeLogin(ctx, "totp@example.com", testutil.Password, codes[0])
	assert.ErrorIs(t, err, mfa.ErrBackupCodeMismatch)
}

func TestBackupCodeLogin_RequiresTOTPAccount(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestAccount(t, f.repo, "mail@example.com", testutil.WithEmailMFA())

	_, err := f.flow.BackupCodeLogin(context.Background(), "mail@example.com", testutil.Password, "AAAA-AAAA")
	assert.ErrorIs(t, err, login.ErrAuthFailed)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to login.State
		ok       bool
	}{
		{login.StateStart, login.StateCredentialsValidated, true},
		{login.StateCredentialsValidated, login.StateSessionIssued, true},
		{login.StateCredentialsValidated, login.StateTOTPPending, true},
		{login.StateCredentialsValidated, login.StateEmailOTPPending, true},
		{login.StateTOTPPending, login.StateBackupPending, true},
		{login.StateTOTPPending, login.StateSessionIssued, true},
		{login.StateEmailOTPPending, login.StateSessionIssued, true},
		{login.StateBackupPending, login.StateSessionIssued, true},
		{login.StateStart, login.StateSessionIssued, false},
		{login.StateStart, login.StateTOTPPending, false},
		{login.StateEmailOTPPending, login.StateBackupPending, false},
		{login.StateSessionIssued, login.StateFailed, false},
		{login.StateTOTPPending, login.StateFailed, true},
		{login.StateFailed, login.StateCredentialsValidated, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, login.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
