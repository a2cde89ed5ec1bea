// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package login sequences credential validation, second-factor checks
// and session issuance into the end-to-end login flow.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/session"
)

// ErrAuthFailed is the generic rejection for wrong second-factor
// submissions. Deliberately undifferentiated.
var ErrAuthFailed = errors.New("authentication failed")

// State of a login attempt. The server is stateless between round
// trips; the client re-submits credentials with each step and the
// state is reconstructed per request.
type State string

const (
	StateStart                State = "START"
	StateCredentialsValidated State = "CREDENTIALS_VALIDATED"
	StateTOTPPending          State = "TOTP_PENDING"
	StateEmailOTPPending      State = "EMAIL_OTP_PENDING"
	StateBackupPending        State = "BACKUP_PENDING"
	StateSessionIssued        State = "SESSION_ISSUED"
	StateFailed               State = "FAILED"
)

// transitions lists the legal successor states. FAILED is reachable
// from every non-terminal state and is left implicit.
var transitions = map[State][]State{
	StateStart:                {StateCredentialsValidated},
	StateCredentialsValidated: {StateSessionIssued, StateTOTPPending, StateEmailOTPPending},
	StateTOTPPending:          {StateSessionIssued, StateBackupPending},
	StateEmailOTPPending:      {StateSessionIssued},
	StateBackupPending:        {StateSessionIssued},
}

// CanTransition reports whether moving from one state to another is
// legal. Terminal states have no successors.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateSessionIssued && from != StateFailed
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// attempt tracks one in-flight login exchange.
type attempt struct {
	state   State
	account *models.Account
	method  mfa.Method
}

func (a *attempt) advance(to State) error {
	if !CanTransition(a.state, to) {
		return fmt.Errorf("illegal login transition %s -> %s", a.state, to)
	}
	a.state = to
	return nil
}

// Result is the outcome of one login round trip. Cookie is set only in
// StateSessionIssued; in the pending states the client must come back
// with the second factor.
type Result struct {
	State                State           `json:"state"`
	Method               mfa.Method      `json:"method"`
	Account              *models.Account `json:"-"`
	Cookie               *http.Cookie    `json:"-"`
	RemainingBackupCodes int64           `json:"remaining_backup_codes,omitempty"`
}

// Flow orchestrates the login state machine.
type Flow struct {
	creds    *credentials.Service
	otps     *otp.Service
	backup   *mfa.BackupService
	sessions *session.Manager
}

// NewFlow creates the login orchestrator.
func NewFlow(creds *credentials.Service, otps *otp.Service, backup *mfa.BackupService, sessions *session.Manager) *Flow {
	return &Flow{creds: creds, otps: otps, backup: backup, sessions: sessions}
}

// PasswordLogin validates credentials and either issues a session
// (no MFA), verifies the supplied authenticator code, or reports which
// second factor is pending.
func (f *Flow) PasswordLogin(ctx context.Context, email, password, totpCode string) (*Result, error) {
	a, err := f.begin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	switch a.method {
	case mfa.MethodNone:
		return f.issueSession(a)

	case mfa.MethodTOTP:
		if err := a.advance(StateTOTPPending); err != nil {
			return nil, err
		}
		if totpCode == "" {
			return &Result{State: a.state, Method: a.method, Account: a.account}, nil
		}
		if !mfa.VerifyTOTP(a.account.TOTPSecret, totpCode) {
			slog.Warn("login_failed", "email", email, "reason", "invalid_totp")
			return nil, ErrAuthFailed
		}
		return f.issueSession(a)

	case mfa.MethodEmailOTP:
		if err := a.advance(StateEmailOTPPending); err != nil {
			return nil, err
		}
		return &Result{State: a.state, Method: a.method, Account: a.account}, nil
	}

	return nil, fmt.Errorf("unknown mfa method %q", a.method)
}

// EmailOTPLogin completes the email-code branch: credentials are
// revalidated, then the code issued for the login purpose is consumed.
func (f *Flow) EmailOTPLogin(ctx context.Context, email, password, code string) (*Result, error) {
	a, err := f.begin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if a.method != mfa.MethodEmailOTP {
		slog.Warn("login_failed", "email", email, "reason", "email_otp_not_applicable")
		return nil, ErrAuthFailed
	}
	if err := a.advance(StateEmailOTPPending); err != nil {
		return nil, err
	}

	if err := f.otps.Verify(ctx, a.account.Email, models.PurposeLogin, code); err != nil {
		if errors.Is(err, otp.ErrInvalidOrExpired) {
			return nil, ErrAuthFailed
		}
		return nil, err
	}

	return f.issueSession(a)
}

// BackupCodeLogin completes the authenticator branch through the
// user-initiated "no device" fallback.
func (f *Flow) BackupCodeLogin(ctx context.Context, email, password, backupCode string) (*Result, error) {
	a, err := f.begin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if a.method != mfa.MethodTOTP {
		slog.Warn("login_failed", "email", email, "reason", "backup_code_not_applicable")
		return nil, ErrAuthFailed
	}
	if err := a.advance(StateTOTPPending); err != nil {
		return nil, err
	}
	if err := a.advance(StateBackupPending); err != nil {
		return nil, err
	}

	remaining, err := f.backup.Verify(ctx, a.account.ID, backupCode)
	if err != nil {
		return nil, err
	}

	result, err := f.issueSession(a)
	if err != nil {
		return nil, err
	}
	result.RemainingBackupCodes = remaining
	return result, nil
}

func (f *Flow) begin(ctx context.Context, email, password string) (*attempt, error) {
	a := &attempt{state: StateStart}

	account, err := f.creds.ForLogin(ctx, email, password)
	if err != nil {
		a.state = StateFailed
		return nil, err
	}
	if err := a.advance(StateCredentialsValidated); err != nil {
		return nil, err
	}

	a.account = account
	a.method = mfa.Resolve(account.MFASettings())
	return a, nil
}

func (f *Flow) issueSession(a *attempt) (*Result, error) {
	cookie, err := f.sessions.Issue(a.account.ID, a.account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	if err := a.advance(StateSessionIssued); err != nil {
		return nil, err
	}

	slog.Info("login_success", "account_id", a.account.ID, "email", a.account.Email, "method", a.method)
	return &Result{State: a.state, Method: a.method, Account: a.account, Cookie: cookie}, nil
}
