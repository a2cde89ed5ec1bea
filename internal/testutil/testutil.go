// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/database"
	"github.com/portal-ops/portal-auth/internal/models"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plaintext password used by NewTestAccount.
const Password = "correct-horse-battery"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// AccountOpt mutates an account fixture before it is stored.
type AccountOpt func(*models.Account)

// WithInactive marks the fixture account as deactivated.
func WithInactive() AccountOpt {
	return func(a *models.Account) { a.Active = false }
}

// WithTOTP enables authenticator-app MFA with the given secret.
func WithTOTP(secret string) AccountOpt {
	return func(a *models.Account) {
		a.MFAEnabled = true
		a.TOTPEnabled = true
		a.TOTPSecret = secret
	}
}

// WithEmailMFA enables email-code MFA.
func WithEmailMFA() AccountOpt {
	return func(a *models.Account) {
		a.MFAEnabled = true
		a.EmailMFAEnabled = true
	}
}

// NewTestAccount creates an active account with the shared test password.
func NewTestAccount(t *testing.T, repo *repository.Repository, email string, opts ...AccountOpt) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:        email,
		PasswordHash: passwordHash(t),
		Active:       true,
	}
	for _, opt := range opts {
		opt(account)
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

var (
	hashOnce   sync.Once
	cachedHash string
)

// passwordHash caches the bcrypt hash of Password; hashing per test
// would dominate the suite's runtime.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		cachedHash = string(hash)
	})
	return cachedHash
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// RecordingNotifier captures dispatched messages for assertions.
type RecordingNotifier struct {
	mu       sync.Mutex
	Messages []RecordedMessage
	Err      error
}

// RecordedMessage is one captured notification.
type RecordedMessage struct {
	To      string
	Subject string
	Body    string
}

// Send records the message, or fails with the configured error.
func (n *RecordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Messages = append(n.Messages, RecordedMessage{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message, failing the test when none exists.
func (n *RecordingNotifier) Last(t *testing.T) RecordedMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.Messages)
	return n.Messages[len(n.Messages)-1]
}
