// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package session issues signed session cookies for verified identities.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// ErrInvalidSession is returned for cookies that fail to decode, were
// tampered with, or have expired.
var ErrInvalidSession = errors.New("invalid session")

// Session is the payload carried by the cookie.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Manager encodes and decodes session cookies.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewManager creates a session manager. hashKey signs the cookie and
// must be at least 32 bytes; blockKey optionally adds AES encryption
// and may be nil.
func NewManager(hashKey, blockKey []byte, cookieName string, maxAge time.Duration, secure bool) (*Manager, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("session hash key must be at least 32 bytes, got %d", len(hashKey))
	}
	if cookieName == "" {
		cookieName = "portal_session"
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))

	return &Manager{
		codec:      codec,
		cookieName: cookieName,
		maxAge:     maxAge,
		secure:     secure,
	}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue creates a session cookie for a verified identity.
func (m *Manager) Issue(accountID int64, email string) (*http.Cookie, error) {
	sess := Session{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Email:     email,
		IssuedAt:  time.Now(),
	}

	encoded, err := m.codec.Encode(m.cookieName, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode validates a cookie value and returns the session it carries.
func (m *Manager) Decode(value string) (*Session, error) {
	var sess Session
	if err := m.codec.Decode(m.cookieName, value, &sess); err != nil {
		return nil, ErrInvalidSession
	}
	return &sess, nil
}
