// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package config assembles the service configuration from CLI flags,
// environment variables and the TOML config file.
package config

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Session  SessionConfig
	Auth     AuthConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host string
	Port int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	From     string
	FromName string
	Username string
	Password string
	TLS      bool
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in hours
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
	Secure     bool   // HTTPS-only cookie
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical
	OTPTTLSeconds   int    // One-time code lifetime
	RateLimitWindow int    // Rate limit window in seconds
	RateLimitMax    int    // Allowed actions per window
	TOTPIssuer      string // Issuer shown in authenticator apps
	BackupCodeCount int    // Codes per generated set
}

// NewFromCLI builds the configuration from a parsed CLI command.
func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host: cmd.String("host"),
			Port: int(cmd.Int("port")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
			Secure:     cmd.Bool("session-secure"),
		},
		Auth: AuthConfig{
			OTPTTLSeconds:   int(cmd.Int("otp-ttl")),
			RateLimitWindow: int(cmd.Int("rate-limit-window")),
			RateLimitMax:    int(cmd.Int("rate-limit-max")),
			TOTPIssuer:      cmd.String("totp-issuer"),
			BackupCodeCount: int(cmd.Int("backup-code-count")),
		},
	}
}

// Keys decodes the session keys from their hex representation. The
// block key is optional and nil when unset.
func (c *SessionConfig) Keys() (hashKey, blockKey []byte, err error) {
	hashKey, err = hex.DecodeString(c.HashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid session hash key: %w", err)
	}

	if c.BlockKey != "" {
		blockKey, err = hex.DecodeString(c.BlockKey)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid session block key: %w", err)
		}
	}

	return hashKey, blockKey, nil
}
