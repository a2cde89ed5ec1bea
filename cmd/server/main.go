// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"os"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// sources creates a value source chain combining env vars and TOML config
func sources(envKey, tomlKey string, tomlSrc altsrc.Sourcer) cli.ValueSourceChain {
	chain := cli.EnvVars(envKey)
	chain.Chain = append(chain.Chain, toml.TOML(tomlKey, tomlSrc))
	return chain
}

func main() {
	var configFile string

	tomlSrc := altsrc.NewStringPtrSourcer(&configFile)

	cmd := &cli.Command{
		Name:    "portal-auth",
		Usage:   "Login and one-time-credential service for the portal",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags: []cli.Flag{
			// Config file
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       "config.toml",
				Usage:       "Path to configuration file",
				Destination: &configFile,
				Sources:     cli.EnvVars("CONFIG"),
			},

			// Server settings
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "Server host",
				Sources: sources("HOST", "server.host", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "Server port",
				Sources: sources("PORT", "server.port", tomlSrc),
			},

			// Logging
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: debug, info, warn, error",
				Sources: sources("LOG_LEVEL", "log.level", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format: text, json",
				Sources: sources("LOG_FORMAT", "log.format", tomlSrc),
			},

			// Database
			&cli.StringFlag{
				Name:    "database-dsn",
				Value:   "./data/auth.db",
				Usage:   "SQLite database path",
				Sources: sources("DATABASE_DSN", "database.dsn", tomlSrc),
			},

			// SMTP
			&cli.StringFlag{
				Name:    "smtp-host",
				Value:   "localhost",
				Usage:   "SMTP server host",
				Sources: sources("SMTP_HOST", "smtp.host", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Value:   587,
				Usage:   "SMTP server port",
				Sources: sources("SMTP_PORT", "smtp.port", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Value:   "no-reply@portal.example",
				Usage:   "Sender address for outgoing mail",
				Sources: sources("SMTP_FROM", "smtp.from", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "smtp-from-name",
				Value:   "Portal",
				Usage:   "Sender display name",
				Sources: sources("SMTP_FROM_NAME", "smtp.from_name", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP auth username",
				Sources: sources("SMTP_USERNAME", "smtp.username", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP auth password",
				Sources: sources("SMTP_PASSWORD", "smtp.password", tomlSrc),
			},
			&cli.BoolFlag{
				Name:    "smtp-tls",
				Value:   true,
				Usage:   "Require TLS for SMTP",
				Sources: sources("SMTP_TLS", "smtp.tls", tomlSrc),
			},

			// Sessions
			&cli.StringFlag{
				Name:    "session-cookie-name",
				Value:   "portal_session",
				Usage:   "Session cookie name",
				Sources: sources("SESSION_COOKIE_NAME", "session.cookie_name", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "session-max-age",
				Value:   24,
				Usage:   "Session lifetime in hours",
				Sources: sources("SESSION_MAX_AGE", "session.max_age", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "session-hash-key",
				Usage:   "Hex-encoded 32-byte key for cookie signing",
				Sources: sources("SESSION_HASH_KEY", "session.hash_key", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "session-block-key",
				Usage:   "Hex-encoded 32-byte key for cookie encryption (optional)",
				Sources: sources("SESSION_BLOCK_KEY", "session.block_key", tomlSrc),
			},
			&cli.BoolFlag{
				Name:    "session-secure",
				Usage:   "HTTPS only cookie",
				Sources: sources("SESSION_SECURE", "session.secure", tomlSrc),
			},

			// Authentication
			&cli.IntFlag{
				Name:    "otp-ttl",
				Value:   180,
				Usage:   "One-time code lifetime in seconds",
				Sources: sources("OTP_TTL", "auth.otp_ttl", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "rate-limit-window",
				Value:   60,
				Usage:   "Rate limit window in seconds",
				Sources: sources("RATE_LIMIT_WINDOW", "auth.rate_limit_window", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "rate-limit-max",
				Value:   3,
				Usage:   "Allowed actions per rate limit window",
				Sources: sources("RATE_LIMIT_MAX", "auth.rate_limit_max", tomlSrc),
			},
			&cli.StringFlag{
				Name:    "totp-issuer",
				Value:   "Portal",
				Usage:   "Issuer shown in authenticator apps",
				Sources: sources("TOTP_ISSUER", "auth.totp_issuer", tomlSrc),
			},
			&cli.IntFlag{
				Name:    "backup-code-count",
				Value:   8,
				Usage:   "Backup codes per generated set",
				Sources: sources("BACKUP_CODE_COUNT", "auth.backup_code_count", tomlSrc),
			},
		},
		Action: runServer,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
