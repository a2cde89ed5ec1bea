// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lmittmann/tint"
	"github.com/portal-ops/portal-auth/internal/config"
	"github.com/portal-ops/portal-auth/internal/database"
	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/email"
	"github.com/portal-ops/portal-auth/internal/services/login"
	"github.com/portal-ops/portal-auth/internal/services/mfa"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/ratelimit"
	"github.com/portal-ops/portal-auth/internal/services/session"
	"github.com/urfave/cli/v3"
)

// setupLogger creates a structured logger based on configuration
func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: lvl})
	}

	return slog.New(handler)
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	// Open SQLite database; migrations run inside Open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to initialize i18n: %w", err)
	}

	repo := repository.New(db)

	notifier, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to create mail service: %w", err)
	}

	hashKey, blockKey, err := cfg.Session.Keys()
	if err != nil {
		return err
	}
	sessions, err := session.NewManager(hashKey, blockKey, cfg.Session.CookieName, time.Duration(cfg.Session.MaxAge)*time.Hour, cfg.Session.Secure)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	creds := credentials.NewService(repo)
	otps := otp.NewService(repo, notifier, time.Duration(cfg.Auth.OTPTTLSeconds)*time.Second)
	backup := mfa.NewBackupService(repo)
	limiter := ratelimit.New(repo, time.Duration(cfg.Auth.RateLimitWindow)*time.Second, int64(cfg.Auth.RateLimitMax))
	flow := login.NewFlow(creds, otps, backup, sessions)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupRoutes(e, &routerDeps{
		repo:    repo,
		creds:   creds,
		otps:    otps,
		flow:    flow,
		limiter: limiter,
		logger:  logger,
	})

	logger.Info("server_config",
		"database", cfg.Database.DSN,
		"otp_ttl", cfg.Auth.OTPTTLSeconds,
		"rate_limit_window", cfg.Auth.RateLimitWindow,
		"rate_limit_max", cfg.Auth.RateLimitMax,
		"log_level", cfg.Log.Level,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server_start", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case sig := <-stop:
		logger.Info("server_shutdown", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
