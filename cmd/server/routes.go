// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package main

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/handlers"
	"github.com/portal-ops/portal-auth/internal/middleware"
	"github.com/portal-ops/portal-auth/internal/repository"
	"github.com/portal-ops/portal-auth/internal/services/credentials"
	"github.com/portal-ops/portal-auth/internal/services/login"
	"github.com/portal-ops/portal-auth/internal/services/otp"
	"github.com/portal-ops/portal-auth/internal/services/ratelimit"
)

// routerDeps holds dependencies needed to set up routes
type routerDeps struct {
	repo    *repository.Repository
	creds   *credentials.Service
	otps    *otp.Service
	flow    *login.Flow
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// setupRoutes configures all HTTP routes on the given router
func setupRoutes(e *echo.Echo, deps *routerDeps) {
	// Global middlewares (order matters)
	e.Use(middleware.RequestLogger(deps.logger))
	e.Use(middleware.Locale)

	h := handlers.New(deps.repo)
	e.GET("/health", h.Health)

	auth := handlers.NewAuth(deps.repo, deps.creds, deps.otps, deps.flow, deps.limiter)
	g := e.Group("/auth")
	g.POST("/otp/send", auth.SendOTP)
	g.POST("/otp/verify", auth.VerifyOTP)
	g.POST("/login", auth.Login)
	g.POST("/login/email-otp", auth.EmailOTPLogin)
	g.POST("/backup-code/verify", auth.VerifyBackupCode)
	g.GET("/mfa/status", auth.MFAStatus)
}
