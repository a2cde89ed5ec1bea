// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package middleware provides the HTTP middleware for the auth service.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns middleware that logs HTTP requests. The health
// endpoint is skipped; probes would drown out the real traffic.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			if c.Path() == "/health" {
				return err
			}

			req := c.Request()
			logger.Info("http_request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"remote_ip", c.RealIP(),
			)
			return err
		}
	}
}
