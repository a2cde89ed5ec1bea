// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/i18n"
)

// Locale detects the preferred language from the Accept-Language header
// and stores it in the request context for localized mail and messages.
func Locale(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		lang := i18n.MatchLanguage(req.Header.Get("Accept-Language"))
		ctx := i18n.WithLocale(req.Context(), lang)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}
