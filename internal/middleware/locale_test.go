// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/i18n"
	"github.com/portal-ops/portal-auth/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocale(t *testing.T) {
	require.NoError(t, i18n.Init())
	e := echo.New()

	tests := []struct {
		name           string
		acceptLanguage string
		want           string
	}{
		{"german", "de-DE,de;q=0.9", "de"},
		{"english", "en-US,en;q=0.9", "en"},
		{"unsupported falls back", "fr-FR", "en"},
		{"empty header", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var got string
			handler := middleware.Locale(func(c echo.Context) error {
				got = i18n.GetLocale(c.Request().Context())
				return nil
			})
			require.NoError(t, handler(c))
			assert.Equal(t, tt.want, got)
		})
	}
}
