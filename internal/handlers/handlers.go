// Copyright 2025 Portal Ops
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers for the auth service.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/portal-ops/portal-auth/internal/repository"
)

// Handlers contains the non-auth HTTP handlers.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
