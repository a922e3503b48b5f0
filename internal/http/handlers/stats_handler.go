// Package handlers provides the HTTP handlers of the operational API.
// This file implements the audit statistics endpoint.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tsoracle/internal/repo"
)

// StatsProvider is the service surface the stats endpoint needs.
type StatsProvider interface {
	Collect(ctx context.Context) (*repo.AuditStats, error)
}

// Handler bundles the handler dependencies.
type Handler struct {
	Stats StatsProvider
}

// New constructs the handler set.
func New(stats StatsProvider) *Handler {
	return &Handler{Stats: stats}
}

// GetStats returns aggregate audit counts: users, agreed users, recorded
// events per type, meta events, and the newest event timestamp. The payload
// contains counts only, never identities.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Stats.Collect(c.Request.Context())
	if err != nil {
		Fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "collecting statistics failed")
		return
	}
	OK(c, stats)
}
