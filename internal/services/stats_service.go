// Package services – StatsService
//
// Read-only aggregates over the audit tables for the operational HTTP
// endpoint. No consent logic lives here: the stats expose counts only,
// never identities.
package services

import (
	"context"

	"gorm.io/gorm"

	"tsoracle/internal/repo"
)

// StatsService serves aggregate audit statistics.
type StatsService struct {
	// DB is the GORM handle used for aggregate queries.
	DB *gorm.DB
}

// Collect returns current row counts per table and event type.
func (s *StatsService) Collect(ctx context.Context) (*repo.AuditStats, error) {
	return repo.CollectStats(ctx, s.DB)
}
