// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the operational HTTP endpoint. Each function is context-aware and safe
// to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tsoracle/internal/domain"
)

// AuditStats is a point-in-time aggregate over the audit tables.
type AuditStats struct {
	Users       int64           `json:"users"`
	AgreedUsers int64           `json:"agreed_users"`
	Events      map[string]int64 `json:"events"`
	MetaEvents  int64           `json:"meta_events"`
	LastEventAt *time.Time      `json:"last_event_at,omitempty"`
}

// CollectStats gathers row counts per table plus a per-event-type breakdown
// and the timestamp of the newest recorded event. When no events exist,
// LastEventAt is nil and the breakdown map holds zeroes for all known types.
func CollectStats(ctx context.Context, db *gorm.DB) (*AuditStats, error) {
	s := &AuditStats{Events: map[string]int64{
		domain.EventClientJoined.String(): 0,
		domain.EventClientLeft.String():   0,
		domain.EventClientMoved.String():  0,
	}}

	q := db.WithContext(ctx)
	if err := q.Model(&domain.User{}).Count(&s.Users).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&domain.User{}).Where("has_agreed = ?", true).Count(&s.AgreedUsers).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&domain.MetaEvent{}).Count(&s.MetaEvents).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		EventType domain.EventType
		N         int64
	}
	err := q.Model(&domain.RecordedEvent{}).
		Select("event_type, COUNT(*) AS n").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	var total int64
	for _, r := range rows {
		s.Events[r.EventType.String()] = r.N
		total += r.N
	}
	if total == 0 {
		return s, nil
	}

	// Get latest timestamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Timestamp time.Time
	}
	err = q.Model(&domain.RecordedEvent{}).
		Select("timestamp").
		Order("timestamp DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	s.LastEventAt = &row.Timestamp
	return s, nil
}
