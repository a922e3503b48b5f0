// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides append helpers for the audit rows
// (registrations, recorded events, meta events) and the session replay query
// used by identity resolution.
//
// All audit rows are append-only: nothing here mutates or deletes existing
// rows. On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tsoracle/internal/domain"
)

// CreateRegistration appends one consent-transition audit row.
func CreateRegistration(ctx context.Context, db *gorm.DB, key domain.UserKey, action domain.RegistrationAction, ts time.Time) error {
	r := &domain.UserRegistration{
		UserID:    key,
		Action:    action,
		Timestamp: ts,
	}
	return db.WithContext(ctx).Create(r).Error
}

// CreateRecordedEvent appends one activity audit row. Callers are expected
// to have verified the consent gate already; this function persists exactly
// what it is given.
func CreateRecordedEvent(ctx context.Context, db *gorm.DB, ev *domain.RecordedEvent) error {
	return db.WithContext(ctx).Create(ev).Error
}

// CreateMetaEvent appends one operational lifecycle marker.
func CreateMetaEvent(ctx context.Context, db *gorm.DB, kind domain.MetaEventType, ts time.Time) error {
	m := &domain.MetaEvent{
		Kind:      kind,
		Timestamp: ts,
	}
	return db.WithContext(ctx).Create(m).Error
}

// LastJoinForSession returns the most recent ClientJoined row carrying the
// given transient session id, ordered by timestamp descending. When two rows
// tie on timestamp the higher row id wins; either would be acceptable.
// Returns ErrNotFound if no join was ever recorded for the session, e.g.
// after a process restart or when the joining user never agreed.
func LastJoinForSession(ctx context.Context, db *gorm.DB, sessionID int) (*domain.RecordedEvent, error) {
	var ev domain.RecordedEvent
	err := db.WithContext(ctx).
		Where("event_type = ? AND client_id = ?", domain.EventClientJoined, sessionID).
		Order("timestamp DESC, id DESC").
		First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
