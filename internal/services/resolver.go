// Package services – SessionResolver
//
// This file implements the SessionResolver, which bridges transient numeric
// session ids to durable user identities. Leave and move notifications carry
// only the session id, so the resolver replays the audit trail: the most
// recent ClientJoined row for the session names the user.
//
// Known gap: the replay only sees rows written by this database. If the
// process restarts between a join and a later leave/move, or the joining
// user never agreed (so no row exists), the session is permanently
// unattributable. That is accepted behavior, not a defect.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tsoracle/internal/domain"
	"tsoracle/internal/repo"
)

// SessionResolver maps session ids to user keys by replaying recorded joins.
type SessionResolver struct {
	// DB is the GORM handle used for replay queries.
	DB *gorm.DB
}

// NewSessionResolver constructs a SessionResolver over the given handle.
func NewSessionResolver(db *gorm.DB) *SessionResolver {
	return &SessionResolver{DB: db}
}

// LastUserForSession returns the identity recorded by the newest
// ClientJoined row with the given session id: the target when set (join
// notifications), otherwise the invoker (in-channel registrations). Returns
// (nil, nil) when no join was ever recorded for the session.
func (r *SessionResolver) LastUserForSession(ctx context.Context, sessionID int) (*domain.UserKey, error) {
	ev, err := repo.LastJoinForSession(ctx, r.DB, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ev.TargetID != nil {
		return ev.TargetID, nil
	}
	return ev.InvokerID, nil
}
