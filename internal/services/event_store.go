// Package services – EventStore
//
// This file implements the EventStore, the single owner of the audit schema
// and of the consent policy. Every operation runs in exactly one database
// transaction; consent is re-checked inside that transaction so a concurrent
// unregister can never race an event write into existence. All other
// components interact with the tables exclusively through this type.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"tsoracle/internal/domain"
	"tsoracle/internal/repo"
)

// EventRecord describes one activity to be appended to the audit trail.
// Invoker and Target are surrogate user keys previously handed out by the
// store; either may be nil.
type EventRecord struct {
	Type      domain.EventType
	Invoker   *domain.UserKey
	Target    *domain.UserKey
	SessionID *int
	ChannelID *int
	Timestamp time.Time
}

// EventStore provides consent-gated, append-only persistence of server
// activity. It is safe for concurrent use; the insert-if-absent race on
// users relies on the backend's unique-constraint conflict detection rather
// than in-process locking.
type EventStore struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewEventStore constructs an EventStore over the given database handle.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{DB: db}
}

// EnsureSchema idempotently creates the audit tables if absent.
func (s *EventStore) EnsureSchema() error {
	return repo.Migrate(s.DB)
}

// GetOrCreateUser returns the surrogate key for uniqueID, inserting the user
// with HasAgreed=false on first sight. Concurrent calls for the same id
// converge on a single row.
func (s *EventStore) GetOrCreateUser(ctx context.Context, uniqueID string) (domain.UserKey, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return 0, ErrBlankUniqueID
	}
	u, err := repo.GetOrCreateUser(ctx, s.DB, uniqueID)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// RegisterUser flips the consent flag on and appends the audit rows for one
// opt-in: a UserRegistration(Registered) and a RecordedEvent tying the
// durable identity to the current session id, so a mid-session registrant is
// resolvable by later leave/move notifications.
//
// If the user is already registered the call is a no-op and returns nil
// without touching the database. All writes happen in one transaction.
func (s *EventStore) RegisterUser(ctx context.Context, uniqueID string, sessionID int, ts time.Time) (*domain.UserKey, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return nil, ErrBlankUniqueID
	}
	var key *domain.UserKey
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetOrCreateUser(ctx, tx, uniqueID)
		if err != nil {
			return err
		}
		if u.HasAgreed {
			return nil // already registered
		}
		if err := repo.CreateRegistration(ctx, tx, u.ID, domain.ActionRegistered, ts); err != nil {
			return err
		}
		if err := repo.SetAgreed(ctx, tx, u.ID, true); err != nil {
			return err
		}
		ev := &domain.RecordedEvent{
			EventType: domain.EventClientJoined,
			InvokerID: &u.ID,
			ClientID:  &sessionID,
			Timestamp: ts,
		}
		if err := repo.CreateRecordedEvent(ctx, tx, ev); err != nil {
			return err
		}
		key = &u.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// UnregisterUser flips the consent flag off and appends the symmetric audit
// rows. The recorded event is the final attributable marker for the session;
// anything after it is dropped by the consent gate. If the user is not
// currently registered the call is a no-op and returns nil.
func (s *EventStore) UnregisterUser(ctx context.Context, uniqueID string, sessionID int, ts time.Time) (*domain.UserKey, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return nil, ErrBlankUniqueID
	}
	var key *domain.UserKey
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetOrCreateUser(ctx, tx, uniqueID)
		if err != nil {
			return err
		}
		if !u.HasAgreed {
			return nil // not registered
		}
		if err := repo.CreateRegistration(ctx, tx, u.ID, domain.ActionUnregistered, ts); err != nil {
			return err
		}
		if err := repo.SetAgreed(ctx, tx, u.ID, false); err != nil {
			return err
		}
		ev := &domain.RecordedEvent{
			EventType: domain.EventClientJoined,
			InvokerID: &u.ID,
			ClientID:  &sessionID,
			Timestamp: ts,
		}
		if err := repo.CreateRecordedEvent(ctx, tx, ev); err != nil {
			return err
		}
		key = &u.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// RecordEvent appends one activity row iff at least one referenced user has
// agreed to recording. The consent flag is re-read inside the transaction,
// and a side that turns out non-agreed is stored as null. When neither side
// qualifies the call returns (false, nil): a documented silent no-op, not an
// error.
func (s *EventStore) RecordEvent(ctx context.Context, rec EventRecord) (bool, error) {
	recorded := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoker, err := agreedKey(ctx, tx, rec.Invoker)
		if err != nil {
			return err
		}
		target, err := agreedKey(ctx, tx, rec.Target)
		if err != nil {
			return err
		}
		if invoker == nil && target == nil {
			return nil // consent gate: nothing to attribute
		}
		ev := &domain.RecordedEvent{
			EventType: rec.Type,
			InvokerID: invoker,
			TargetID:  target,
			ClientID:  rec.SessionID,
			ChannelID: rec.ChannelID,
			Timestamp: rec.Timestamp,
		}
		if err := repo.CreateRecordedEvent(ctx, tx, ev); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// ResolveAgreedUser returns the key for uniqueID only when the user exists
// and has agreed. Blank input, unknown users, and non-agreed users all yield
// (nil, nil); only storage failures surface as errors.
func (s *EventStore) ResolveAgreedUser(ctx context.Context, uniqueID string) (*domain.UserKey, error) {
	u, err := repo.FindAgreedUser(ctx, s.DB, uniqueID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u.ID, nil
}

// RecordMetaEvent appends an operational lifecycle marker. Meta events carry
// no personal data and bypass the consent gate.
func (s *EventStore) RecordMetaEvent(ctx context.Context, kind domain.MetaEventType) error {
	return repo.CreateMetaEvent(ctx, s.DB, kind, time.Now().UTC())
}

// agreedKey re-reads the consent flag for key inside the current transaction
// and returns the key only when the user is still agreed.
func agreedKey(ctx context.Context, tx *gorm.DB, key *domain.UserKey) (*domain.UserKey, error) {
	if key == nil {
		return nil, nil
	}
	u, err := repo.FindAgreedUserByKey(ctx, tx, *key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u.ID, nil
}
