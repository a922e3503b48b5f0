// Package domain defines the persistence models for users, consent
// registrations, and the append-only audit trail of server activity.
// These types are mapped with GORM and form the core data layer of the bot.
package domain

import "time"

// EventType classifies a recorded server activity. Values are persisted as
// small integers and must never be renumbered.
type EventType int

const (
	// EventClientJoined marks a client connecting to the server.
	EventClientJoined EventType = 1
	// EventClientLeft marks a client disconnecting from the server.
	EventClientLeft EventType = 2
	// EventClientMoved marks a client switching channels.
	EventClientMoved EventType = 3
)

// String returns a human-readable name for logs and metrics labels.
func (t EventType) String() string {
	switch t {
	case EventClientJoined:
		return "client_joined"
	case EventClientLeft:
		return "client_left"
	case EventClientMoved:
		return "client_moved"
	default:
		return "unknown"
	}
}

// RegistrationAction is the direction of a consent-state transition.
// Canonical mapping: Registered=0, Unregistered=1.
type RegistrationAction int

const (
	// ActionRegistered records a user opting in to event recording.
	ActionRegistered RegistrationAction = 0
	// ActionUnregistered records a user opting out of event recording.
	ActionUnregistered RegistrationAction = 1
)

// MetaEventType classifies operational lifecycle markers.
type MetaEventType int

const (
	// MetaApplicationStarted is written once at process start.
	MetaApplicationStarted MetaEventType = 1
	// MetaApplicationShutdown is written best-effort at process exit.
	MetaApplicationShutdown MetaEventType = 2
)

// UserKey is the internal surrogate identity of a stored user.
type UserKey uint

// User represents a single platform identity. Users are created lazily the
// first time any event references their durable unique identifier and are
// never deleted. HasAgreed is the consent flag gating all personal-data
// writes; it is flipped only by explicit register/unregister actions.
//
// Fields:
//   - ID: surrogate integer primary key.
//   - UniqueID: platform-assigned durable identifier, stable across sessions.
//   - HasAgreed: consent flag, defaults to false.
type User struct {
	ID        UserKey   `gorm:"primaryKey"`
	UniqueID  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_users_unique_id"`
	HasAgreed bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserRegistration is an immutable audit row for one consent-state
// transition. Rows are appended by register/unregister and never mutated.
type UserRegistration struct {
	ID        uint               `gorm:"primaryKey"`
	UserID    UserKey            `gorm:"not null;index"`
	Action    RegistrationAction `gorm:"not null;check:action IN (0,1)"`
	Timestamp time.Time          `gorm:"not null"`

	// User is the identity whose consent state changed.
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for UserRegistration.
func (UserRegistration) TableName() string { return "user_registrations" }

// RecordedEvent is an immutable audit row for one server activity. A row only
// exists when at least one referenced user had agreed to recording at write
// time; events for non-consenting users are never written.
//
// Fields:
//   - EventType: activity classification (see EventType).
//   - InvokerID / TargetID: optional references to the acting and the
//     affected user. At least one is non-null on every stored row.
//   - ClientID: transient numeric session id, valid only for one connection.
//   - ChannelID: channel involved in the activity, when applicable.
type RecordedEvent struct {
	ID        uint      `gorm:"primaryKey"`
	EventType EventType `gorm:"not null;index:idx_events_type_client,priority:1"`
	InvokerID *UserKey  `gorm:"index"`
	TargetID  *UserKey  `gorm:"index"`
	ClientID  *int      `gorm:"index:idx_events_type_client,priority:2"`
	ChannelID *int
	Timestamp time.Time `gorm:"not null;index"`

	Invoker *User `gorm:"foreignKey:InvokerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Target  *User `gorm:"foreignKey:TargetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for RecordedEvent.
func (RecordedEvent) TableName() string { return "recorded_events" }

// MetaEvent is an operational marker (process start/stop). Meta events carry
// no personal data and are not consent-gated.
type MetaEvent struct {
	ID        uint          `gorm:"primaryKey"`
	Kind      MetaEventType `gorm:"not null"`
	Timestamp time.Time     `gorm:"not null"`
}

// TableName returns the database table name for MetaEvent.
func (MetaEvent) TableName() string { return "meta_events" }
