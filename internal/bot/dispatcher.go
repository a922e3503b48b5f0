// Package bot contains the Dispatcher, which translates each asynchronous
// server notification into at most one Event Store call. Notifications may
// arrive concurrently; every handler runs to completion (or drop) without
// touching shared mutable state beyond the store's own transactions, and a
// failed audit write never takes the listener down.
package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tsoracle/internal/domain"
	"tsoracle/internal/services"
	"tsoracle/internal/ts"
)

// Recognized chat commands. Matching is exact and case-sensitive.
const (
	cmdRegister   = "!register"
	cmdUnregister = "!unregister"
)

// textModeChannel is the TS3 targetmode for channel messages, the only text
// surface the bot listens on.
const textModeChannel = 2

// Store is the Event Store surface the dispatcher needs.
type Store interface {
	GetOrCreateUser(ctx context.Context, uniqueID string) (domain.UserKey, error)
	RegisterUser(ctx context.Context, uniqueID string, sessionID int, ts time.Time) (*domain.UserKey, error)
	UnregisterUser(ctx context.Context, uniqueID string, sessionID int, ts time.Time) (*domain.UserKey, error)
	RecordEvent(ctx context.Context, rec services.EventRecord) (bool, error)
	ResolveAgreedUser(ctx context.Context, uniqueID string) (*domain.UserKey, error)
}

// Resolver maps transient session ids to durable identities.
type Resolver interface {
	LastUserForSession(ctx context.Context, sessionID int) (*domain.UserKey, error)
}

// Messenger posts confirmations back to the bot's channel.
type Messenger interface {
	SendChannelMessage(msg string) error
}

// Dispatcher implements ts.Handler. It owns no persistent state; identity
// resolution and all writes go through the injected Store and Resolver.
type Dispatcher struct {
	store     Store
	resolver  Resolver
	messenger Messenger
	loc       *Localizer
	limits    *commandLimiter
	log       zerolog.Logger

	now func() time.Time // test seam
}

// NewDispatcher wires a Dispatcher. commandRPS/commandBurst bound how often
// a single client may run register/unregister; rps <= 0 disables the
// throttle.
func NewDispatcher(store Store, resolver Resolver, messenger Messenger, loc *Localizer, commandRPS float64, commandBurst int, lg zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		resolver:  resolver,
		messenger: messenger,
		loc:       loc,
		limits:    newCommandLimiter(commandRPS, commandBurst),
		log:       lg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleClientJoined ensures the user row exists and appends a ClientJoined
// event. The store drops the row silently when the user has not agreed.
func (d *Dispatcher) HandleClientJoined(ctx context.Context, e ts.ClientJoined) {
	key, err := d.store.GetOrCreateUser(ctx, e.UniqueID)
	if err != nil {
		eventsDropped.WithLabelValues(dropStoreError).Inc()
		d.log.Error().Err(err).Str("unique_id", e.UniqueID).Msg("client join not recorded")
		return
	}
	d.record(ctx, services.EventRecord{
		Type:      domain.EventClientJoined,
		Target:    &key,
		SessionID: &e.SessionID,
		ChannelID: &e.ChannelID,
		Timestamp: d.now(),
	})
}

// HandleClientLeft resolves the leaving session to a user via the recorded
// join trail and appends a ClientLeft event. Sessions with no attributable
// join are dropped.
func (d *Dispatcher) HandleClientLeft(ctx context.Context, e ts.ClientLeft) {
	target, err := d.resolver.LastUserForSession(ctx, e.SessionID)
	if err != nil {
		eventsDropped.WithLabelValues(dropStoreError).Inc()
		d.log.Error().Err(err).Int("session_id", e.SessionID).Msg("client leave not recorded")
		return
	}
	if target == nil {
		eventsDropped.WithLabelValues(dropUnresolved).Inc()
		d.log.Debug().Int("session_id", e.SessionID).Msg("leave for unattributable session")
		return
	}
	d.record(ctx, services.EventRecord{
		Type:      domain.EventClientLeft,
		Target:    target,
		SessionID: &e.SessionID,
		Timestamp: d.now(),
	})
}

// HandleClientMoved resolves the moved session via the join trail and the
// mover via the durable id in the notification, then appends a ClientMoved
// event. Either side may be unknown; the store gates on whoever remains.
func (d *Dispatcher) HandleClientMoved(ctx context.Context, e ts.ClientMoved) {
	invoker, err := d.store.ResolveAgreedUser(ctx, e.InvokerUID)
	if err != nil {
		eventsDropped.WithLabelValues(dropStoreError).Inc()
		d.log.Error().Err(err).Int("session_id", e.SessionID).Msg("client move not recorded")
		return
	}
	target, err := d.resolver.LastUserForSession(ctx, e.SessionID)
	if err != nil {
		eventsDropped.WithLabelValues(dropStoreError).Inc()
		d.log.Error().Err(err).Int("session_id", e.SessionID).Msg("client move not recorded")
		return
	}
	if invoker == nil && target == nil {
		eventsDropped.WithLabelValues(dropUnresolved).Inc()
		d.log.Debug().Int("session_id", e.SessionID).Msg("move for unattributable session")
		return
	}
	d.record(ctx, services.EventRecord{
		Type:      domain.EventClientMoved,
		Invoker:   invoker,
		Target:    target,
		SessionID: &e.SessionID,
		ChannelID: &e.ChannelID,
		Timestamp: d.now(),
	})
}

// HandleTextMessage dispatches the two recognized channel commands. Every
// other message is ignored.
func (d *Dispatcher) HandleTextMessage(ctx context.Context, e ts.TextMessage) {
	if e.TargetMode != textModeChannel {
		return
	}
	if e.Message != cmdRegister && e.Message != cmdUnregister {
		return
	}
	if e.InvokerUID == "" {
		eventsDropped.WithLabelValues(dropMalformed).Inc()
		d.log.Warn().Str("command", e.Message).Msg("command without invoker identity dropped")
		return
	}
	if !d.limits.Allow(e.InvokerUID) {
		commandsHandled.WithLabelValues(e.Message, "rate_limited").Inc()
		d.log.Warn().Str("command", e.Message).Str("unique_id", e.InvokerUID).Msg("command rate limited")
		return
	}

	d.log.Debug().Str("unique_id", e.InvokerUID).Str("command", e.Message).Msg("handling chat command")

	var (
		key     *domain.UserKey
		err     error
		confirm string
	)
	switch e.Message {
	case cmdRegister:
		key, err = d.store.RegisterUser(ctx, e.InvokerUID, e.SessionID, d.now())
		confirm = d.loc.Registered()
	case cmdUnregister:
		key, err = d.store.UnregisterUser(ctx, e.InvokerUID, e.SessionID, d.now())
		confirm = d.loc.Unregistered()
	}
	if err != nil {
		commandsHandled.WithLabelValues(e.Message, "error").Inc()
		d.log.Error().Err(err).Str("command", e.Message).Str("unique_id", e.InvokerUID).Msg("command failed")
		return
	}
	if key == nil {
		// Consent state already matched the request; deliberately quiet.
		commandsHandled.WithLabelValues(e.Message, "noop").Inc()
		d.log.Debug().Str("command", e.Message).Str("unique_id", e.InvokerUID).Msg("command was a no-op")
		return
	}

	commandsHandled.WithLabelValues(e.Message, "ok").Inc()
	if err := d.messenger.SendChannelMessage(confirm); err != nil {
		d.log.Error().Err(err).Str("command", e.Message).Msg("sending confirmation failed")
	}
}

// record forwards one event to the store and accounts for the outcome.
func (d *Dispatcher) record(ctx context.Context, rec services.EventRecord) {
	recorded, err := d.store.RecordEvent(ctx, rec)
	if err != nil {
		eventsDropped.WithLabelValues(dropStoreError).Inc()
		d.log.Error().Err(err).Str("type", rec.Type.String()).Msg("event not recorded")
		return
	}
	if !recorded {
		eventsDropped.WithLabelValues(dropConsent).Inc()
		d.log.Debug().Str("type", rec.Type.String()).Msg("event gated by consent")
		return
	}
	eventsRecorded.WithLabelValues(rec.Type.String()).Inc()
}
