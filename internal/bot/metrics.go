// Package bot contains the notification dispatcher. This file exposes
// Prometheus instrumentation for notification handling with bounded label
// cardinality: event/command names come from small fixed enums, drop reasons
// from a short fixed list. All collectors are safe for concurrent use.
package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// eventsRecorded counts audit rows written, by event type.
	eventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_recorded_total",
			Help: "Total number of recorded audit events.",
		},
		[]string{"type"},
	)

	// eventsDropped counts notifications that produced no row, by reason:
	// consent (gate), unresolved (no prior join), malformed, store_error.
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_dropped_total",
			Help: "Total number of notifications dropped without a write.",
		},
		[]string{"reason"},
	)

	// commandsHandled counts chat commands, by command and outcome
	// (ok, noop, rate_limited, error).
	commandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of chat commands handled.",
		},
		[]string{"command", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(eventsRecorded, eventsDropped, commandsHandled)
}

const (
	dropConsent    = "consent"
	dropUnresolved = "unresolved"
	dropMalformed  = "malformed"
	dropStoreError = "store_error"
)
