// Package handlers defines HTTP-layer error codes for the operational API.
// Codes are lowercase snake_case and stable so that dashboards and probes
// can branch on them programmatically.
package handlers

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeStatsFailed = "stats_failed"
)
