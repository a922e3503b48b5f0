// Package services defines the business logic for the audit store and
// session resolution. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// Consent-policy no-ops (already registered, not registered, consent-gated
// event drop) are deliberately NOT errors: they surface as nil/false results
// per the store contracts.
package services

import "errors"

var (
	// ErrBlankUniqueID is returned when an operation that must create or
	// resolve a user receives an empty durable identifier.
	ErrBlankUniqueID = errors.New("unique id is blank")
)
