// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Consent policy lives in the services
// layer, which composes these functions inside a single transaction.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tsoracle/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrCreateUser inserts a User row for uniqueID if absent and returns the
// stored row. The insert uses the backend's unique-constraint conflict
// detection ("insert, ignore on conflict") followed by a read-back, so
// concurrent calls for the same uniqueID converge on one row without any
// application-level locking.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, uniqueID string) (*domain.User, error) {
	u := &domain.User{
		UniqueID:  uniqueID,
		HasAgreed: false,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unique_id"}},
			DoNothing: true,
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	// Read back: on conflict the insert is a no-op and u.ID stays zero, so
	// the stored row (ours or the concurrent winner's) is always re-fetched.
	return FindUserByUniqueID(ctx, db, uniqueID)
}

// FindUserByUniqueID fetches a user by durable identifier. Returns
// ErrNotFound if no such user exists.
func FindUserByUniqueID(ctx context.Context, db *gorm.DB, uniqueID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("unique_id = ?", uniqueID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindAgreedUser fetches a user by durable identifier only if the consent
// flag is set. Blank input and unknown or non-agreed users all yield
// ErrNotFound; connectivity failures are returned as-is.
func FindAgreedUser(ctx context.Context, db *gorm.DB, uniqueID string) (*domain.User, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return nil, ErrNotFound
	}
	var u domain.User
	err := db.WithContext(ctx).
		Where("unique_id = ? AND has_agreed = ?", uniqueID, true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindAgreedUserByKey fetches a user by surrogate key only if the consent
// flag is set. Returns ErrNotFound for unknown or non-agreed users.
func FindAgreedUserByKey(ctx context.Context, db *gorm.DB, key domain.UserKey) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ? AND has_agreed = ?", key, true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetAgreed updates the consent flag of the user identified by key.
// Returns ErrNotFound if no row was affected.
func SetAgreed(ctx context.Context, db *gorm.DB, key domain.UserKey, agreed bool) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", key).
		Update("has_agreed", agreed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
