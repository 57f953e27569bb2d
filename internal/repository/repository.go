// Package repository defines the storage interfaces the service layer
// programs against. Concrete implementations live in subpackages
// (currently only sqlite).
package repository

import (
	"context"

	"github.com/sakif/clerk-sync/internal/model"
)

// UserRepository persists the local projection of Clerk user records.
//
// The Clerk user ID is the lookup key for every operation except the
// initial insert; the internal row ID is assigned by Create and never
// changes afterwards.
type UserRepository interface {
	// Create inserts a new user row. Returns apperror.ErrConflict if a row
	// for the same Clerk user ID already exists.
	Create(ctx context.Context, user *model.User) error

	// GetByClerkID looks a user up by their Clerk user ID.
	// Returns apperror.ErrNotFound if no row exists.
	GetByClerkID(ctx context.Context, clerkUserID string) (*model.User, error)

	// Update fully replaces the mutable profile fields of the row keyed by
	// user.ClerkUserID. Returns apperror.ErrNotFound if no row exists.
	Update(ctx context.Context, user *model.User) error

	// Delete removes the row for the given Clerk user ID.
	// Returns apperror.ErrNotFound if no row exists; tolerating that is a
	// policy decision that belongs to the service layer, not here.
	Delete(ctx context.Context, clerkUserID string) error
}
