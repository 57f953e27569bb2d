// Package service contains the business logic layer.
//
// Handlers parse HTTP and call into services; services enforce the sync
// policy and call the repository. The service knows nothing about HTTP and
// the handlers know nothing about SQL.
//
// SYNC POLICY (deliberately asymmetric):
//   - Create is strict: a second create for the same Clerk user ID is a
//     Conflict, not an idempotent no-op.
//   - Update is strict: updating a user we have never seen is NotFound.
//   - Delete is lenient: deleting a user we have never seen logs a warning
//     and succeeds. Clerk may redeliver deletion events after the row is
//     already gone, and a missing row is exactly the state a delete wants.
//
// Ensure exists alongside Create for the client fallback path, where a
// create racing the webhook delivery is expected and must not surface as an
// error (see Ensure).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/model"
	"github.com/sakif/clerk-sync/internal/repository"
)

// UserService keeps the local users table consistent with Clerk.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService. The repository is injected so tests
// can pass an in-memory implementation.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// validate checks the fields every write path requires and fills in
// defaulted timestamps. The identity provider is trusted for everything
// else — we don't second-guess name or avatar contents.
func validate(user *model.User) error {
	user.ClerkUserID = strings.TrimSpace(user.ClerkUserID)
	if user.ClerkUserID == "" {
		return apperror.ValidationFailed("clerkUserId", "clerk user ID is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return nil
}

// Create inserts a new user projection.
//
// Strict: if a row for this Clerk user ID already exists the call fails
// with a Conflict. Callers that want "already exists is fine" semantics
// use Ensure instead.
func (s *UserService) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validate(user); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("clerkUserId", user.ClerkUserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("clerkUserId", user.ClerkUserID),
	)

	return user, nil
}

// Update fully replaces the profile fields of an existing user.
//
// Strict: updating a Clerk user ID we have no row for is NotFound.
// Full replace means a field omitted from the new payload (e.g. a cleared
// last name) is erased, not preserved.
func (s *UserService) Update(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validate(user); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update user",
			slog.String("clerkUserId", user.ClerkUserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", slog.String("clerkUserId", user.ClerkUserID))

	// Read the row back so the caller sees the stored record, including the
	// immutable row ID and created_at.
	return s.repo.GetByClerkID(ctx, user.ClerkUserID)
}

// Delete removes the user projection for a Clerk user ID.
//
// Lenient: a missing row logs a warning and succeeds. Deletion events can
// arrive after the row is already gone (redelivery, or a user deleted
// before we ever saw the create), and failing those deliveries would only
// make Clerk redeliver them forever.
func (s *UserService) Delete(ctx context.Context, clerkUserID string) error {
	clerkUserID = strings.TrimSpace(clerkUserID)
	if clerkUserID == "" {
		return apperror.ValidationFailed("clerkUserId", "clerk user ID is required")
	}

	if err := s.repo.Delete(ctx, clerkUserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("can't delete user, does not exist",
				slog.String("clerkUserId", clerkUserID),
			)
			return nil
		}
		return fmt.Errorf("deleting user: %w", err)
	}

	s.logger.Info("user deleted", slog.String("clerkUserId", clerkUserID))
	return nil
}

// GetByClerkID returns the user projection for a Clerk user ID.
// Returns apperror.ErrNotFound if we have no row for it.
func (s *UserService) GetByClerkID(ctx context.Context, clerkUserID string) (*model.User, error) {
	clerkUserID = strings.TrimSpace(clerkUserID)
	if clerkUserID == "" {
		return nil, apperror.ValidationFailed("clerkUserId", "clerk user ID is required")
	}

	return s.repo.GetByClerkID(ctx, clerkUserID)
}

// Ensure inserts the user if no row exists, and returns the existing row
// untouched if one does.
//
// This is the insert-if-absent used by the client fallback sync: after
// sign-in the client may create its own row before the user.created webhook
// lands. Whichever write loses the race finds the row already present, and
// here that is success, not a Conflict. The row that won keeps its data —
// Ensure never overwrites.
func (s *UserService) Ensure(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validate(user); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Info("user already synced",
				slog.String("clerkUserId", user.ClerkUserID),
			)
			return s.repo.GetByClerkID(ctx, user.ClerkUserID)
		}
		return nil, fmt.Errorf("ensuring user: %w", err)
	}

	s.logger.Info("user created via fallback sync",
		slog.String("id", user.ID),
		slog.String("clerkUserId", user.ClerkUserID),
	)

	return user, nil
}
