package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/model"
	"github.com/sakif/clerk-sync/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, clerk_user_id, email, first_name, last_name, image_url, created_at, updated_at`

// Create inserts a new user row, generating the internal row ID.
//
// The UNIQUE constraint on clerk_user_id is the last line of defence: even
// if two requests race past an existence check, only one INSERT commits and
// the loser surfaces a Conflict instead of a second row.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ClerkUserID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.ClerkUserID)
		}
		return fmt.Errorf("sqlite: inserting user (clerkUserID=%s): %w", user.ClerkUserID, err)
	}

	return nil
}

// GetByClerkID retrieves a user by their Clerk user ID.
// Returns apperror.ErrNotFound if no row exists.
func (db *DB) GetByClerkID(ctx context.Context, clerkUserID string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE clerk_user_id = ?`,
		clerkUserID,
	).Scan(
		&u.ID,
		&u.ClerkUserID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", clerkUserID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", clerkUserID, err)
	}

	return &u, nil
}

// Update replaces the mutable profile fields of the row keyed by
// user.ClerkUserID. This is a full replace, not a merge — fields absent
// from the new payload are written as their zero value.
//
// The internal row ID and created_at are never touched.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, first_name = ?, last_name = ?, image_url = ?, updated_at = ?
		 WHERE clerk_user_id = ?`,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		user.UpdatedAt,
		user.ClerkUserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ClerkUserID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for user %s: %w", user.ClerkUserID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ClerkUserID)
	}

	return nil
}

// Delete removes the row for the given Clerk user ID.
// Returns apperror.ErrNotFound if no row exists.
func (db *DB) Delete(ctx context.Context, clerkUserID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE clerk_user_id = ?`, clerkUserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", clerkUserID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for user %s: %w", clerkUserID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", clerkUserID)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite doesn't export a typed error for this, so we
// match the message (stable across SQLite versions).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
