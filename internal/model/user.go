// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a local projection of an identity record owned by Clerk.
//
// Clerk is the source of truth for credentials and profile data; this row
// is a cache kept consistent by the webhook sync path (and the client
// fallback sync). The primary external identifier is the Clerk user ID
// (an opaque string like "user_2NNEqL2..."). We still generate our own
// internal string ID (xid) so our primary keys don't depend on a third
// party's numbering scheme.
//
// WHY FirstName string (not *string)?
// Clerk reports first/last name as nullable. We use an empty string as the
// zero value rather than a nullable pointer — simpler to work with, safe to
// display, and "absent" and "empty" are not meaningfully different here.
// Update is a full replace, so a name omitted from a payload clears the
// stored value rather than surviving a merge.
//
// CreatedAt/UpdatedAt carry the provider's own timestamps (Clerk sends them
// as millisecond epochs), not the local write time.
type User struct {
	ID          string    `json:"id"          db:"id"`
	ClerkUserID string    `json:"clerkUserId" db:"clerk_user_id"` // Clerk's user ID, e.g. "user_abc123"
	Email       string    `json:"email"       db:"email"`         // canonical email (primary, else first listed)
	FirstName   string    `json:"firstName,omitempty" db:"first_name"`
	LastName    string    `json:"lastName,omitempty"  db:"last_name"`
	ImageURL    string    `json:"imageUrl,omitempty"  db:"image_url"` // Profile picture URL
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
