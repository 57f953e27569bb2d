// Package clerk contains the wire types for Clerk webhook events and the
// signature verification gate for inbound deliveries.
//
// Clerk pushes a signed HTTP event whenever an identity record changes.
// This package decodes those payloads and maps them onto our local user
// model; it deliberately knows nothing about storage or HTTP routing.
package clerk

import (
	"encoding/json"
	"time"

	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/model"
)

// Event kinds we act on. Anything else is acknowledged and ignored so that
// Clerk adding new event types never breaks deliveries.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope of a Clerk webhook delivery.
//
// Data is kept as raw JSON because its shape depends on the event kind:
// user.* events carry a full UserJSON, deletion events only an id stub.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserJSON mirrors the subset of Clerk's user object that we project into
// the users table. Field names follow Clerk's snake_case wire format.
//
// first_name/last_name are nullable on the wire, hence *string.
// created_at/updated_at are millisecond epochs.
type UserJSON struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// EmailAddress is one entry of a Clerk user's email address list.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// DeletedUserJSON is the data stub carried by user.deleted events.
type DeletedUserJSON struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// PrimaryEmail returns the canonical email address for the user:
// the entry matching primary_email_address_id, falling back to the first
// listed entry when no primary is designated.
//
// Returns a validation error when the address list is empty — a user
// record without any email cannot be projected.
func (u *UserJSON) PrimaryEmail() (string, error) {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress, nil
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress, nil
	}
	return "", apperror.ValidationFailed("email_addresses", "no email address found for user")
}

// ExtractUser maps a Clerk user payload onto our local model.
// The Clerk user ID and the provider's timestamps are carried over as-is;
// nullable name fields collapse to empty strings.
func ExtractUser(u *UserJSON) (*model.User, error) {
	email, err := u.PrimaryEmail()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ClerkUserID: u.ID,
		Email:       email,
		ImageURL:    u.ImageURL,
		CreatedAt:   time.UnixMilli(u.CreatedAt),
		UpdatedAt:   time.UnixMilli(u.UpdatedAt),
	}
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	return user, nil
}
