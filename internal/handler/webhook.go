package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/clerk"
	"github.com/sakif/clerk-sync/internal/model"
	"github.com/sakif/clerk-sync/internal/service"
)

// WebhookHandler receives Clerk's user webhook deliveries.
//
// Every delivery passes the signature gate first; nothing downstream ever
// sees an unverified payload. Verified events are dispatched on their kind:
//
//	user.created → strict create
//	user.updated → strict full-replace update
//	user.deleted → lenient delete
//	anything else → logged and acknowledged (forward compatible — Clerk
//	                adding event kinds must never fail deliveries)
//
// A domain error raised by a named handler (duplicate create, update of an
// unknown user, payload without an email) propagates to the response as
// 4xx, so Clerk's delivery log shows the failure. Only the default case is
// unconditionally optimistic.
type WebhookHandler struct {
	verifier *clerk.Verifier
	users    *service.UserService
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(verifier *clerk.Verifier, users *service.UserService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// HandleClerkWebhook handles POST /clerk-users-webhook.
//
// Responses: 200 empty body once dispatch completes (including ignored
// kinds), 400 plaintext on verification failure. A failed verification is
// final for that delivery attempt — redelivery is Clerk's job, not ours.
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read webhook body", slog.String("error", err.Error()))
		http.Error(w, "Error occurred", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(
		body,
		r.Header.Get("svix-id"),
		r.Header.Get("svix-timestamp"),
		r.Header.Get("svix-signature"),
	); err != nil {
		h.logger.Warn("webhook signature verification failed",
			slog.String("svixId", r.Header.Get("svix-id")),
		)
		http.Error(w, "Error occurred", http.StatusBadRequest)
		return
	}

	var event clerk.Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("malformed webhook payload", slog.String("error", err.Error()))
		http.Error(w, "Error occurred", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case clerk.EventUserCreated:
		user, err := h.decodeUser(event.Data)
		if err != nil {
			writeError(w, err)
			return
		}
		h.logger.Info("creating user", slog.String("clerkUserId", user.ClerkUserID))
		if _, err := h.users.Create(r.Context(), user); err != nil {
			writeError(w, err)
			return
		}

	case clerk.EventUserUpdated:
		user, err := h.decodeUser(event.Data)
		if err != nil {
			writeError(w, err)
			return
		}
		h.logger.Info("updating user", slog.String("clerkUserId", user.ClerkUserID))
		if _, err := h.users.Update(r.Context(), user); err != nil {
			writeError(w, err)
			return
		}

	case clerk.EventUserDeleted:
		var deleted clerk.DeletedUserJSON
		if err := json.Unmarshal(event.Data, &deleted); err != nil {
			writeError(w, apperror.ValidationFailed("data", "malformed deletion payload"))
			return
		}
		h.logger.Info("deleting user", slog.String("clerkUserId", deleted.ID))
		if err := h.users.Delete(r.Context(), deleted.ID); err != nil {
			writeError(w, err)
			return
		}

	default:
		h.logger.Info("ignored clerk webhook event", slog.String("type", event.Type))
	}

	w.WriteHeader(http.StatusOK)
}

// decodeUser unmarshals an event's data into a Clerk user payload and maps
// it onto the local model.
func (h *WebhookHandler) decodeUser(data json.RawMessage) (*model.User, error) {
	var payload clerk.UserJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperror.ValidationFailed("data", "malformed user payload")
	}
	return clerk.ExtractUser(&payload)
}
