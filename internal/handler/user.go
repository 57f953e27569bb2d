package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/auth"
	"github.com/sakif/clerk-sync/internal/model"
	"github.com/sakif/clerk-sync/internal/service"
)

// UserHandler exposes the user projection to the mobile client.
//
// All routes here sit behind auth.RequireAuth. Mutations are additionally
// scoped to the caller's own record: the session subject must match the
// Clerk user ID being written. The webhook path is the only writer allowed
// to touch arbitrary records, and it has its own gate.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userRequest is the JSON body for create and update. Field names match
// what the client reads off its session object.
type userRequest struct {
	ClerkUserID string `json:"clerkUserId"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	ImageURL    string `json:"imageUrl"`
}

func (req *userRequest) toModel() *model.User {
	return &model.User{
		ClerkUserID: req.ClerkUserID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ImageURL:    req.ImageURL,
	}
}

// HandleGet returns a user by Clerk user ID.
//
// HTTP: GET /api/users/{clerkUserID}
// 404 means the webhook hasn't delivered yet (or the user never existed) —
// the client treats that as "still syncing" and may fall back to HandleSync.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByClerkID(r.Context(), r.PathValue("clerkUserID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleMe returns the caller's own record, looked up by session subject.
//
// HTTP: GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid session token required"))
		return
	}

	user, err := h.users.GetByClerkID(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleCreate creates the caller's user record.
//
// HTTP: POST /api/users
// Strict create: a duplicate is 409, mirroring the webhook's semantics.
// Clients that only want "make sure my row exists" should use HandleSync.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeOwnRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleUpdate fully replaces the caller's profile fields.
//
// HTTP: PUT /api/users/{clerkUserID}
// Fields omitted from the body are cleared, not preserved.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeOwnRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.ClerkUserID != r.PathValue("clerkUserID") {
		writeError(w, apperror.ValidationFailed("clerkUserId", "body and path clerk user IDs do not match"))
		return
	}

	user, err := h.users.Update(r.Context(), req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes the caller's user record.
//
// HTTP: DELETE /api/users/{clerkUserID}
// Lenient like the webhook's delete: deleting an already-absent row is 204.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid session token required"))
		return
	}

	clerkUserID := r.PathValue("clerkUserID")
	if clerkUserID != claims.Subject {
		writeError(w, apperror.Forbidden("cannot delete another user's record"))
		return
	}

	if err := h.users.Delete(r.Context(), clerkUserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSync is the client fallback sync.
//
// HTTP: POST /api/users/sync (no body)
//
// After sign-in the client's session is live before the user.created
// webhook lands. When the client observes a loaded session but no user row,
// it calls this endpoint; we build the record from the session claims and
// insert-if-absent. If the webhook won the race the existing row comes back
// untouched — never a duplicate-create error.
func (h *UserHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid session token required"))
		return
	}

	user, err := h.users.Ensure(r.Context(), &model.User{
		ClerkUserID: claims.Subject,
		Email:       claims.Email,
		FirstName:   claims.FirstName,
		LastName:    claims.LastName,
		ImageURL:    claims.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// decodeOwnRecord parses a userRequest body and checks the caller is
// writing their own record.
func (h *UserHandler) decodeOwnRecord(r *http.Request) (*userRequest, error) {
	claims, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("valid session token required")
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		return nil, apperror.ValidationFailed("body", "invalid JSON body")
	}

	if req.ClerkUserID != claims.Subject {
		return nil, apperror.Forbidden("cannot write another user's record")
	}
	return &req, nil
}
