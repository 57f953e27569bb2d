package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/clerk-sync/internal/apperror"
	"github.com/sakif/clerk-sync/internal/clerk"
	"github.com/sakif/clerk-sync/internal/handler"
	"github.com/sakif/clerk-sync/internal/repository/sqlite"
	"github.com/sakif/clerk-sync/internal/service"
)

var webhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("webhook-test-signing-key"))

// webhookFixture wires the real stack behind the webhook handler: an
// in-memory SQLite database, the user service, and a live verifier.
type webhookFixture struct {
	handler  *handler.WebhookHandler
	users    *service.UserService
	verifier *clerk.Verifier
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	verifier, err := clerk.NewVerifier(webhookSecret)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	users := service.NewUserService(db, logger)

	return &webhookFixture{
		handler:  handler.NewWebhookHandler(verifier, users, logger),
		users:    users,
		verifier: verifier,
	}
}

// deliver signs body the way Clerk's delivery layer would and posts it.
func (f *webhookFixture) deliver(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	now := time.Now()
	req := httptest.NewRequest(http.MethodPost, "/clerk-users-webhook", bytes.NewBufferString(body))
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("svix-signature", "v1,"+f.verifier.Sign("msg_test", now, []byte(body)))

	rr := httptest.NewRecorder()
	f.handler.HandleClerkWebhook(rr, req)
	return rr
}

const createdEvent = `{
	"type": "user.created",
	"data": {
		"id": "usr_1",
		"first_name": null,
		"last_name": null,
		"image_url": "",
		"primary_email_address_id": "idn_1",
		"email_addresses": [{"id": "idn_1", "email_address": "a@b.co"}],
		"created_at": 1700000000000,
		"updated_at": 1700000000000
	}
}`

func TestWebhook_RejectsUnsignedDelivery(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/clerk-users-webhook", bytes.NewBufferString(createdEvent))
	rr := httptest.NewRecorder()
	f.handler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The event never reached the dispatcher: no row was written.
	_, err := f.users.GetByClerkID(context.Background(), "usr_1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWebhook_RejectsTamperedSignature(t *testing.T) {
	f := newWebhookFixture(t)

	now := time.Now()
	req := httptest.NewRequest(http.MethodPost, "/clerk-users-webhook", bytes.NewBufferString(createdEvent))
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("svix-signature", "v1,"+f.verifier.Sign("msg_test", now, []byte(`something else entirely`)))

	rr := httptest.NewRecorder()
	f.handler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	_, err := f.users.GetByClerkID(context.Background(), "usr_1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWebhook_IgnoresUnknownEventKind(t *testing.T) {
	f := newWebhookFixture(t)

	// Forward compatibility: an event kind we don't know is acknowledged
	// with 200 and mutates nothing.
	rr := f.deliver(t, `{"type":"session.created","data":{"id":"sess_1","user_id":"usr_1"}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	_, err := f.users.GetByClerkID(context.Background(), "usr_1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestWebhook_DuplicateCreateIsConflict(t *testing.T) {
	f := newWebhookFixture(t)

	assert.Equal(t, http.StatusOK, f.deliver(t, createdEvent).Code)

	// Strict create: the same delivery replayed maps the domain error to
	// the response rather than acknowledging blindly.
	rr := f.deliver(t, createdEvent)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestWebhook_CreateWithoutEmailFails(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.deliver(t, `{
		"type": "user.created",
		"data": {"id": "usr_noemail", "email_addresses": [], "created_at": 1, "updated_at": 1}
	}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhook_UpdateBeforeCreateIsNotFound(t *testing.T) {
	f := newWebhookFixture(t)

	rr := f.deliver(t, `{
		"type": "user.updated",
		"data": {
			"id": "usr_unseen",
			"email_addresses": [{"id": "idn_1", "email_address": "x@y.co"}],
			"primary_email_address_id": "idn_1",
			"created_at": 1, "updated_at": 1
		}
	}`)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// Full lifecycle: created → updated (full replace) → deleted → deleted
// again (tolerated).
func TestWebhook_UserLifecycle(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	// user.created
	assert.Equal(t, http.StatusOK, f.deliver(t, createdEvent).Code)

	user, err := f.users.GetByClerkID(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", user.Email)
	assert.Empty(t, user.FirstName)

	// user.updated with a first name and no last name
	rr := f.deliver(t, `{
		"type": "user.updated",
		"data": {
			"id": "usr_1",
			"first_name": "Ada",
			"last_name": null,
			"image_url": "",
			"primary_email_address_id": "idn_1",
			"email_addresses": [{"id": "idn_1", "email_address": "a@b.co"}],
			"created_at": 1700000000000,
			"updated_at": 1700000200000
		}
	}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	user, err = f.users.GetByClerkID(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Empty(t, user.LastName)

	// user.deleted
	deletedEvent := `{"type":"user.deleted","data":{"id":"usr_1","deleted":true}}`
	assert.Equal(t, http.StatusOK, f.deliver(t, deletedEvent).Code)

	_, err = f.users.GetByClerkID(ctx, "usr_1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// Redelivered user.deleted: warn and acknowledge.
	assert.Equal(t, http.StatusOK, f.deliver(t, deletedEvent).Code)
}
