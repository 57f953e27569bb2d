package clerk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clerk signs webhook deliveries with the Svix scheme:
//
//	signedContent = "{svix-id}.{svix-timestamp}.{body}"
//	signature     = base64( HMAC-SHA256(secret, signedContent) )
//
// The signing secret is distributed as "whsec_<base64 key>". The
// svix-signature header may carry several space-separated versioned
// signatures ("v1,<base64> v1,<base64> ...") during secret rotation; the
// delivery is valid if ANY v1 entry matches.
//
// Verification fails closed: a missing or malformed header, a stale
// timestamp, or a signature mismatch all yield ErrInvalidSignature. There
// is no retry here — Clerk's delivery layer redelivers on non-2xx.

const secretPrefix = "whsec_"

// timestampTolerance bounds how far a delivery's svix-timestamp may drift
// from our clock, in either direction. Outside the window the delivery is
// rejected even if the signature matches, which blunts replay of captured
// payloads.
const timestampTolerance = 5 * time.Minute

// ErrInvalidSignature is returned for any verification failure. The cause
// is deliberately not distinguished to the caller; handlers map it to a
// single 400 response.
var ErrInvalidSignature = errors.New("clerk: invalid webhook signature")

// Verifier checks that an inbound webhook delivery was signed by Clerk.
type Verifier struct {
	key []byte

	// now is stubbed in tests to pin the tolerance window.
	now func() time.Time
}

// NewVerifier parses a "whsec_..." signing secret.
// An empty or undecodable secret is a configuration error — the caller
// (startup code) must treat it as fatal so the endpoint never runs
// unverified.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("clerk: webhook signing secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("clerk: decoding webhook secret: %w", err)
	}
	return &Verifier{key: key, now: time.Now}, nil
}

// Verify checks the signature headers of one delivery attempt against the
// raw request body. id, timestamp and signature are the values of the
// svix-id, svix-timestamp and svix-signature headers.
func (v *Verifier) Verify(body []byte, id, timestamp, signature string) error {
	if id == "" || timestamp == "" || signature == "" {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	drift := v.now().Sub(time.Unix(ts, 0))
	if drift > timestampTolerance || drift < -timestampTolerance {
		return ErrInvalidSignature
	}

	expected := v.sign(id, timestamp, body)

	// The header may list several signatures; match any v1 entry.
	// hmac.Equal is constant-time, so a near-miss leaks no timing info.
	for _, part := range strings.Split(signature, " ") {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign computes the v1 signature for a delivery. Exposed for tests and
// local tooling that fabricate deliveries.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) string {
	return v.sign(id, strconv.FormatInt(ts.Unix(), 10), body)
}

func (v *Verifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
