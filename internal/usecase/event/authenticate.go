package event

import (
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
)

// DefaultMaxRequestAge is the replay window for request timestamps.
const DefaultMaxRequestAge = 5 * time.Minute

// AuthResult is the outcome of request authentication.
type AuthResult string

const (
	AuthValid        AuthResult = "valid"
	AuthStale        AuthResult = "stale"
	AuthBadSignature AuthResult = "bad_signature"
)

// Err maps a failed result to its domain error, or nil when valid.
func (r AuthResult) Err() error {
	switch r {
	case AuthStale:
		return domainerrors.ErrStaleRequest
	case AuthBadSignature:
		return domainerrors.ErrBadSignature
	default:
		return nil
	}
}

// RequestAuthenticator checks request freshness and signature.
// It has no side effects.
type RequestAuthenticator struct {
	verifier SignatureVerifier
	maxAge   time.Duration
	now      func() time.Time
}

// NewRequestAuthenticator creates an authenticator. A zero maxAge uses DefaultMaxRequestAge.
func NewRequestAuthenticator(verifier SignatureVerifier, maxAge time.Duration) *RequestAuthenticator {
	if maxAge <= 0 {
		maxAge = DefaultMaxRequestAge
	}
	return &RequestAuthenticator{
		verifier: verifier,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Authenticate validates a raw request against the bot's signing secret.
func (a *RequestAuthenticator) Authenticate(body []byte, timestamp, signature, signingSecret string) AuthResult {
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return AuthStale
	}

	age := a.now().Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > a.maxAge {
		return AuthStale
	}

	if err := a.verifier.Verify(timestamp, signature, body, signingSecret); err != nil {
		return AuthBadSignature
	}

	return AuthValid
}
