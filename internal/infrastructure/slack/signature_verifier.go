package slack

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Slack request headers.
const (
	HeaderRequestTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature        = "X-Slack-Signature"
	HeaderRetryNum         = "X-Slack-Retry-Num"
)

// SignatureVerifier checks Slack request signatures with slack-go's SecretsVerifier.
// Implements event.SignatureVerifier; it holds no secret so one instance serves every bot.
type SignatureVerifier struct{}

// NewSignatureVerifier creates a new signature verifier.
func NewSignatureVerifier() *SignatureVerifier {
	return &SignatureVerifier{}
}

// Verify computes v0=HMAC-SHA256(secret, "v0:<timestamp>:<body>") and compares it
// with the provided signature in constant time.
func (v *SignatureVerifier) Verify(timestamp, signature string, body []byte, signingSecret string) error {
	header := http.Header{}
	header.Set(HeaderRequestTimestamp, timestamp)
	header.Set(HeaderSignature, signature)

	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("preparing signature check: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("hashing request body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}
