// Package helpers builds signed Slack Events API requests for end-to-end tests.
package helpers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// File is a shared file attached to a message event.
type File struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	URLPrivateDownload string `json:"url_private_download"`
}

// Message describes the inner message event.
type Message struct {
	Type        string `json:"type"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type,omitempty"`
	User        string `json:"user,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	Text        string `json:"text"`
	TS          string `json:"ts"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	Files       []File `json:"files,omitempty"`
}

// EventCallback wraps a message in an event_callback envelope.
func EventCallback(msg Message) []byte {
	if msg.Type == "" {
		msg.Type = "message"
	}
	body, _ := json.Marshal(map[string]any{
		"type":     "event_callback",
		"team_id":  "T0001",
		"event_id": "Ev" + msg.TS,
		"event":    msg,
	})
	return body
}

// URLVerification builds a url_verification envelope.
func URLVerification(challenge string) []byte {
	body, _ := json.Marshal(map[string]string{
		"type":      "url_verification",
		"token":     "legacy",
		"challenge": challenge,
	})
	return body
}

// Sign returns the X-Slack-Signature for body at ts.
func Sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// Delivery is one POST to the bridge.
type Delivery struct {
	URL      string
	Secret   string
	Body     []byte
	RetryNum int
	At       time.Time
}

// Send posts a signed delivery and returns the status and decoded ack.
func Send(t *testing.T, d Delivery) (int, map[string]any) {
	t.Helper()

	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	ts := strconv.FormatInt(at.Unix(), 10)

	req, err := http.NewRequest(http.MethodPost, d.URL, bytes.NewReader(d.Body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", Sign(d.Secret, ts, d.Body))
	if d.RetryNum > 0 {
		req.Header.Set("X-Slack-Retry-Num", strconv.Itoa(d.RetryNum))
		req.Header.Set("X-Slack-Retry-Reason", "http_timeout")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var ack map[string]any
	require.NoError(t, json.Unmarshal(raw, &ack), "body: %s", raw)
	return resp.StatusCode, ack
}
