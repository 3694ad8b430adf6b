package dto

import (
	"encoding/json"
	"fmt"
)

// Slack envelope types.
const (
	EnvelopeURLVerification = "url_verification"
	EnvelopeEventCallback   = "event_callback"
)

// SlackEventEnvelope is the outer JSON body of an Events API request.
type SlackEventEnvelope struct {
	Type      string          `json:"type"`
	Token     string          `json:"token"`
	Challenge string          `json:"challenge"`
	TeamID    string          `json:"team_id"`
	APIAppID  string          `json:"api_app_id"`
	EventID   string          `json:"event_id"`
	EventTime int64           `json:"event_time"`
	Event     SlackMessageDTO `json:"event"`
}

// SlackMessageDTO is the inner message event.
type SlackMessageDTO struct {
	Type        string         `json:"type"`
	Subtype     string         `json:"subtype"`
	Channel     string         `json:"channel"`
	ChannelType string         `json:"channel_type"`
	User        string         `json:"user"`
	BotID       string         `json:"bot_id"`
	Text        string         `json:"text"`
	TS          string         `json:"ts"`
	ThreadTS    string         `json:"thread_ts"`
	EventTS     string         `json:"event_ts"`
	Files       []SlackFileDTO `json:"files"`
}

// SlackFileDTO is a file object shared in a message.
type SlackFileDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	FileType           string `json:"filetype"`
	Mimetype           string `json:"mimetype"`
	URLPrivateDownload string `json:"url_private_download"`
}

// ParseSlackEventEnvelope decodes a raw request body.
func ParseSlackEventEnvelope(body []byte) (*SlackEventEnvelope, error) {
	var env SlackEventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}
	return &env, nil
}

// HandleEventInput carries one inbound webhook request into the use case.
type HandleEventInput struct {
	RoutingKey string
	Body       []byte
	Timestamp  string // X-Slack-Request-Timestamp
	Signature  string // X-Slack-Signature
	RetryNum   string // X-Slack-Retry-Num, informational
	Envelope   *SlackEventEnvelope
}

// EventAck is the JSON acknowledgement returned to Slack.
// Exactly one of the fields is set.
type EventAck struct {
	OK        bool   `json:"ok,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AckOK acknowledges a processed or ignored event.
func AckOK() *EventAck {
	return &EventAck{OK: true}
}

// AckChallenge echoes a URL verification challenge.
func AckChallenge(token string) *EventAck {
	return &EventAck{Challenge: token}
}

// AckError returns an error descriptor.
func AckError(msg string) *EventAck {
	return &EventAck{Error: msg}
}
