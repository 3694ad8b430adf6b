package entity

import (
	"regexp"
	"strings"
)

// ChannelKind distinguishes direct messages from multi-party channels.
type ChannelKind string

const (
	ChannelKindDirect  ChannelKind = "im"
	ChannelKindChannel ChannelKind = "channel"
	ChannelKindGroup   ChannelKind = "group"
	ChannelKindMPIM    ChannelKind = "mpim"
)

// mentionPattern matches <@U123> and <@U123|label>.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// AttachedFile is a file shared together with a message.
type AttachedFile struct {
	ID          string
	Name        string
	FileType    string
	DownloadURL string
}

// InboundEvent is a normalized Slack message event.
type InboundEvent struct {
	// EventID is the event timestamp; unique per platform event.
	EventID string

	// ChannelID is where the message was posted.
	ChannelID string

	// UserID is the author of the message.
	UserID string

	// Text is the raw message text including mention tokens.
	Text string

	// Timestamp is the message's own ts.
	Timestamp string

	// ThreadTS is the parent thread ts as sent by Slack (empty for top-level messages).
	ThreadTS string

	// ChannelKind is im for direct messages.
	ChannelKind ChannelKind

	// Subtype is the Slack message subtype (empty for normal messages).
	Subtype string

	// Files lists attachments.
	Files []AttachedFile

	// BotAuthored is set when the event carries a bot_id.
	BotAuthored bool
}

// ThreadAnchor returns the parent thread ts, or the event's own ts when it starts a thread.
func (e *InboundEvent) ThreadAnchor() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.Timestamp
}

// IsThreadReply returns true when the message was posted inside an existing thread.
func (e *InboundEvent) IsThreadReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.Timestamp
}

// IsDirectMessage returns true for im channels.
func (e *InboundEvent) IsDirectMessage() bool {
	return e.ChannelKind == ChannelKindDirect
}

// HasFiles returns true if the event carries attachments.
func (e *InboundEvent) HasFiles() bool {
	return len(e.Files) > 0
}

// Mentions returns the distinct mentioned user ids in order of first appearance.
func (e *InboundEvent) Mentions() []string {
	return ExtractMentions(e.Text)
}

// MentionsUser reports whether the text contains the mention token of userID.
func (e *InboundEvent) MentionsUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range e.Mentions() {
		if id == userID {
			return true
		}
	}
	return false
}

// StripMention removes every mention token of userID and trims the result.
func (e *InboundEvent) StripMention(userID string) string {
	text := mentionPattern.ReplaceAllStringFunc(e.Text, func(tok string) string {
		m := mentionPattern.FindStringSubmatch(tok)
		if len(m) == 2 && m[1] == userID {
			return ""
		}
		return tok
	})
	return strings.TrimSpace(text)
}

// ExtractMentions scans text for mention tokens.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}
