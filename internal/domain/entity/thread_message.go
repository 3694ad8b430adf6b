package entity

// ThreadMessage is one message of a thread's history, oldest first.
type ThreadMessage struct {
	UserID    string
	BotID     string
	Text      string
	Timestamp string
}

// IsBotAuthored returns true if the message was posted by a bot.
func (m ThreadMessage) IsBotAuthored() bool {
	return m.BotID != ""
}

// UserProfile is the subset of a Slack user profile the classifier needs.
type UserProfile struct {
	ID    string
	Name  string
	IsBot bool
}
