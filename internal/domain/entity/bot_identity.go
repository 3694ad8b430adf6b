package entity

// BotIdentity holds the credentials and display strings of one bot.
// It is created on the first event for a routing key and never mutated.
// The bot's own Slack user id is resolved lazily by the platform client.
type BotIdentity struct {
	// RoutingKey is the URL path segment that selects this bot.
	RoutingKey string

	// Token is the Slack bot token (xoxb-...).
	Token string

	// SigningSecret verifies inbound request signatures.
	SigningSecret string

	// LoadingMessage is posted while the answer is being prepared.
	LoadingMessage string

	// WelcomeMessage is posted when the user mentions the bot without text.
	WelcomeMessage string

	// UnanswerableMessage is posted when the answer service fails.
	UnanswerableMessage string
}

// MentionToken returns the Slack mention token for the given user id.
func MentionToken(userID string) string {
	return "<@" + userID + ">"
}
