package slack

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
)

const repliesPageSize = 200

// Client wraps the Slack Web API for one bot token.
// Implements event.Platform.
type Client struct {
	api *slack.Client

	mu     sync.Mutex
	selfID string
}

// NewClient creates a new Slack client. An empty apiURL uses the public Slack API.
func NewClient(botToken, apiURL string) *Client {
	var api *slack.Client
	if apiURL != "" {
		// Custom API URL (tests and proxies); slack-go expects a trailing slash.
		api = slack.New(botToken, slack.OptionAPIURL(ensureTrailingSlash(apiURL)))
	} else {
		api = slack.New(botToken)
	}

	return &Client{api: api}
}

// SelfUserID returns the bot's own user id via auth.test.
// The id is cached after the first success; failures are retried on the next call.
func (c *Client) SelfUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selfID != "" {
		return c.selfID, nil
	}

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", categorizeSlackError(err, "auth test")
	}

	c.selfID = resp.UserID
	return c.selfID, nil
}

// ThreadHistory returns every message of a thread, oldest first.
func (c *Client) ThreadHistory(ctx context.Context, channelID, threadTS string) ([]entity.ThreadMessage, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     repliesPageSize,
	}

	var history []entity.ThreadMessage
	for {
		msgs, hasMore, cursor, err := c.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, categorizeSlackError(err, "fetching thread history")
		}

		for _, m := range msgs {
			history = append(history, entity.ThreadMessage{
				UserID:    m.User,
				BotID:     m.BotID,
				Text:      m.Text,
				Timestamp: m.Timestamp,
			})
		}

		if !hasMore || cursor == "" {
			return history, nil
		}
		params.Cursor = cursor
	}
}

// UserProfile retrieves user information by ID.
func (c *Client) UserProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, categorizeSlackError(err, "getting user info")
	}
	return &entity.UserProfile{
		ID:    user.ID,
		Name:  user.Name,
		IsBot: user.IsBot,
	}, nil
}

// PostMessage posts a message and returns its timestamp.
func (c *Client) PostMessage(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	options := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
	}
	if msg.Target.ThreadTS != "" {
		options = append(options, slack.MsgOptionTS(msg.Target.ThreadTS))
	}
	if len(msg.Blocks) > 0 {
		options = append(options, slack.MsgOptionBlocks(BuildBlocks(msg.Blocks)...))
	}
	if msg.Unfurl {
		options = append(options, slack.MsgOptionEnableLinkUnfurl())
	}

	_, timestamp, err := c.api.PostMessageContext(ctx, msg.Target.ChannelID, options...)
	if err != nil {
		return "", categorizeSlackError(err, "posting slack message")
	}

	return timestamp, nil
}

// DeleteMessage deletes a message posted by this bot.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, channelID, ts); err != nil {
		return categorizeSlackError(err, "deleting slack message")
	}
	return nil
}

// DownloadFile streams a private file using the bot token.
func (c *Client) DownloadFile(ctx context.Context, url string, w io.Writer) error {
	if err := c.api.GetFileContext(ctx, url, w); err != nil {
		return categorizeSlackError(err, fmt.Sprintf("downloading file %s", url))
	}
	return nil
}

func ensureTrailingSlash(u string) string {
	if u[len(u)-1] == '/' {
		return u
	}
	return u + "/"
}
