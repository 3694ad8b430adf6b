package event

import (
	"context"
	"io"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
)

// Platform defines the Slack Web API operations one bot needs.
// Implementations are bound to a single bot token.
type Platform interface {
	HistoryFetcher
	ProfileLookup
	Messenger
	FileDownloader

	// SelfUserID returns the bot's own user id (auth.test), cached after the first success.
	SelfUserID(ctx context.Context) (string, error)
}

// HistoryFetcher reads a thread's messages, oldest first.
type HistoryFetcher interface {
	ThreadHistory(ctx context.Context, channelID, threadTS string) ([]entity.ThreadMessage, error)
}

// ProfileLookup resolves a user's profile.
type ProfileLookup interface {
	UserProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
}

// Messenger posts and deletes messages.
type Messenger interface {
	// PostMessage returns the ts of the posted message.
	PostMessage(ctx context.Context, msg *entity.OutboundMessage) (string, error)
	DeleteMessage(ctx context.Context, channelID, ts string) error
}

// FileDownloader fetches a private file with the bot's credentials.
type FileDownloader interface {
	DownloadFile(ctx context.Context, url string, w io.Writer) error
}

// Bot is a resolved bot identity with its platform client.
type Bot struct {
	Identity *entity.BotIdentity
	Platform Platform
}

// BotResolver looks up bots by routing key.
// Returns an error wrapping domainerrors.ErrBotNotFound for unknown keys.
type BotResolver interface {
	Resolve(ctx context.Context, routingKey string) (*Bot, error)
}

// SignatureVerifier is the trusted HMAC primitive.
type SignatureVerifier interface {
	Verify(timestamp, signature string, body []byte, signingSecret string) error
}

// Ledger admits each event id at most once.
type Ledger interface {
	// Seen reports whether id was already admitted.
	Seen(id string) bool

	// TryAdmit records id and returns true on the first call only.
	TryAdmit(id string) bool
}

// FileRelay copies attachments to the external file service.
// Failures are handled internally; the result holds only relayed files.
type FileRelay interface {
	Relay(ctx context.Context, downloader FileDownloader, files []entity.AttachedFile) []entity.RelayedFile
}

// AnswerService calls the external answer service.
// Returns an error wrapping domainerrors.ErrAnswerUnavailable on non-200 or transport failure.
type AnswerService interface {
	Invoke(ctx context.Context, req AnswerRequest) (*AnswerResult, error)
}

// Renderer turns answer text into presentation blocks.
type Renderer interface {
	Render(ctx context.Context, answer string) (fallback string, blocks []entity.PresentationBlock)
}

// Metrics records event handling metrics.
type Metrics interface {
	RecordEvent(ctx context.Context, outcome string)
	RecordDecision(ctx context.Context, verdict entity.Verdict, reason entity.DecisionReason)
	RecordAnswer(ctx context.Context, duration time.Duration, success bool)
	RecordFilesRelayed(ctx context.Context, requested, relayed int)
}

type nopMetrics struct{}

func (nopMetrics) RecordEvent(context.Context, string)                                  {}
func (nopMetrics) RecordDecision(context.Context, entity.Verdict, entity.DecisionReason) {}
func (nopMetrics) RecordAnswer(context.Context, time.Duration, bool)                    {}
func (nopMetrics) RecordFilesRelayed(context.Context, int, int)                         {}
