package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/dto"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// Message subtypes that never get a response.
const (
	SubtypeMessageChanged = "message_changed"
	SubtypeMessageDeleted = "message_deleted"
)

const defaultProfileLookupConcurrency = 4

// ClassificationKind tags the classifier's result.
type ClassificationKind int

const (
	KindVerificationChallenge ClassificationKind = iota
	KindIgnorable
	KindSelfEcho
	KindAdmissible
)

// String returns the kind name used in logs and metrics.
func (k ClassificationKind) String() string {
	switch k {
	case KindVerificationChallenge:
		return "verification_challenge"
	case KindIgnorable:
		return "ignorable"
	case KindSelfEcho:
		return "self_echo"
	case KindAdmissible:
		return "admissible"
	default:
		return "unknown"
	}
}

// Classification is the classifier's tagged result.
// Event, OwnUserID and BotMentionCount are set only for KindAdmissible.
type Classification struct {
	Kind      ClassificationKind
	Challenge string

	Event           *entity.InboundEvent
	OwnUserID       string
	BotMentionCount int
}

// Classifier categorizes decoded events and extracts normalized fields.
type Classifier struct {
	logger      logger.Logger
	concurrency int
}

// NewClassifier creates a classifier. concurrency bounds parallel profile lookups.
func NewClassifier(logger logger.Logger, concurrency int) *Classifier {
	if concurrency <= 0 {
		concurrency = defaultProfileLookupConcurrency
	}
	return &Classifier{
		logger:      logger,
		concurrency: concurrency,
	}
}

// Classify inspects an envelope for the given bot.
// Errors are returned only when the bot's own id cannot be resolved.
func (c *Classifier) Classify(ctx context.Context, env *dto.SlackEventEnvelope, platform Platform) (*Classification, error) {
	if env.Type == dto.EnvelopeURLVerification {
		return &Classification{Kind: KindVerificationChallenge, Challenge: env.Challenge}, nil
	}

	msg := env.Event
	if msg.Subtype == SubtypeMessageChanged || msg.Subtype == SubtypeMessageDeleted {
		c.logger.Debug("skipping message subtype", "subtype", msg.Subtype)
		return &Classification{Kind: KindIgnorable}, nil
	}

	ownID, err := platform.SelfUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving own user id: %w", err)
	}

	if (msg.User != "" && msg.User == ownID) || msg.BotID != "" {
		c.logger.Debug("skipping bot authored message", "user", msg.User, "bot_id", msg.BotID)
		return &Classification{Kind: KindSelfEcho}, nil
	}

	event := normalize(msg)

	return &Classification{
		Kind:            KindAdmissible,
		Event:           event,
		OwnUserID:       ownID,
		BotMentionCount: c.countBotMentions(ctx, platform, event.Mentions()),
	}, nil
}

// countBotMentions resolves each mentioned id and counts bot accounts.
// Failed lookups are logged and excluded from the count.
func (c *Classifier) countBotMentions(ctx context.Context, profiles ProfileLookup, mentions []string) int {
	if len(mentions) == 0 {
		return 0
	}

	var count atomic.Int32
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, id := range mentions {
		g.Go(func() error {
			profile, err := profiles.UserProfile(ctx, id)
			if err != nil {
				c.logger.Warn("failed to look up mentioned user",
					"user", id,
					"error", err,
				)
				return nil
			}
			if profile.IsBot {
				count.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(count.Load())
}

func normalize(msg dto.SlackMessageDTO) *entity.InboundEvent {
	eventID := msg.EventTS
	if eventID == "" {
		eventID = msg.TS
	}

	kind := entity.ChannelKind(msg.ChannelType)
	if kind == "" {
		kind = entity.ChannelKindChannel
	}

	files := make([]entity.AttachedFile, 0, len(msg.Files))
	for _, f := range msg.Files {
		files = append(files, entity.AttachedFile{
			ID:          f.ID,
			Name:        f.Name,
			FileType:    f.FileType,
			DownloadURL: f.URLPrivateDownload,
		})
	}

	return &entity.InboundEvent{
		EventID:     eventID,
		ChannelID:   msg.Channel,
		UserID:      msg.User,
		Text:        msg.Text,
		Timestamp:   msg.TS,
		ThreadTS:    msg.ThreadTS,
		ChannelKind: kind,
		Subtype:     msg.Subtype,
		Files:       files,
		BotAuthored: msg.BotID != "",
	}
}
