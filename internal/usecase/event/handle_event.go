package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/dto"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// DefaultCourtesyNotice is posted when a message mentions more than one bot.
const DefaultCourtesyNotice = "Please mention only one bot at a time. Please start a new thread with a single bot mention."

// Event outcomes reported to metrics.
const (
	OutcomeBotNotFound     = "bot_not_found"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeChallenge       = "challenge"
	OutcomeIgnored         = "ignored"
	OutcomeSelfEcho        = "self_echo"
	OutcomeDuplicate       = "duplicate"
	OutcomeSuppressed      = "suppressed"
	OutcomeWelcomed        = "welcomed"
	OutcomeAnswered        = "answered"
	OutcomeUnanswerable    = "unanswerable"
	OutcomeError           = "error"
)

// Ack error descriptors.
const (
	ackBotNotFound     = "Bot not found"
	ackIdentityFailure = "Unable to resolve bot identity"
	ackMissingEnvelope = "Missing event payload"
)

// HandleEventOptions tunes HandleEventUseCase. Zero values use defaults.
type HandleEventOptions struct {
	CourtesyNotice string
	RetryPolicy    RetryPolicy
	Metrics        Metrics
}

// HandleEventUseCase runs one Slack event through authentication,
// classification, the participation policy and answer dispatch.
type HandleEventUseCase struct {
	resolver      BotResolver
	authenticator *RequestAuthenticator
	classifier    *Classifier
	ledger        Ledger
	policy        *PolicyEngine
	relay         FileRelay
	answers       AnswerService
	renderer      Renderer
	logger        logger.Logger

	courtesyNotice string
	retryPolicy    RetryPolicy
	metrics        Metrics
}

// NewHandleEventUseCase creates a new HandleEventUseCase with dependencies.
func NewHandleEventUseCase(
	resolver BotResolver,
	authenticator *RequestAuthenticator,
	classifier *Classifier,
	ledger Ledger,
	relay FileRelay,
	answers AnswerService,
	renderer Renderer,
	logger logger.Logger,
	opts HandleEventOptions,
) *HandleEventUseCase {
	if opts.CourtesyNotice == "" {
		opts.CourtesyNotice = DefaultCourtesyNotice
	}
	if opts.RetryPolicy.MaxAttempts <= 0 {
		opts.RetryPolicy = DefaultRetryPolicy()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}

	return &HandleEventUseCase{
		resolver:       resolver,
		authenticator:  authenticator,
		classifier:     classifier,
		ledger:         ledger,
		policy:         NewPolicyEngine(ledger, logger),
		relay:          relay,
		answers:        answers,
		renderer:       renderer,
		logger:         logger,
		courtesyNotice: opts.CourtesyNotice,
		retryPolicy:    opts.RetryPolicy,
		metrics:        opts.Metrics,
	}
}

// Execute handles one inbound request. The returned ack is always set when err is nil;
// err is reserved for malformed input.
func (uc *HandleEventUseCase) Execute(ctx context.Context, input dto.HandleEventInput) (*dto.EventAck, error) {
	if input.Envelope == nil {
		return nil, errors.New(ackMissingEnvelope)
	}

	// 1. Resolve the bot
	bot, err := uc.resolver.Resolve(ctx, input.RoutingKey)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBotNotFound) {
			uc.logger.Warn("unknown routing key", "routing_key", input.RoutingKey)
		} else {
			uc.logger.Error("failed to resolve bot", "routing_key", input.RoutingKey, "error", err)
		}
		uc.metrics.RecordEvent(ctx, OutcomeBotNotFound)
		return dto.AckError(ackBotNotFound), nil
	}

	// 2. Authenticate
	if result := uc.authenticator.Authenticate(input.Body, input.Timestamp, input.Signature, bot.Identity.SigningSecret); result != AuthValid {
		uc.logger.Warn("rejected request",
			"routing_key", input.RoutingKey,
			"result", string(result),
		)
		uc.metrics.RecordEvent(ctx, OutcomeUnauthenticated)
		return dto.AckError(result.Err().Error()), nil
	}

	// 3. Classify
	c, err := uc.classifier.Classify(ctx, input.Envelope, bot.Platform)
	if err != nil {
		uc.logger.Error("failed to classify event", "routing_key", input.RoutingKey, "error", err)
		uc.metrics.RecordEvent(ctx, OutcomeError)
		return dto.AckError(ackIdentityFailure), nil
	}

	switch c.Kind {
	case KindVerificationChallenge:
		uc.metrics.RecordEvent(ctx, OutcomeChallenge)
		return dto.AckChallenge(c.Challenge), nil
	case KindIgnorable:
		uc.metrics.RecordEvent(ctx, OutcomeIgnored)
		return dto.AckOK(), nil
	case KindSelfEcho:
		uc.metrics.RecordEvent(ctx, OutcomeSelfEcho)
		return dto.AckOK(), nil
	}

	outcome := uc.dispatch(ctx, bot, c, input)
	uc.metrics.RecordEvent(ctx, outcome)
	return dto.AckOK(), nil
}

// dispatch runs an admissible event from the ledger check to the final post.
func (uc *HandleEventUseCase) dispatch(ctx context.Context, bot *Bot, c *Classification, input dto.HandleEventInput) string {
	e := c.Event
	log := []any{"routing_key", input.RoutingKey, "event_id", e.EventID, "channel", e.ChannelID}
	if input.RetryNum != "" {
		log = append(log, "retry_num", input.RetryNum)
	}

	// 4. Pre-relay ledger check
	if uc.ledger.Seen(e.EventID) {
		uc.logger.Debug("duplicate event", log...)
		uc.metrics.RecordDecision(ctx, entity.VerdictSuppress, entity.ReasonDuplicate)
		return OutcomeDuplicate
	}

	messenger := NewRetryingMessenger(bot.Platform, uc.retryPolicy, uc.logger)

	// 5. Participation policy
	decision := uc.policy.Evaluate(ctx, bot.Platform, PolicyInput{
		Event:           e,
		OwnUserID:       c.OwnUserID,
		BotMentionCount: c.BotMentionCount,
	})
	if !decision.Admitted() {
		uc.recordDecision(ctx, decision, log)
		if decision.CourtesyNotice {
			uc.post(ctx, messenger, decision.Target, uc.courtesyNotice, log)
		}
		return OutcomeSuppressed
	}

	loadingTS := ""
	defer func() {
		if loadingTS != "" {
			if err := messenger.DeleteMessage(ctx, decision.Target.ChannelID, loadingTS); err != nil {
				uc.logger.Warn("failed to delete loading message", append(log, "error", err)...)
			}
		}
	}()

	// 6. File relay
	var relayed []entity.RelayedFile
	if e.HasFiles() {
		loadingTS = uc.post(ctx, messenger, decision.Target, bot.Identity.LoadingMessage, log)
		relayed = uc.relay.Relay(ctx, bot.Platform, e.Files)
		uc.metrics.RecordFilesRelayed(ctx, len(e.Files), len(relayed))
	}

	// 7. Pre-dispatch ledger admission
	decision = uc.policy.Admit(e.EventID, decision)
	uc.recordDecision(ctx, decision, log)
	if !decision.Admitted() {
		return OutcomeDuplicate
	}

	// 8. Welcome on an empty mention
	text := strings.TrimSpace(e.StripMention(c.OwnUserID))
	if text == "" && len(relayed) == 0 {
		uc.post(ctx, messenger, decision.Target, bot.Identity.WelcomeMessage, log)
		return OutcomeWelcomed
	}

	// 9. Answer
	if loadingTS == "" {
		loadingTS = uc.post(ctx, messenger, decision.Target, bot.Identity.LoadingMessage, log)
	}

	start := time.Now()
	result, err := uc.answers.Invoke(ctx, AnswerRequest{
		Message:             text,
		ThreadCorrelationID: ThreadCorrelationID(e.ThreadAnchor()),
		FileHandles:         entity.Handles(relayed),
	})
	uc.metrics.RecordAnswer(ctx, time.Since(start), err == nil)

	// 10. Respond
	if err != nil {
		uc.logger.Error("answer service failed", append(log, "error", err)...)
		uc.post(ctx, messenger, decision.Target, bot.Identity.UnanswerableMessage, log)
		return OutcomeUnanswerable
	}

	msg := &entity.OutboundMessage{Target: decision.Target, Text: result.Text, Unfurl: true}
	if result.HasAnswer {
		msg.Text, msg.Blocks = uc.renderer.Render(ctx, result.Text)
	}
	if _, err := messenger.PostMessage(ctx, msg); err != nil {
		uc.logger.Error("failed to post answer", append(log, "error", err)...)
		return OutcomeError
	}

	uc.logger.Info("answer posted", append(log, "blocks", len(msg.Blocks), "files", len(relayed))...)
	return OutcomeAnswered
}

// post sends a plain text message and returns its ts, or "" on failure or empty text.
func (uc *HandleEventUseCase) post(ctx context.Context, messenger Messenger, target entity.ResponseTarget, text string, log []any) string {
	if text == "" {
		return ""
	}
	ts, err := messenger.PostMessage(ctx, &entity.OutboundMessage{Target: target, Text: text})
	if err != nil {
		uc.logger.Error("failed to post message", append(log, "error", err)...)
		return ""
	}
	return ts
}

func (uc *HandleEventUseCase) recordDecision(ctx context.Context, d entity.ConversationDecision, log []any) {
	uc.logger.Info("policy decision", append(log, "verdict", string(d.Verdict), "reason", string(d.Reason))...)
	uc.metrics.RecordDecision(ctx, d.Verdict, d.Reason)
}
