package event

import (
	"context"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// PolicyInput is everything the participation policy decides on.
type PolicyInput struct {
	Event           *entity.InboundEvent
	OwnUserID       string
	BotMentionCount int
}

// PolicyEngine decides whether this bot answers an event and where.
//
// Rules are evaluated in order and the first match wins:
//  1. more than one bot mentioned (non-empty text): suppress with a courtesy notice
//  2. top-level channel message without the own mention: suppress
//  3. thread reply outside a DM: suppress if the user addressed someone else,
//     or if this bot is not involved in the thread
//  4. admit if mentioned, in a thread, or in a DM
//
// Ledger admission (Admit) is a separate step so the caller can run it
// immediately before dispatch, after any slow work.
type PolicyEngine struct {
	ledger Ledger
	logger logger.Logger
}

// NewPolicyEngine creates a policy engine.
func NewPolicyEngine(ledger Ledger, logger logger.Logger) *PolicyEngine {
	return &PolicyEngine{
		ledger: ledger,
		logger: logger,
	}
}

// Evaluate applies rules 1 to 4. History is fetched only for thread replies outside DMs.
func (p *PolicyEngine) Evaluate(ctx context.Context, history HistoryFetcher, in PolicyInput) entity.ConversationDecision {
	e := in.Event
	target := entity.TargetFor(e)
	ownMentioned := e.MentionsUser(in.OwnUserID)

	suppress := func(reason entity.DecisionReason) entity.ConversationDecision {
		return entity.ConversationDecision{Verdict: entity.VerdictSuppress, Reason: reason, Target: target}
	}

	if in.BotMentionCount > 1 && e.Text != "" {
		d := suppress(entity.ReasonMultipleBots)
		d.CourtesyNotice = true
		return d
	}

	if !e.IsThreadReply() && !e.IsDirectMessage() && !ownMentioned {
		return suppress(entity.ReasonNotDirected)
	}

	if e.IsThreadReply() && !e.IsDirectMessage() {
		messages, err := history.ThreadHistory(ctx, e.ChannelID, e.ThreadAnchor())
		if err != nil {
			p.logger.Error("failed to fetch thread history",
				"channel", e.ChannelID,
				"thread_ts", e.ThreadAnchor(),
				"error", err,
			)
			return suppress(entity.ReasonHistoryUnavailable)
		}

		mentions := e.Mentions()
		if len(mentions) > 1 || (len(mentions) == 1 && mentions[0] != in.OwnUserID) {
			return suppress(entity.ReasonRedirected)
		}

		if !BotInvolved(messages, in.OwnUserID) {
			return suppress(entity.ReasonNotInvolved)
		}
	}

	if ownMentioned || e.IsThreadReply() || e.IsDirectMessage() {
		return entity.ConversationDecision{Verdict: entity.VerdictAdmit, Reason: entity.ReasonDirected, Target: target}
	}

	return suppress(entity.ReasonGateClosed)
}

// Admit performs ledger admission for an admitted decision.
// A lost race turns the decision into a duplicate suppression.
func (p *PolicyEngine) Admit(eventID string, d entity.ConversationDecision) entity.ConversationDecision {
	if !d.Admitted() {
		return d
	}
	if !p.ledger.TryAdmit(eventID) {
		d.Verdict = entity.VerdictSuppress
		d.Reason = entity.ReasonDuplicate
		d.CourtesyNotice = false
	}
	return d
}

// BotInvolved reports whether ownID participates in a thread.
// The bot is involved if the opening message mentions it. Otherwise it is
// involved only if the most recent bot-authored message is its own, so a
// different bot posting after this bot's last post ends its involvement.
func BotInvolved(history []entity.ThreadMessage, ownID string) bool {
	if len(history) == 0 || ownID == "" {
		return false
	}

	opener := &entity.InboundEvent{Text: history[0].Text}
	if opener.MentionsUser(ownID) {
		return true
	}

	involved := false
	for _, m := range history {
		if !m.IsBotAuthored() {
			continue
		}
		involved = m.UserID == ownID
	}
	return involved
}
