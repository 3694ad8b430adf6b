package entity

// Verdict is the outcome of the participation policy.
type Verdict string

const (
	VerdictAdmit    Verdict = "admit"
	VerdictSuppress Verdict = "suppress"
)

// DecisionReason explains a verdict. Used in logs and metrics.
type DecisionReason string

const (
	ReasonDirected           DecisionReason = "directed"
	ReasonMultipleBots       DecisionReason = "multiple_bot_mentions"
	ReasonNotDirected        DecisionReason = "not_directed"
	ReasonRedirected         DecisionReason = "redirected_in_thread"
	ReasonNotInvolved        DecisionReason = "not_involved_in_thread"
	ReasonHistoryUnavailable DecisionReason = "thread_history_unavailable"
	ReasonGateClosed         DecisionReason = "gate_closed"
	ReasonDuplicate          DecisionReason = "duplicate"
)

// ResponseTarget is where a reply is posted. ThreadTS is empty for direct messages.
type ResponseTarget struct {
	ChannelID string
	ThreadTS  string
}

// ConversationDecision is computed per event and never stored.
type ConversationDecision struct {
	Verdict Verdict
	Reason  DecisionReason
	Target  ResponseTarget

	// CourtesyNotice is set when the caller must tell the user to mention one bot at a time.
	CourtesyNotice bool
}

// Admitted returns true for VerdictAdmit.
func (d ConversationDecision) Admitted() bool {
	return d.Verdict == VerdictAdmit
}

// TargetFor computes the response target of an event.
func TargetFor(e *InboundEvent) ResponseTarget {
	t := ResponseTarget{ChannelID: e.ChannelID}
	if !e.IsDirectMessage() {
		t.ThreadTS = e.ThreadAnchor()
	}
	return t
}
