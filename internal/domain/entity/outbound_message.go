package entity

// BlockKind is the type of a presentation block.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

// PresentationBlock is one rendered piece of an answer.
type PresentationBlock struct {
	Kind     BlockKind
	Text     string
	ImageURL string
	AltText  string
}

// OutboundMessage is a message to post to Slack.
type OutboundMessage struct {
	Target ResponseTarget

	// Text is the message text, or the notification fallback when Blocks is set.
	Text   string
	Blocks []PresentationBlock

	// Unfurl enables link and media unfurling.
	Unfurl bool
}
