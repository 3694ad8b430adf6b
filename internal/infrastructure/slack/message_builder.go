package slack

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
)

// maxSectionText is Slack's limit for a section block's text.
const maxSectionText = 3000

// BuildBlocks converts presentation blocks to Block Kit blocks, preserving order.
// Long text is split across several sections.
func BuildBlocks(blocks []entity.PresentationBlock) []slack.Block {
	var out []slack.Block
	images := 0

	for _, b := range blocks {
		switch b.Kind {
		case entity.BlockText:
			for _, chunk := range splitText(b.Text, maxSectionText) {
				out = append(out, slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, chunk, false, false),
					nil, nil,
				))
			}
		case entity.BlockImage:
			images++
			alt := b.AltText
			if alt == "" {
				alt = "image"
			}
			out = append(out, slack.NewImageBlock(b.ImageURL, alt, fmt.Sprintf("image_%d", images), nil))
		}
	}

	return out
}

// splitText cuts s into pieces of at most limit runes.
func splitText(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}

	var parts []string
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
