package presenter

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

const defaultImageProbeTimeout = 5 * time.Second

var (
	boldHeaderPattern = regexp.MustCompile(`### \*\*(.*?)\*\*`)
	boldPattern       = regexp.MustCompile(`\*\*?`)
	headerPattern     = regexp.MustCompile(`### (.*?)(\n|$)`)
	imagePattern      = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
)

// ImageProber reports whether an image URL is reachable.
type ImageProber interface {
	Exists(ctx context.Context, url string) bool
}

// HTTPImageProber checks images with a HEAD request.
type HTTPImageProber struct {
	client *http.Client
}

// NewHTTPImageProber creates a prober. A zero timeout uses 5s.
func NewHTTPImageProber(timeout time.Duration) *HTTPImageProber {
	if timeout <= 0 {
		timeout = defaultImageProbeTimeout
	}
	return &HTTPImageProber{client: &http.Client{Timeout: timeout}}
}

// Exists returns true only for a 200 response.
func (p *HTTPImageProber) Exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AnswerRenderer converts answer markdown into Slack mrkdwn sections and image blocks.
type AnswerRenderer struct {
	prober ImageProber
	logger logger.Logger
}

// NewAnswerRenderer creates a renderer.
func NewAnswerRenderer(prober ImageProber, logger logger.Logger) *AnswerRenderer {
	return &AnswerRenderer{prober: prober, logger: logger}
}

// RewriteMarkdown maps the answer service's markdown onto Slack mrkdwn.
func RewriteMarkdown(text string) string {
	text = boldHeaderPattern.ReplaceAllString(text, "### ${1}")
	text = boldPattern.ReplaceAllString(text, "*")
	return headerPattern.ReplaceAllString(text, "*${1}*${2}")
}

// Render returns the rewritten text as notification fallback and the ordered blocks.
// Images that fail the probe are dropped; surrounding text is kept.
func (r *AnswerRenderer) Render(ctx context.Context, answer string) (string, []entity.PresentationBlock) {
	text := RewriteMarkdown(answer)

	var blocks []entity.PresentationBlock
	last := 0
	for _, m := range imagePattern.FindAllStringSubmatchIndex(text, -1) {
		blocks = appendText(blocks, text[last:m[0]])

		alt, url := text[m[2]:m[3]], text[m[4]:m[5]]
		if r.prober.Exists(ctx, url) {
			blocks = append(blocks, entity.PresentationBlock{
				Kind:     entity.BlockImage,
				ImageURL: url,
				AltText:  alt,
			})
		} else {
			r.logger.Warn("skipping unreachable image", "url", url)
		}
		last = m[1]
	}
	blocks = appendText(blocks, text[last:])

	return text, blocks
}

func appendText(blocks []entity.PresentationBlock, s string) []entity.PresentationBlock {
	if s = strings.TrimSpace(s); s == "" {
		return blocks
	}
	return append(blocks, entity.PresentationBlock{Kind: entity.BlockText, Text: s})
}
