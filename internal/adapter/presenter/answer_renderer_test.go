package presenter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// stubProber accepts the listed URLs and records every probe.
type stubProber struct {
	ok     map[string]bool
	probed []string
}

func (p *stubProber) Exists(_ context.Context, url string) bool {
	p.probed = append(p.probed, url)
	return p.ok[url]
}

func TestRewriteMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold header", "### **Title**\nbody", "*Title*\nbody"},
		{"plain header at end", "intro\n### Summary", "intro\n*Summary*"},
		{"double asterisk bold", "a **b** c", "a *b* c"},
		{"single asterisk kept", "a *b* c", "a *b* c"},
		{"no markdown", "plain text", "plain text"},
		{"two headers", "### One\n### Two\n", "*One*\n*Two*\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteMarkdown(tt.in))
		})
	}
}

func TestRender_TextAndImagesInOrder(t *testing.T) {
	prober := &stubProber{ok: map[string]bool{"https://img/a.png": true}}
	r := NewAnswerRenderer(prober, logger.Nop{})

	answer := "Here is **the chart**:\n![chart](https://img/a.png)\nand a broken one ![x](https://img/missing.png) done"
	fallback, blocks := r.Render(context.Background(), answer)

	assert.Equal(t, RewriteMarkdown(answer), fallback)
	assert.Equal(t, []entity.PresentationBlock{
		{Kind: entity.BlockText, Text: "Here is *the chart*:"},
		{Kind: entity.BlockImage, ImageURL: "https://img/a.png", AltText: "chart"},
		{Kind: entity.BlockText, Text: "and a broken one"},
		{Kind: entity.BlockText, Text: "done"},
	}, blocks)
	assert.Equal(t, []string{"https://img/a.png", "https://img/missing.png"}, prober.probed)
}

func TestRender_SkipsEmptyText(t *testing.T) {
	prober := &stubProber{ok: map[string]bool{"u1": true, "u2": true}}
	r := NewAnswerRenderer(prober, logger.Nop{})

	_, blocks := r.Render(context.Background(), "  ![a](u1)\n\n![b](u2)  ")

	assert.Equal(t, []entity.PresentationBlock{
		{Kind: entity.BlockImage, ImageURL: "u1", AltText: "a"},
		{Kind: entity.BlockImage, ImageURL: "u2", AltText: "b"},
	}, blocks)
}

func TestRender_PlainText(t *testing.T) {
	prober := &stubProber{}
	r := NewAnswerRenderer(prober, logger.Nop{})

	fallback, blocks := r.Render(context.Background(), "just words")

	assert.Equal(t, "just words", fallback)
	assert.Equal(t, []entity.PresentationBlock{{Kind: entity.BlockText, Text: "just words"}}, blocks)
	assert.Empty(t, prober.probed)
}

func TestHTTPImageProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/ok.png":
			w.WriteHeader(http.StatusOK)
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	prober := NewHTTPImageProber(50 * time.Millisecond)
	ctx := context.Background()

	assert.True(t, prober.Exists(ctx, srv.URL+"/ok.png"))
	assert.False(t, prober.Exists(ctx, srv.URL+"/missing.png"))
	assert.False(t, prober.Exists(ctx, srv.URL+"/slow.png"))
	assert.False(t, prober.Exists(ctx, "://bad-url"))
}
