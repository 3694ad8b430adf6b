package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/answer-bridge/internal/app"
	"github.com/qj0r9j0vc2/answer-bridge/test/e2e/helpers"
	answermock "github.com/qj0r9j0vc2/answer-bridge/test/e2e/mocks/answer"
	slackmock "github.com/qj0r9j0vc2/answer-bridge/test/e2e/mocks/slack"
)

const (
	supportSecret = "support-signing-secret"
	supportBotID  = "UBOTSUP"
	docsBotID     = "UBOTDOC"
	humanID       = "U100"

	welcomeText      = "Hi! Mention me with a question and I will answer in this thread."
	unanswerableText = "Sorry, I could not get an answer right now. Please try again later."
	courtesyText     = "Please mention only one bot at a time. Please start a new thread with a single bot mention."
	loadingText      = "Thinking..."
)

var (
	slackAPI *slackmock.Handler
	answers  *answermock.Handler
	slackURL string
	bridge   *httptest.Server
)

// TestMain runs the whole application in-process against fake Slack, answer
// and file services.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	slackAPI = slackmock.NewHandler()
	slackSrv := httptest.NewServer(slackAPI)
	defer slackSrv.Close()
	slackURL = slackSrv.URL

	answers = answermock.NewHandler()
	answerSrv := httptest.NewServer(answers)
	defer answerSrv.Close()

	dir, err := os.MkdirTemp("", "answer-bridge-e2e")
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating temp dir:", err)
		return 1
	}
	defer os.RemoveAll(dir)

	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`
logging:
  level: error
registry:
  type: memory
  bots:
    - routing_key: support
      slack_token: xoxb-support
      signing_secret: %s
    - routing_key: docs
      slack_token: xoxb-docs
      signing_secret: docs-signing-secret
slack:
  api_url: %s/api/
  retry:
    max_attempts: 1
answer:
  url: %s/execute
  circuit_breaker:
    max_failures: 100
file_upload:
  url: %s/upload
  temp_dir: %s
renderer:
  image_probe_timeout: 1s
`, supportSecret, slackSrv.URL, answerSrv.URL, answerSrv.URL, dir)
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		fmt.Fprintln(os.Stderr, "writing config:", err)
		return 1
	}

	application, err := app.New(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "starting application:", err)
		return 1
	}
	defer application.Shutdown()

	bridge = httptest.NewServer(application.Handler())
	defer bridge.Close()

	return m.Run()
}

// reset restores the fakes and registers both bots and one human.
func reset(t *testing.T) {
	t.Helper()
	slackAPI.Reset()
	answers.Reset()
	slackAPI.AddBot("xoxb-support", supportBotID, "support")
	slackAPI.AddBot("xoxb-docs", docsBotID, "docs")
	slackAPI.AddUser(humanID, "alice")
}

// uniqueTS returns a fresh Slack timestamp so tests never share ledger entries.
func uniqueTS() string {
	now := time.Now()
	return fmt.Sprintf("%d.%06d", now.Unix(), now.Nanosecond()/1000)
}

func deliver(t *testing.T, routingKey string, body []byte) map[string]any {
	t.Helper()
	status, ack := helpers.Send(t, helpers.Delivery{
		URL:    bridge.URL + "/events/" + routingKey,
		Secret: supportSecret,
		Body:   body,
	})
	require.Equal(t, http.StatusOK, status)
	return ack
}

func TestHealth(t *testing.T) {
	resp, err := http.Get(bridge.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(bridge.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestURLVerification(t *testing.T) {
	reset(t)

	ack := deliver(t, "support", helpers.URLVerification("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", ack["challenge"])
}

func TestRejectedRequests(t *testing.T) {
	reset(t)
	body := helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> hi", TS: uniqueTS(),
	})

	t.Run("unknown routing key", func(t *testing.T) {
		ack := deliver(t, "missing", body)
		assert.Equal(t, "Bot not found", ack["error"])
	})

	t.Run("bad signature", func(t *testing.T) {
		status, ack := helpers.Send(t, helpers.Delivery{
			URL:    bridge.URL + "/events/support",
			Secret: "not-the-secret",
			Body:   body,
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "invalid request signature", ack["error"])
	})

	t.Run("stale timestamp", func(t *testing.T) {
		status, ack := helpers.Send(t, helpers.Delivery{
			URL:    bridge.URL + "/events/support",
			Secret: supportSecret,
			Body:   body,
			At:     time.Now().Add(-10 * time.Minute),
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "request too old", ack["error"])
	})

	t.Run("signed for another bot", func(t *testing.T) {
		ack := deliver(t, "docs", body)
		assert.Equal(t, "invalid request signature", ack["error"])
	})

	assert.Empty(t, slackAPI.Messages())
	assert.Empty(t, answers.Requests())
}

func TestMention_AnsweredInThread(t *testing.T) {
	reset(t)
	answers.Respond(http.StatusOK, `{"response":"**Deploy** with the pipeline"}`)
	ts := uniqueTS()

	ack := deliver(t, "support", helpers.EventCallback(helpers.Message{
		Type: "app_mention", Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> how do I deploy?", TS: ts,
	}))
	assert.Equal(t, true, ack["ok"])

	reqs := answers.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "how do I deploy?", reqs[0].Message)
	assert.NotEmpty(t, reqs[0].ThreadID)
	assert.Empty(t, reqs[0].InputFiles)

	all := slackAPI.Messages()
	require.Len(t, all, 2)
	assert.Equal(t, loadingText, all[0].Text)
	assert.True(t, all[0].Deleted, "loading message is removed once the answer is posted")

	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "xoxb-support", visible[0].Token)
	assert.Equal(t, "C1", visible[0].Channel)
	assert.Equal(t, ts, visible[0].ThreadTS)
	assert.Equal(t, "*Deploy* with the pipeline", visible[0].Text)
	assert.Contains(t, visible[0].Blocks, "Deploy")
}

func TestMention_RetryIsAnsweredOnce(t *testing.T) {
	reset(t)
	body := helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> status?", TS: uniqueTS(),
	})

	deliver(t, "support", body)
	status, ack := helpers.Send(t, helpers.Delivery{
		URL:      bridge.URL + "/events/support",
		Secret:   supportSecret,
		Body:     body,
		RetryNum: 1,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, ack["ok"])

	assert.Len(t, answers.Requests(), 1)
	assert.Len(t, slackAPI.Visible(), 1)
}

func TestThreadFollowUp_SharesConversation(t *testing.T) {
	reset(t)
	parent := uniqueTS()

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> how do I deploy?", TS: parent,
	}))

	slackAPI.SetThread("C1", parent,
		slackmock.ThreadMessage{User: humanID, Text: "<@" + supportBotID + "> how do I deploy?", TS: parent},
		slackmock.ThreadMessage{User: supportBotID, BotID: "BSUP", Text: "ok", TS: parent + "1"},
	)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "and to staging?", TS: uniqueTS(), ThreadTS: parent,
	}))

	reqs := answers.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "and to staging?", reqs[1].Message)
	assert.Equal(t, reqs[0].ThreadID, reqs[1].ThreadID)

	for _, m := range slackAPI.Visible() {
		assert.Equal(t, parent, m.ThreadTS)
	}
}

func TestThreadReply_AddressedToSomeoneElse(t *testing.T) {
	reset(t)
	parent := uniqueTS()
	slackAPI.SetThread("C1", parent,
		slackmock.ThreadMessage{User: humanID, Text: "<@" + supportBotID + "> question", TS: parent},
	)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@U200> can you check?", TS: uniqueTS(), ThreadTS: parent,
	}))

	assert.Empty(t, answers.Requests())
	assert.Empty(t, slackAPI.Messages())
}

func TestDirectMessage_AnsweredWithoutThread(t *testing.T) {
	reset(t)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "D1", ChannelType: "im", User: humanID, Text: "hello there", TS: uniqueTS(),
	}))

	reqs := answers.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hello there", reqs[0].Message)

	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "D1", visible[0].Channel)
	assert.Empty(t, visible[0].ThreadTS)
}

func TestEmptyMention_Welcomes(t *testing.T) {
	reset(t)
	ts := uniqueTS()

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + ">", TS: ts,
	}))

	assert.Empty(t, answers.Requests())
	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, welcomeText, visible[0].Text)
	assert.Equal(t, ts, visible[0].ThreadTS)
}

func TestMultipleBots_CourtesyNotice(t *testing.T) {
	reset(t)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> <@" + docsBotID + "> which of you knows?", TS: uniqueTS(),
	}))

	assert.Empty(t, answers.Requests())
	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, courtesyText, visible[0].Text)
}

func TestIgnoredMessages(t *testing.T) {
	reset(t)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "just chatting", TS: uniqueTS(),
	}))
	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: supportBotID, BotID: "BSUP", Text: "<@" + supportBotID + "> echo", TS: uniqueTS(),
	}))

	assert.Empty(t, answers.Requests())
	assert.Empty(t, slackAPI.Messages())
}

func TestFiles_RelayedToAnswerService(t *testing.T) {
	reset(t)
	slackAPI.AddFile("report.csv", []byte("id,value\n1,42\n"))

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1",
		User:    humanID,
		Text:    "<@" + supportBotID + "> summarize this",
		TS:      uniqueTS(),
		Files: []helpers.File{
			{ID: "F1", Name: "report.csv", URLPrivateDownload: slackURL + "/files/report.csv"},
			{ID: "F2", Name: "gone.pdf", URLPrivateDownload: slackURL + "/files/gone.pdf"},
		},
	}))

	uploads := answers.Uploads()
	require.Len(t, uploads, 1, "files that fail to download are skipped")
	assert.Equal(t, "report.csv", uploads[0].Filename)
	assert.Equal(t, "report.csv", uploads[0].Field)
	assert.Equal(t, "application/octet-stream", uploads[0].ContentType)
	assert.Equal(t, "id,value\n1,42\n", string(uploads[0].Content))

	reqs := answers.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "summarize this", reqs[0].Message)
	assert.Equal(t, "uploads/report.csv", reqs[0].InputFiles)

	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "ok", visible[0].Text)
}

func TestAnswerServiceFailure_PostsApology(t *testing.T) {
	reset(t)
	answers.Respond(http.StatusInternalServerError, `{"error":"boom"}`)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> anything?", TS: uniqueTS(),
	}))

	require.Len(t, answers.Requests(), 1)
	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, unanswerableText, visible[0].Text)
}

func TestAnswerWithoutResponse_PostsStatus(t *testing.T) {
	reset(t)
	answers.Respond(http.StatusOK, `{"status":"Indexing in progress"}`)

	deliver(t, "support", helpers.EventCallback(helpers.Message{
		Channel: "C1", User: humanID, Text: "<@" + supportBotID + "> anything?", TS: uniqueTS(),
	}))

	visible := slackAPI.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Indexing in progress", visible[0].Text)
}

func TestMetrics_Exposed(t *testing.T) {
	resp, err := http.Get(bridge.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "/events/{routingKey}"))
	assert.NotContains(t, string(body), "/events/support")
}
