// Package answer calls the external answer service.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	"github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/resilience"
	"github.com/qj0r9j0vc2/answer-bridge/internal/usecase/event"
)

// NoResponseText is used when a 200 response carries neither an answer nor a status.
const NoResponseText = "No response available"

// errUnexpectedStatus marks non-200 responses so the breaker counts them.
var errUnexpectedStatus = errors.New("unexpected status")

// payload is the JSON body sent to the answer service.
type payload struct {
	Message    string `json:"message"`
	ThreadID   string `json:"thread_id"`
	InputFiles string `json:"input_files"`
}

// Client invokes the answer service over HTTP.
// Implements event.AnswerService.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     logger.Logger
}

// NewClient creates an answer client. A zero timeout waits indefinitely;
// a nil breaker disables circuit breaking.
func NewClient(url string, timeout time.Duration, breaker *resilience.CircuitBreaker, logger logger.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// Invoke sends the message and returns the answer or the service's status text.
// Failures wrap domainerrors.ErrAnswerUnavailable.
func (c *Client) Invoke(ctx context.Context, req event.AnswerRequest) (*event.AnswerResult, error) {
	body, err := json.Marshal(payload{
		Message:    req.Message,
		ThreadID:   req.ThreadCorrelationID,
		InputFiles: strings.Join(req.FileHandles, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding answer request: %w", err)
	}

	var respBody []byte
	call := func(ctx context.Context) error {
		respBody, err = c.post(ctx, body)
		return err
	}

	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrAnswerUnavailable, err)
	}

	return parseResult(respBody)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("answer request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("answer service returned error status",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 200),
		)
		return nil, fmt.Errorf("%w %d", errUnexpectedStatus, resp.StatusCode)
	}
	return respBody, nil
}

// parseResult reads {"response": ...} or falls back to {"status": ...}.
func parseResult(body []byte) (*event.AnswerResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON response", domainerrors.ErrAnswerUnavailable)
	}

	if answer := gjson.GetBytes(body, "response"); answer.Exists() && answer.Type != gjson.Null {
		return &event.AnswerResult{Text: answer.String(), HasAnswer: true}, nil
	}

	status := gjson.GetBytes(body, "status")
	if !status.Exists() || status.Type == gjson.Null {
		return &event.AnswerResult{Text: NoResponseText}, nil
	}
	return &event.AnswerResult{Text: status.String()}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
