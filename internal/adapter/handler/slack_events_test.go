package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/dto"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	infraslack "github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/slack"
)

type fakeEventUseCase struct {
	input  dto.HandleEventInput
	ctxErr error
	ack    *dto.EventAck
	err    error
}

func (f *fakeEventUseCase) Execute(ctx context.Context, input dto.HandleEventInput) (*dto.EventAck, error) {
	f.input = input
	f.ctxErr = ctx.Err()
	return f.ack, f.err
}

func newEventsMux(uc EventUseCase, maxBody int64) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /events/{"+RoutingKeyParam+"}", NewSlackEventsHandler(uc, maxBody, logger.Nop{}))
	return mux
}

func decodeAck(t *testing.T, w *httptest.ResponseRecorder) dto.EventAck {
	t.Helper()
	var ack dto.EventAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	return ack
}

func TestSlackEventsHandler_PassesRequestToUseCase(t *testing.T) {
	uc := &fakeEventUseCase{ack: dto.AckOK()}
	mux := newEventsMux(uc, 0)

	body := `{"type":"event_callback","event_id":"Ev1","event":{"type":"message","channel":"C1","ts":"1.0"}}`
	req := httptest.NewRequest(http.MethodPost, "/events/support", strings.NewReader(body))
	req.Header.Set(infraslack.HeaderRequestTimestamp, "1700000000")
	req.Header.Set(infraslack.HeaderSignature, "v0=abc")
	req.Header.Set(infraslack.HeaderRetryNum, "1")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.True(t, decodeAck(t, w).OK)

	assert.Equal(t, "support", uc.input.RoutingKey)
	assert.Equal(t, body, string(uc.input.Body))
	assert.Equal(t, "1700000000", uc.input.Timestamp)
	assert.Equal(t, "v0=abc", uc.input.Signature)
	assert.Equal(t, "1", uc.input.RetryNum)
	require.NotNil(t, uc.input.Envelope)
	assert.Equal(t, "C1", uc.input.Envelope.Event.Channel)
}

func TestSlackEventsHandler_ErrorAckIsStill200(t *testing.T) {
	uc := &fakeEventUseCase{ack: dto.AckError("Bot not found")}
	mux := newEventsMux(uc, 0)

	req := httptest.NewRequest(http.MethodPost, "/events/unknown", strings.NewReader(`{"type":"event_callback"}`))
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bot not found", decodeAck(t, w).Error)
}

func TestSlackEventsHandler_MalformedJSON(t *testing.T) {
	uc := &fakeEventUseCase{ack: dto.AckOK()}
	mux := newEventsMux(uc, 0)

	req := httptest.NewRequest(http.MethodPost, "/events/support", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeAck(t, w).Error)
	assert.Empty(t, uc.input.RoutingKey, "use case must not run")
}

func TestSlackEventsHandler_BodyTooLarge(t *testing.T) {
	uc := &fakeEventUseCase{ack: dto.AckOK()}
	mux := newEventsMux(uc, 16)

	req := httptest.NewRequest(http.MethodPost, "/events/support", strings.NewReader(`{"type":"event_callback","padding":"xxxxxxxx"}`))
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSlackEventsHandler_UseCaseError(t *testing.T) {
	uc := &fakeEventUseCase{err: errors.New("boom")}
	mux := newEventsMux(uc, 0)

	req := httptest.NewRequest(http.MethodPost, "/events/support", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSlackEventsHandler_ClientDisconnectDoesNotCancelWork(t *testing.T) {
	uc := &fakeEventUseCase{ack: dto.AckOK()}
	h := NewSlackEventsHandler(uc, 0, logger.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/events/support", strings.NewReader(`{}`)).WithContext(ctx)
	req.SetPathValue(RoutingKeyParam, "support")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.NoError(t, uc.ctxErr)
	assert.Equal(t, "support", uc.input.RoutingKey)
}

func TestSlackEventsHandler_MethodNotAllowed(t *testing.T) {
	h := NewSlackEventsHandler(&fakeEventUseCase{}, 0, logger.Nop{})

	req := httptest.NewRequest(http.MethodGet, "/events/support", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
