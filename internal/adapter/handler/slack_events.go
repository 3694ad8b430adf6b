package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/qj0r9j0vc2/answer-bridge/internal/adapter/dto"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
	infraslack "github.com/qj0r9j0vc2/answer-bridge/internal/infrastructure/slack"
)

// DefaultMaxBodyBytes caps inbound event bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// RoutingKeyParam is the path wildcard holding the bot's routing key.
const RoutingKeyParam = "routingKey"

// EventUseCase processes one inbound webhook request.
type EventUseCase interface {
	Execute(ctx context.Context, input dto.HandleEventInput) (*dto.EventAck, error)
}

// SlackEventsHandler handles Slack Events API callbacks for every bot.
// Authentication happens in the use case because the signing secret depends on the routing key.
type SlackEventsHandler struct {
	useCase      EventUseCase
	maxBodyBytes int64
	logger       logger.Logger
}

// NewSlackEventsHandler creates a new Slack events handler.
func NewSlackEventsHandler(useCase EventUseCase, maxBodyBytes int64, logger logger.Logger) *SlackEventsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &SlackEventsHandler{
		useCase:      useCase,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// ServeHTTP handles POST /events/{routingKey}
func (h *SlackEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	routingKey := r.PathValue(RoutingKeyParam)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.AckError("Request body too large"))
			return
		}
		h.logger.Error("failed to read request body", "routing_key", routingKey, "error", err)
		writeJSON(w, http.StatusBadRequest, dto.AckError("Unable to read request body"))
		return
	}

	env, err := dto.ParseSlackEventEnvelope(body)
	if err != nil {
		h.logger.Warn("malformed event payload", "routing_key", routingKey, "error", err)
		writeJSON(w, http.StatusBadRequest, dto.AckError("Invalid JSON payload"))
		return
	}

	// Slack drops the connection after a few seconds; answering must still finish.
	ctx := context.WithoutCancel(r.Context())

	ack, err := h.useCase.Execute(ctx, dto.HandleEventInput{
		RoutingKey: routingKey,
		Body:       body,
		Timestamp:  r.Header.Get(infraslack.HeaderRequestTimestamp),
		Signature:  r.Header.Get(infraslack.HeaderSignature),
		RetryNum:   r.Header.Get(infraslack.HeaderRetryNum),
		Envelope:   env,
	})
	if err != nil {
		h.logger.Error("failed to handle event", "routing_key", routingKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.AckError("Internal error"))
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
