package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
)

// Metrics holds all application metrics.
// Implements event.Metrics.
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsActive  metric.Int64UpDownCounter

	// Event handling metrics
	EventsTotal    metric.Int64Counter
	DecisionsTotal metric.Int64Counter

	// Answer service metrics
	AnswersTotal          metric.Int64Counter
	AnswerDuration        metric.Float64Histogram
	CircuitBreakerChanges metric.Int64Counter

	// File relay metrics
	FilesRequestedTotal metric.Int64Counter
	FilesRelayedTotal   metric.Int64Counter
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}

	m.HTTPRequestsActive, err = meter.Int64UpDownCounter(
		"http.server.requests.active",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http_requests_active: %w", err)
	}

	m.EventsTotal, err = meter.Int64Counter(
		"events.received.total",
		metric.WithDescription("Total number of inbound events by outcome"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events_received_total: %w", err)
	}

	m.DecisionsTotal, err = meter.Int64Counter(
		"policy.decisions.total",
		metric.WithDescription("Participation policy decisions by verdict and reason"),
		metric.WithUnit("{decisions}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating policy_decisions_total: %w", err)
	}

	m.AnswersTotal, err = meter.Int64Counter(
		"answers.invocations.total",
		metric.WithDescription("Total number of answer service invocations"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating answers_invocations_total: %w", err)
	}

	m.AnswerDuration, err = meter.Float64Histogram(
		"answers.invocation.duration",
		metric.WithDescription("Answer service call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating answers_invocation_duration: %w", err)
	}

	m.CircuitBreakerChanges, err = meter.Int64Counter(
		"circuit_breaker.transitions.total",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transitions}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit_breaker_transitions_total: %w", err)
	}

	m.FilesRequestedTotal, err = meter.Int64Counter(
		"files.requested.total",
		metric.WithDescription("Attachments seen on admitted events"),
		metric.WithUnit("{files}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating files_requested_total: %w", err)
	}

	m.FilesRelayedTotal, err = meter.Int64Counter(
		"files.relayed.total",
		metric.WithDescription("Attachments stored by the file service"),
		metric.WithUnit("{files}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating files_relayed_total: %w", err)
	}

	return m, nil
}

// RegisterLedgerGauge reports the ledger size on every collection.
func (m *Metrics) RegisterLedgerGauge(size func() int) error {
	_, err := m.meter.Int64ObservableGauge(
		"ledger.entries",
		metric.WithDescription("Event ids held by the deduplication ledger"),
		metric.WithUnit("{entries}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(size()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("creating ledger_entries: %w", err)
	}
	return nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEvent counts an inbound event by its final outcome.
func (m *Metrics) RecordEvent(ctx context.Context, outcome string) {
	m.EventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDecision counts a policy decision.
func (m *Metrics) RecordDecision(ctx context.Context, verdict entity.Verdict, reason entity.DecisionReason) {
	m.DecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", string(verdict)),
		attribute.String("reason", string(reason)),
	))
}

// RecordAnswer records an answer service call.
func (m *Metrics) RecordAnswer(ctx context.Context, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.AnswersTotal.Add(ctx, 1, attrs)
	m.AnswerDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFilesRelayed records how many attachments made it to the file service.
func (m *Metrics) RecordFilesRelayed(ctx context.Context, requested, relayed int) {
	m.FilesRequestedTotal.Add(ctx, int64(requested))
	m.FilesRelayedTotal.Add(ctx, int64(relayed))
}

// RecordCircuitTransition counts a circuit breaker state change.
func (m *Metrics) RecordCircuitTransition(name, from, to string) {
	m.CircuitBreakerChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
