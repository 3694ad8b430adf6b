package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

type flakyMessenger struct {
	failures int
	err      error
	calls    int
}

func (m *flakyMessenger) PostMessage(context.Context, *entity.OutboundMessage) (string, error) {
	m.calls++
	if m.calls <= m.failures {
		return "", m.err
	}
	return "1.0", nil
}

func (m *flakyMessenger) DeleteMessage(context.Context, string, string) error {
	m.calls++
	if m.calls <= m.failures {
		return m.err
	}
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

func TestRetryingMessenger_RetriesTransient(t *testing.T) {
	inner := &flakyMessenger{failures: 2, err: domainerrors.NewTransientError("rate limited", nil)}
	r := NewRetryingMessenger(inner, fastPolicy(), logger.Nop{})

	ts, err := r.PostMessage(context.Background(), &entity.OutboundMessage{Text: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "1.0", ts)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingMessenger_PermanentStopsImmediately(t *testing.T) {
	inner := &flakyMessenger{failures: 5, err: domainerrors.NewPermanentError("channel_not_found", nil)}
	r := NewRetryingMessenger(inner, fastPolicy(), logger.Nop{})

	err := r.DeleteMessage(context.Background(), "C1", "1.0")

	assert.True(t, domainerrors.IsPermanentError(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingMessenger_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyMessenger{failures: 10, err: domainerrors.NewTransientError("timeout", nil)}
	r := NewRetryingMessenger(inner, fastPolicy(), logger.Nop{})

	_, err := r.PostMessage(context.Background(), &entity.OutboundMessage{})

	assert.True(t, domainerrors.IsTransientError(err))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingMessenger_ContextCancelled(t *testing.T) {
	inner := &flakyMessenger{failures: 10, err: domainerrors.NewTransientError("timeout", nil)}
	policy := fastPolicy()
	policy.InitialInterval = time.Hour
	policy.MaxInterval = time.Hour
	r := NewRetryingMessenger(inner, policy, logger.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.PostMessage(ctx, &entity.OutboundMessage{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryingMessenger_CalculateBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.JitterFactor = 0
	r := NewRetryingMessenger(&flakyMessenger{}, policy, logger.Nop{})

	assert.Equal(t, 100*time.Millisecond, r.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateBackoff(2))
	assert.Equal(t, 5*time.Second, r.calculateBackoff(20))
}
