package event

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
	"github.com/qj0r9j0vc2/answer-bridge/internal/domain/logger"
)

// RetryPolicy defines the retry behavior for failed operations.
type RetryPolicy struct {
	MaxAttempts     int           // Maximum number of attempts (including first try)
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
	Multiplier      float64       // Backoff multiplier
	JitterFactor    float64       // Random jitter factor (0.0-1.0)
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// RetryingMessenger wraps a Messenger and retries transient failures.
// Permanent errors return immediately.
type RetryingMessenger struct {
	messenger Messenger
	policy    RetryPolicy
	logger    logger.Logger
}

// NewRetryingMessenger creates a new RetryingMessenger with the given policy.
func NewRetryingMessenger(messenger Messenger, policy RetryPolicy, logger logger.Logger) *RetryingMessenger {
	return &RetryingMessenger{
		messenger: messenger,
		policy:    policy,
		logger:    logger,
	}
}

// PostMessage posts with retry on transient failures.
func (r *RetryingMessenger) PostMessage(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	var ts string
	err := r.do(ctx, "post message", func() error {
		var err error
		ts, err = r.messenger.PostMessage(ctx, msg)
		return err
	}, "channel", msg.Target.ChannelID)
	if err != nil {
		return "", err
	}
	return ts, nil
}

// DeleteMessage deletes with retry on transient failures.
func (r *RetryingMessenger) DeleteMessage(ctx context.Context, channelID, ts string) error {
	return r.do(ctx, "delete message", func() error {
		return r.messenger.DeleteMessage(ctx, channelID, ts)
	}, "channel", channelID, "ts", ts)
}

func (r *RetryingMessenger) do(ctx context.Context, op string, fn func() error, kv ...any) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info(op+" succeeded after retry", append(kv, "attempt", attempt)...)
			}
			return nil
		}

		if !domainerrors.IsTransientError(lastErr) {
			return lastErr
		}

		if attempt == r.policy.MaxAttempts {
			r.logger.Error(op+" failed after max retries", append(kv, "attempts", attempt, "error", lastErr)...)
			break
		}

		backoff := r.calculateBackoff(attempt)
		r.logger.Warn(op+" failed, retrying", append(kv, "attempt", attempt, "backoff", backoff, "error", lastErr)...)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// calculateBackoff calculates the backoff duration with exponential growth and jitter.
// Formula: min(InitialInterval * Multiplier^(attempt-1) * (1 ± jitter), MaxInterval)
func (r *RetryingMessenger) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.policy.InitialInterval) * math.Pow(r.policy.Multiplier, float64(attempt-1))

	jitter := 1.0 + (rand.Float64()*2.0-1.0)*r.policy.JitterFactor
	backoff *= jitter

	if backoff > float64(r.policy.MaxInterval) {
		backoff = float64(r.policy.MaxInterval)
	}

	return time.Duration(backoff)
}
