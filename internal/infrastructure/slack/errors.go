package slack

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/slack-go/slack"

	domainerrors "github.com/qj0r9j0vc2/answer-bridge/internal/domain/errors"
)

// categorizeSlackError wraps Slack API errors as transient or permanent domain errors.
func categorizeSlackError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for network errors (transient)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: network error", operation),
			err,
		)
	}

	// HTTP 429
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: rate limited, retry after %s", operation, rateErr.RetryAfter),
			err,
		)
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 500 {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: slack returned %d", operation, statusErr.Code),
			err,
		)
	}

	// Check for Slack API errors
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		switch slackErr.Err {
		case "rate_limited", "ratelimited":
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: rate limited", operation),
				err,
			)

		case "internal_error", "fatal_error", "service_unavailable", "request_timeout":
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: slack server error", operation),
				err,
			)

		default:
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: %s", operation, slackErr.Err),
				err,
			)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: context timeout", operation),
			err,
		)
	}

	// Default to permanent error
	return domainerrors.NewPermanentError(
		fmt.Sprintf("%s: %v", operation, err),
		err,
	)
}
