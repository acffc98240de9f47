package learndot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/open-craft/learndot-sync/internal/logger"
)

// isRetryable reports whether a remote failure is worth retrying. Learndot
// rate limiting and gateway flakiness are transient; everything else fails
// immediately.
func isRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// doWithRetry runs op, retrying retryable failures with a fixed wait until
// maxAttempts total attempts have been made. The error returned after
// exhaustion is the last underlying failure.
func doWithRetry[T any](
	ctx context.Context, opName string, op func() (T, error), wait time.Duration, maxAttempts int,
) (T, error) {
	operation := func() (T, error) {
		v, err := op()
		if err != nil && !isRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(wait)),
		backoff.WithMaxTries(uint(maxAttempts)), // #nosec G115 -- attempts validated non-negative
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warnf("Retrying %s in %s after error: %v", opName, d, err)
		}),
	)
}
