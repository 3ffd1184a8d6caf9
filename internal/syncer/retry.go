package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hsebcm/calendar-sync/internal/api"
)

// fetchWithRetry fetches a source payload, retrying retryable upstream errors
// with exponential backoff. Each attempt goes through the client's cache and
// rate limiter.
func (s *Syncer) fetchWithRetry(ctx context.Context, logger *slog.Logger, src Source, year int) ([]byte, error) {
	var lastErr error
	backoff := s.retryBackoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			wait := backoff
			if backoff > 0 {
				wait = backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			}
			logger.Debug("retrying source",
				"source", src.name(),
				"attempt", attempt,
				"backoff", wait,
			)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch %s: %w (last error: %v)", src.name(), ctx.Err(), lastErr)
			case <-time.After(wait):
			}

			backoff *= 2
		}

		body, err := src.Client.FetchYear(ctx, src.Endpoint, year)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *api.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	if s.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
