package database

import (
	"context"
	"fmt"
	"time"

	"franchisee-hub/internal/common/logger"
)

// ConnectWithRetry runs connect until it succeeds, doubling the delay
// between attempts.
func ConnectWithRetry(ctx context.Context, name string, maxAttempts int, initialDelay time.Duration, log logger.Logger, connect func(context.Context) error) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		log.Warn(name+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     attempt,
			"maxAttempts": maxAttempts,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", name, attempt, ctx.Err())
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, err)
}
