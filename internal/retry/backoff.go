// Package retry runs an operation repeatedly under an exponential backoff
// schedule until it succeeds, the attempts run out, or the context ends.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Defaults applied by DefaultConfig.
const (
	DefaultBaseDelay      = 500 * time.Millisecond
	DefaultMaxDelay       = 30 * time.Second
	DefaultJitterFraction = 0.25
	DefaultMaxRetries     = 5
)

// Config shapes the retry schedule. The delay starts at BaseDelay, doubles
// per attempt up to MaxDelay, and each wait is spread by ±JitterFraction.
type Config struct {
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
	MaxRetries     int
}

// DefaultConfig returns the schedule used when callers have no reason to
// pick their own: five attempts from 500ms up to a 30s cap.
func DefaultConfig() Config {
	return Config{
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		JitterFraction: DefaultJitterFraction,
		MaxRetries:     DefaultMaxRetries,
	}
}

// Delay returns the backoff delay for the given zero-based attempt: the base
// delay doubled per attempt, capped at MaxDelay, with ±JitterFraction jitter
// applied to spread out concurrent retriers.
func (c Config) Delay(attempt int) time.Duration {
	delay := c.BaseDelay
	for range attempt {
		if delay >= c.MaxDelay {
			break
		}
		delay *= 2
	}
	delay = min(delay, c.MaxDelay)
	if c.JitterFraction <= 0 {
		return delay
	}

	//nolint:gosec // math/rand is fine for jitter
	spread := (rand.Float64()*2 - 1) * c.JitterFraction * float64(delay)
	return max(delay+time.Duration(spread), 0)
}

// Do executes fn up to cfg.MaxRetries times with exponential backoff between
// attempts, logging a warning for each failure. It returns nil on the first
// success, ctx.Err() if the context ends first, and the last error once the
// attempts are exhausted.
func Do(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("context canceled during %s: %w", operation, ctx.Err())
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		delay := cfg.Delay(attempt)
		logger.Warn("attempt failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context canceled while backing off from %s: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("exhausted %d attempts for %s: %w", cfg.MaxRetries, operation, lastErr)
}
