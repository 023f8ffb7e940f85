package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imgfetch/pkg/config"
	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of tries, including the first one
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// MaxServerDelay bounds how long a Retry-After hint may stretch the
	// backoff delay. Zero ignores hints.
	MaxServerDelay time.Duration
	Logger         logger.Logger
}

// DefaultConfig returns a configuration that makes a single attempt
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 1,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// FromConfig builds a retry configuration from the application settings
func FromConfig(cfg config.RetryConfig, log logger.Logger) *Config {
	if log == nil {
		log = logger.NewNopLogger()
	}
	var backoff BackoffStrategy = &ExponentialBackoff{
		BaseDelay:    cfg.BaseDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
	if cfg.BaseDelay == cfg.MaxDelay {
		backoff = &ConstantBackoff{Delay: cfg.BaseDelay}
	}

	return &Config{
		MaxAttempts:    cfg.MaxAttempts,
		Backoff:        backoff,
		RetryIf:        DefaultRetryIf,
		MaxServerDelay: cfg.MaxDelay,
		Logger:         log,
	}
}

// DefaultRetryIf retries transport failures and retryable HTTP statuses.
// Cancellation is never retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errs.IsRetryable(err)
}

// Do executes op until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		delay = withServerHint(delay, err, cfg.MaxServerDelay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay":        delay,
			"max_attempts": maxAttempts,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	return result, err
}
