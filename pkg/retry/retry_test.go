package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"imgfetch/pkg/config"
	errs "imgfetch/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, test := range tests {
		if delay := backoff.NextDelay(test.attempt); delay != test.expected {
			t.Errorf("Attempt %d: expected %v, got %v", test.attempt, test.expected, delay)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		if delay < 100*time.Millisecond || delay > 300*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", delay)
		}
	}
}

func fastConfig(attempts int) *Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.Backoff = &ConstantBackoff{Delay: time.Millisecond}
	return cfg
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.Status(503)
		}
		return nil
	}, fastConfig(5))

	if err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errs.Network(errors.New("connection refused"))
	}, fastConfig(3))

	if err == nil {
		t.Fatal("Expected error when max attempts exceeded")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if errs.TypeOf(err) != errs.ErrorTypeNetwork {
		t.Errorf("Expected the network error to stay visible, got %v", err)
	}
}

func TestSingleAttemptReturnsErrorUnchanged(t *testing.T) {
	want := errs.Status(500)
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return want
	}, DefaultConfig())

	if err != want {
		t.Errorf("Expected original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := errs.Status(404)

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return notFound
	}, fastConfig(5))

	if err != notFound {
		t.Errorf("Expected 404 error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry for 404), got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := fastConfig(5)
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}

	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errs.Status(503)
	}, cfg)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	_ = Do(context.Background(), func(ctx context.Context) error {
		return errs.Status(429)
	}, cfg)

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Expected OnRetry for attempts 1 and 2, got %v", seen)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errs.Network(errors.New("reset"))
		}
		return "success", nil
	}, fastConfig(3))

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RetryConfig{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 8 * time.Second}, nil)

	if cfg.MaxAttempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	if !ok {
		t.Fatalf("Expected exponential backoff, got %T", cfg.Backoff)
	}
	if eb.BaseDelay != time.Second || eb.MaxDelay != 8*time.Second {
		t.Errorf("Unexpected delays: %v / %v", eb.BaseDelay, eb.MaxDelay)
	}
}

func TestWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Expected nil for zero delay, got %v", err)
	}
}

func TestWithServerHint(t *testing.T) {
	limited := errs.Status(429)
	limited.RetryAfter = 5 * time.Second

	tests := []struct {
		name  string
		delay time.Duration
		err   error
		limit time.Duration
		want  time.Duration
	}{
		{"hint stretches delay", time.Second, limited, 30 * time.Second, 5 * time.Second},
		{"hint capped by limit", time.Second, limited, 2 * time.Second, 2 * time.Second},
		{"hint shorter than delay", 10 * time.Second, limited, 30 * time.Second, 10 * time.Second},
		{"no hint", time.Second, errs.Status(503), 30 * time.Second, time.Second},
		{"hints disabled", time.Second, limited, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withServerHint(tt.delay, tt.err, tt.limit); got != tt.want {
				t.Errorf("withServerHint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromConfigEqualDelaysIsConstant(t *testing.T) {
	cfg := FromConfig(config.RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 2 * time.Second}, nil)

	cb, ok := cfg.Backoff.(*ConstantBackoff)
	if !ok {
		t.Fatalf("Expected constant backoff, got %T", cfg.Backoff)
	}
	if cb.NextDelay(1) != 2*time.Second || cb.NextDelay(3) != 2*time.Second {
		t.Errorf("Unexpected delays: %v / %v", cb.NextDelay(1), cb.NextDelay(3))
	}
}
