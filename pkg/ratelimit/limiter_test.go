package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"imgfetch/pkg/logger"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(60, 3)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	if !tb.Allow() {
		t.Fatal("Expected first token to be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when the next token is a minute away")
	}
}

func TestUnlimited(t *testing.T) {
	l := NewTokenBucket(0, 0)
	if _, ok := l.(Unlimited); !ok {
		t.Fatalf("Expected Unlimited for zero rate, got %T", l)
	}
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("Unlimited should always allow")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRoundTripper(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{
		Transport: NewRoundTripper(NewTokenBucket(600, 5), logger.NewNopLogger(), nil),
	}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		resp.Body.Close()
	}

	if hits.Load() != 3 {
		t.Errorf("Expected 3 requests to reach the server, got %d", hits.Load())
	}
}

func TestRoundTripperCancelled(t *testing.T) {
	rt := NewRoundTripper(Unlimited{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1/", nil)

	_, err := rt.RoundTrip(req)
	if !errors.Is(err, ErrContextEnded) {
		t.Errorf("Expected ErrContextEnded, got %v", err)
	}
}

type countingLimiter struct {
	allow bool
	waits atomic.Int32
}

func (l *countingLimiter) Allow() bool { return l.allow }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits.Add(1)
	return ctx.Err()
}

func TestRoundTripperWaitsOnlyWhenRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	for _, allow := range []bool{true, false} {
		l := &countingLimiter{allow: allow}
		client := &http.Client{Transport: NewRoundTripper(l, nil, nil)}

		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		want := int32(0)
		if !allow {
			want = 1
		}
		if got := l.waits.Load(); got != want {
			t.Errorf("allow=%v: expected %d waits, got %d", allow, want, got)
		}
	}
}
