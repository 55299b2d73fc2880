package supabase

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestShouldRetryOnlyIdempotentMethods(t *testing.T) {
	cfg := DefaultRetryConfig()

	if !cfg.shouldRetry(http.MethodGet, http.StatusServiceUnavailable, nil, 1) {
		t.Fatal("GET on 503 must retry")
	}
	if cfg.shouldRetry(http.MethodPost, http.StatusServiceUnavailable, nil, 1) {
		t.Fatal("POST must never retry")
	}
	if cfg.shouldRetry(http.MethodPatch, 0, errors.New("timeout"), 1) {
		t.Fatal("PATCH must never retry, even on transport errors")
	}
}

func TestShouldRetryRespectsStatusList(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.shouldRetry(http.MethodGet, http.StatusNotFound, nil, 1) {
		t.Fatal("404 is not retryable")
	}
	if cfg.shouldRetry(http.MethodGet, http.StatusForbidden, nil, 1) {
		t.Fatal("403 is not retryable")
	}
	if !cfg.shouldRetry(http.MethodGet, http.StatusTooManyRequests, nil, 1) {
		t.Fatal("429 is retryable")
	}
}

func TestShouldRetryStopsAtMaxAttempts(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.shouldRetry(http.MethodGet, http.StatusBadGateway, nil, cfg.MaxRetries) {
		t.Fatal("must stop after MaxRetries attempts")
	}
	zero := RetryConfig{}
	if zero.shouldRetry(http.MethodGet, http.StatusBadGateway, nil, 0) {
		t.Fatal("zero config must never retry")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	first := cfg.backoff(1)
	second := cfg.backoff(2)
	if first != 100*time.Millisecond || second != 200*time.Millisecond {
		t.Fatalf("unexpected backoff: %v, %v", first, second)
	}
	if capped := cfg.backoff(10); capped != time.Second {
		t.Fatalf("backoff must cap at MaxBackoff, got %v", capped)
	}
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
	for i := 0; i < 100; i++ {
		d := cfg.backoff(1)
		if d < 90*time.Millisecond || d > 110*time.Millisecond {
			t.Fatalf("jittered backoff out of bounds: %v", d)
		}
	}
}
