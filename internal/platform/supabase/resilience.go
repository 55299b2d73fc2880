package supabase

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls retries of idempotent reads. Writes are never
// retried; chat sends in particular must reach the backend at most once.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int
	// InitialBackoff is the first backoff duration.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration
	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryableStatusCodes are HTTP statuses worth retrying.
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (r RetryConfig) shouldRetry(method string, statusCode int, err error, attempt int) bool {
	if r.MaxRetries <= 0 || attempt >= r.MaxRetries {
		return false
	}
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	if err != nil {
		return true
	}
	for _, code := range r.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// backoff returns the wait before the given attempt (1-based).
func (r RetryConfig) backoff(attempt int) time.Duration {
	base := float64(r.InitialBackoff) * math.Pow(r.BackoffMultiplier, float64(attempt-1))
	if max := float64(r.MaxBackoff); r.MaxBackoff > 0 && base > max {
		base = max
	}
	if r.Jitter > 0 {
		delta := base * r.Jitter
		base = base - delta + rand.Float64()*2*delta
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}
