package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/logflux/logflux-go/transport"
)

// Policy holds the backoff parameters. Immutable once constructed and
// shared read-only by all workers.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt,
	// so Do makes at most MaxRetries+1 attempts.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay per attempt; must be >= 1.
	BackoffFactor float64

	// Jitter perturbs each delay by up to ±5% when true.
	Jitter bool
}

// Default returns the stock policy: 5 retries, 100ms initial delay
// doubling up to 30s, with jitter.
func Default() Policy {
	return Policy{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Delay computes the backoff before retry number attempt (0-based).
// Negative attempts yield zero; attempts at or past MaxRetries yield
// MaxDelay. With jitter the result stays within ±5% of the exact
// exponential value (and never goes negative).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt >= p.MaxRetries {
		return p.MaxDelay
	}

	d := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	d = math.Min(d, float64(p.MaxDelay))

	if p.Jitter {
		// ±10% total spread, centered on the exact value.
		d += (rand.Float64() - 0.5) * 0.1 * d
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// ShouldRetry reports whether retry number attempt (0-based) is within
// budget.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}

// Retryable classifies a delivery failure. Structured transport errors
// are classified by kind (network, timeout, throttled, unavailable,
// 5xx are transient); raw net.Error timeouts are transient. Everything
// else, including validation failures, auth rejections, and nil, is
// permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.Temporary()
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return false
}

// Do runs op, retrying transient failures with backoff until success,
// a permanent failure, attempt exhaustion, or context cancellation.
// The last failure is always returned to the caller; a delay in
// progress is abandoned when ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !p.ShouldRetry(attempt) || !Retryable(err) {
			break
		}

		if d := p.Delay(attempt); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return lastErr
			}
		}
	}

	return lastErr
}
