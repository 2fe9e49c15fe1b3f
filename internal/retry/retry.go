// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy defines retry behavior with exponential backoff
type Policy struct {
	Attempts        int           // Total attempts, the first included
	Backoff         time.Duration // Wait before the second attempt
	MaxBackoff      time.Duration
	Multiplier      float64
	RetryableStatus []int // HTTP status codes worth another attempt
}

// DefaultPolicy retries map downloads twice on throttling and gateway errors
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Multiplier: 2.0,
		RetryableStatus: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// StatusError is a non-2xx upstream answer
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do returns the wrapped error
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a non-retryable error, ctx is done
// or the policy runs out of attempts
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		if !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		backoff := p.backoff(attempt)
		log.Debug().
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying after backoff")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Retryable reports whether err is a listed status, a timeout or any other
// transport error. Context cancellation is never retried.
func (p Policy) Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return slices.Contains(p.RetryableStatus, se.Code)
	}

	return true
}

func (p Policy) backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Backoff) * math.Pow(mult, float64(attempt))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	return time.Duration(d)
}
