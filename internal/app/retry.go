package app

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"content-factory/internal/llm"
)

type retryOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	// Retryable decides whether a failed attempt is worth repeating; nil retries everything.
	Retryable func(error) bool
	OnRetry   func(attempt int, wait time.Duration, err error)
}

func withExponentialBackoff(ctx context.Context, opts retryOptions, fn func(ctx context.Context, attempt int) error) error {
	attempts := opts.MaxRetries + 1
	if attempts <= 0 {
		attempts = 1
	}
	base := opts.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	jitter := opts.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		if err := fn(ctx, attempt); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == attempts {
			break
		}
		if opts.Retryable != nil && !opts.Retryable(lastErr) {
			break
		}
		wait := backoffDuration(attempt, base, maxDelay, jitter)
		if isRateLimitError(lastErr) {
			hint := time.Duration(attempt*attempt) * time.Second
			var se *llm.StatusError
			if errors.As(lastErr, &se) && se.RetryAfter > hint {
				hint = se.RetryAfter
			}
			if wait < hint {
				wait = hint
			}
			if wait > 60*time.Second {
				wait = 60 * time.Second
			}
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, wait, lastErr)
		}
		if !sleepCtx(ctx, wait) {
			return lastErr
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffDuration(attempt int, base, maxDelay time.Duration, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	delay := base << shift
	if delay > maxDelay || delay < 0 {
		delay = maxDelay
	}
	if jitter == 0 {
		return delay
	}
	out := applyJitter(delay, jitter)
	if out < 0 {
		return 0
	}
	return out
}

func applyJitter(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return delay
	}
	if jitter > 1 {
		jitter = 1
	}
	low := 1 - jitter
	high := 1 + jitter
	factor := low + rand.Float64()*(high-low)
	return time.Duration(float64(delay) * factor)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if llm.StatusCode(err) == http.StatusTooManyRequests {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "rate limit")
}

// isRetryable reports whether a rewrite failure may succeed on a later attempt.
// Timeouts, throttling, server errors and transport failures qualify; other
// client errors and caller cancellation do not.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if code := llm.StatusCode(err); code != 0 {
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}
	// Transport failures and empty or malformed replies are usually transient.
	return true
}

// isFatal marks failures that no other document can avoid either, such as a
// rejected API key. They stop the whole run.
func isFatal(err error) bool {
	switch llm.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
