package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"content-factory/internal/cache"
	"content-factory/internal/llm"
	"content-factory/internal/logging"
	"content-factory/internal/normalize"
)

var errEmptyRewrite = errors.New("改写结果为空")

// rewrite asks the Rewrite service for a platform body. Cached results are
// reused; transient failures are retried with backoff and each attempt gets its
// own timeout. The returned error is either fatal or the last retryable one.
func (s *session) rewrite(ctx context.Context, file string, t target, markup string, budget int) (string, error) {
	req := llm.RewriteRequest{
		Title:    normalize.ExtractTitle(markup),
		Body:     normalize.Strip(markup),
		Platform: t.name,
		Budget:   budget,
	}
	key := cache.Key(s.cfg.Provider, s.provider.Model, t.name, strconv.Itoa(budget), req.Title, req.Body)
	if text, ok := s.cachedRewrite(key); ok {
		s.logger.Emit(logging.Event{Event: "rewrite_cache_hit", Input: file, Platform: t.name})
		return text, nil
	}

	timeout := s.requestTimeout()
	var text string
	start := time.Now()
	err := withExponentialBackoff(ctx, retryOptions{
		MaxRetries: s.cfg.MaxRetries,
		BaseDelay:  time.Duration(s.cfg.Rewrite.BaseDelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(s.cfg.Rewrite.MaxDelayMS) * time.Millisecond,
		Retryable:  isRetryable,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			s.logger.Emit(logging.Event{
				Level:    "warn",
				Event:    "rewrite_retry",
				Input:    file,
				Platform: t.name,
				Provider: s.cfg.Provider,
				Attempt:  attempt,
				WaitMS:   wait.Milliseconds(),
				Error:    err.Error(),
			})
		},
	}, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := s.rewriter.Rewrite(callCtx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("改写请求超时（%s）：%w", timeout, err)
			}
			return err
		}
		if strings.TrimSpace(out) == "" {
			return errEmptyRewrite
		}
		text = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && !isFatal(err) {
			return "", ctx.Err()
		}
		return "", err
	}
	s.logger.Emit(logging.Event{Event: "rewrite_ok", Input: file, Platform: t.name, Provider: s.cfg.Provider, LatencyMS: time.Since(start).Milliseconds()})

	if s.cache != nil {
		if err := s.cache.Put(key, text); err != nil {
			s.logger.Emit(logging.Event{Level: "warn", Event: "cache_unavailable", Error: err.Error()})
		}
	}
	return text, nil
}

func (s *session) cachedRewrite(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, err := s.cache.Get(key)
	if err == nil {
		return text, true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Emit(logging.Event{Level: "warn", Event: "cache_unavailable", Error: err.Error()})
	}
	return "", false
}
