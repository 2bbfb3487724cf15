package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nao1215/sitecrawl/internal/model"
)

// RetryConfig controls RetryFetcher.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the backoff settings used by the CLI when
// --retries is greater than zero.
func DefaultRetryConfig(maxRetries uint64) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// RetryFetcher retries transient failures of an inner Fetcher.
//
// Design decision: Retrying is a wrapper rather than a loop inside
// HTTPFetcher, so the base fetcher keeps its one-request-per-call contract
// and a crawl without retries never pays for backoff bookkeeping.
type RetryFetcher struct {
	inner  Fetcher
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryFetcher wraps inner. A logger of nil means slog.Default().
func NewRetryFetcher(inner Fetcher, cfg RetryConfig, logger *slog.Logger) *RetryFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryFetcher{inner: inner, cfg: cfg, logger: logger}
}

// Fetch calls the inner fetcher until it succeeds, fails permanently or
// runs out of attempts. The last error is returned unchanged.
func (r *RetryFetcher) Fetch(ctx context.Context, u model.NormalizedURL) (*RawBody, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = 0

	bo := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)

	var body *RawBody
	op := func() error {
		res, err := r.inner.Fetch(ctx, u)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Debug("retrying fetch", "url", u.String(), "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return body, nil
}

// IsRetryable reports whether err is worth another attempt.
// Transport failures, per-request timeouts and 5xx responses are retried.
// 4xx responses, oversized bodies and cancellation are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(fe.Err, ErrBodyTooLarge) {
		return false
	}
	if fe.StatusCode == 0 {
		return true
	}
	return fe.StatusCode >= http.StatusInternalServerError
}
