// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source clients.
package httputil

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meshintel/litsearch/pkg/types"
)

const (
	defaultMaxRetries = 3
	jitterFraction    = 0.25
)

// RetryBaseDelay controls the base duration for exponential backoff between
// retries. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// Policy controls retry behavior for one source client.
type Policy struct {
	// Source attributes classified errors to a database.
	Source types.Source

	// MaxRetries is the retry budget for transient failures; 0 means the
	// default (3).
	MaxRetries int

	// Acquire, when set, is called before every attempt so retried
	// requests pass back through the source's rate limiter instead of
	// bypassing its window.
	Acquire func(ctx context.Context) error

	// OnThrottle is invoked for each HTTP 429 so the owning rate limiter
	// can enter backoff.
	OnThrottle func()
}

// DoWithRetry executes req, retrying transient failures (network errors,
// HTTP 408/5xx) with exponential backoff and jitter. HTTP 429 triggers the
// policy's throttle hook before retrying; exhausting retries on 429 yields
// a *types.RateLimitError. HTTP 401/403 returns a *types.AuthError without
// retrying. Any other non-2xx status is returned as a plain error. When
// the policy carries an Acquire hook, every attempt, retries included,
// acquires a rate-limit permit before issuing the request.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, pol Policy) (*http.Response, error) {
	maxRetries := pol.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		if pol.Acquire != nil {
			if err := pol.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !types.IsTransient(err) {
				return nil, eris.Wrap(err, "http request")
			}
			lastErr = &types.TransientError{Err: err}
			zap.L().Warn("request failed, retrying",
				zap.String("source", string(pol.Source)),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			if pol.OnThrottle != nil {
				pol.OnThrottle()
			}
			lastErr = &types.RateLimitError{Source: pol.Source}
			zap.L().Warn("rate limited, retrying",
				zap.String("source", string(pol.Source)),
				zap.Int("attempt", attempt+1),
			)

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return nil, &types.AuthError{Source: pol.Source, StatusCode: resp.StatusCode}

		case types.IsTransientHTTPStatus(resp.StatusCode):
			drain(resp)
			lastErr = &types.TransientError{StatusCode: resp.StatusCode}
			zap.L().Warn("server error, retrying",
				zap.String("source", string(pol.Source)),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)

		default:
			drain(resp)
			return nil, eris.Errorf("%s: unexpected HTTP %d", pol.Source, resp.StatusCode)
		}
	}

	return nil, lastErr
}

// sleepBackoff waits RetryBaseDelay*2^attempt with ±25% jitter, or returns
// early when the context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := float64(RetryBaseDelay) * math.Pow(2, float64(attempt))
	delay += (rand.Float64()*2 - 1) * delay * jitterFraction

	timer := time.NewTimer(time.Duration(delay))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain empties and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
