// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit paces outbound requests per source with a sliding window
// and exponential backoff. Each limiter is owned by exactly one source
// client; there is no process-wide limiter state.
package ratelimit

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/litsearch/pkg/types"
)

const (
	defaultCapacity  = 1
	defaultWindow    = time.Second
	defaultMaxWait   = 30 * time.Second
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 60 * time.Second

	// jitterFraction spreads backoff delays by ±25% so clients that were
	// throttled together do not retry together.
	jitterFraction = 0.25
)

// Limiter grants at most Capacity permits per sliding Window, and delays
// further after the owning client reports a throttle signal from the source.
type Limiter struct {
	mu     sync.Mutex
	source types.Source
	cfg    types.RateLimitConfig

	grants       []time.Time // grant times within the current window, oldest first
	attempt      int         // consecutive throttle signals since the last success
	backoffUntil time.Time

	now func() time.Time // test seam
}

// New returns a limiter for source. Zero config fields get defaults so a
// partially filled RateLimitConfig still behaves sanely.
func New(source types.Source, cfg types.RateLimitConfig) *Limiter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &Limiter{
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Acquire blocks until a permit is available, the context is cancelled, or
// the configured MaxWait elapses. On timeout it returns a
// *types.RateLimitError; the caller treats that as a per-call failure.
func (l *Limiter) Acquire(ctx context.Context) error {
	deadline := l.now().Add(l.cfg.MaxWait)

	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		if l.now().Add(wait).After(deadline) {
			return &types.RateLimitError{Source: l.source, Wait: l.cfg.MaxWait}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire grants a permit if the window has room and no backoff is in
// force. Otherwise it returns how long the caller should wait before trying
// again.
func (l *Limiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Before(l.backoffUntil) {
		return l.backoffUntil.Sub(now), false
	}

	// Drop grants that have slid out of the window.
	cutoff := now.Add(-l.cfg.Window)
	trimmed := l.grants[:0]
	for _, g := range l.grants {
		if g.After(cutoff) {
			trimmed = append(trimmed, g)
		}
	}
	l.grants = trimmed

	if len(l.grants) < l.cfg.Capacity {
		l.grants = append(l.grants, now)
		return 0, true
	}

	// Window is full: the next slot opens when the oldest grant expires.
	return l.grants[0].Add(l.cfg.Window).Sub(now), false
}

// ReportThrottle records a throttle signal (HTTP 429 or equivalent) from the
// source and enters exponential backoff: min(maxDelay, baseDelay*2^attempt)
// with jitter.
func (l *Limiter) ReportThrottle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	delay := float64(l.cfg.BaseDelay) * math.Pow(2, float64(l.attempt))
	if delay > float64(l.cfg.MaxDelay) {
		delay = float64(l.cfg.MaxDelay)
	}
	delay += (rand.Float64()*2 - 1) * delay * jitterFraction

	l.attempt++
	l.backoffUntil = l.now().Add(time.Duration(delay))

	zap.L().Warn("source throttled, backing off",
		zap.String("source", string(l.source)),
		zap.Duration("delay", time.Duration(delay)),
		zap.Int("attempt", l.attempt),
	)
}

// ReportSuccess resets the backoff state after the first successful request.
func (l *Limiter) ReportSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempt = 0
	l.backoffUntil = time.Time{}
}
