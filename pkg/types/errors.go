// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrEmbeddingUnavailable signals that the embedding provider cannot serve
// requests. The ranker degrades to keyword-only scoring instead of failing.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// RateLimitError is returned when a rate limiter cannot grant a permit
// within the caller's max wait, or when a source keeps answering HTTP 429
// after retries. Recoverable and source-local: counted, never fatal to the
// whole search.
type RateLimitError struct {
	Source Source
	Wait   time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("%s: rate limit exceeded after waiting %v", e.Source, e.Wait)
	}
	return fmt.Sprintf("%s: rate limit exceeded", e.Source)
}

// TransientError wraps an error that is safe to retry: network timeouts,
// connection resets, HTTP 5xx.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("transient HTTP %d", e.StatusCode)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError indicates a rejected credential (HTTP 401/403). Not retried:
// a configuration problem, not a transient one.
type AuthError struct {
	Source     Source
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected (HTTP %d)", e.Source, e.StatusCode)
}

// ParseError indicates an unparseable source payload. Not retried.
type ParseError struct {
	Source Source
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parsing response: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AllSourcesFailedError is the only whole-search failure: every requested
// source failed to produce a usable batch.
type AllSourcesFailedError struct {
	Errors map[Source]string
}

func (e *AllSourcesFailedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for src, msg := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", src, msg))
	}
	return "all sources failed: " + strings.Join(parts, "; ")
}

// IsTransient reports whether err (or any error in its chain) is safe to
// retry: an explicit TransientError, a network timeout, or a common
// connection-level failure surfaced as wrapped text by HTTP clients.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
