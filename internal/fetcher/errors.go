package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies fetch failures. The scheduler backs off on transient
// kinds and treats the others as stable until the next refresh.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindNetwork      ErrorKind = "network"
	KindParseFailure ErrorKind = "parse_failure"
	KindRateLimited  ErrorKind = "rate_limited"
)

// FetchError is a classified fetch failure.
type FetchError struct {
	Kind ErrorKind

	// URL is the feed URL that was requested.
	URL string

	// StatusCode is the HTTP status, or zero if no response was received.
	StatusCode int

	// RetryAfter is the server's requested wait, parsed from the Retry-After
	// header. Zero when absent.
	RetryAfter time.Duration

	Cause error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("%s: %v for %s", e.Kind, e.Cause, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Transient reports whether retrying later may succeed without any change on
// the user's side: timeouts and rate limiting.
func (e *FetchError) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// KindOf returns the kind of a *FetchError anywhere in err's chain, or
// KindNetwork for any other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}

// ClassifyHTTPStatus creates a FetchError from a non-2xx response. 429, and
// 503 carrying Retry-After, are rate limiting; everything else is a network
// failure.
func ClassifyHTTPStatus(statusCode int, header http.Header, url string, now time.Time) *FetchError {
	fe := &FetchError{
		Kind:       KindNetwork,
		URL:        url,
		StatusCode: statusCode,
		Cause:      fmt.Errorf("HTTP %d", statusCode),
	}

	retryAfter, hasRetryAfter := parseRetryAfter(header.Get("Retry-After"), now)
	switch {
	case statusCode == http.StatusTooManyRequests:
		fe.Kind = KindRateLimited
		fe.RetryAfter = retryAfter
	case statusCode == http.StatusServiceUnavailable && hasRetryAfter:
		fe.Kind = KindRateLimited
		fe.RetryAfter = retryAfter
	}
	return fe
}

// maxRetryAfter bounds delay-seconds values so the conversion cannot
// overflow.
const maxRetryAfter = 7 * 24 * time.Hour

// parseRetryAfter accepts both delay-seconds and HTTP-date forms. Delays
// beyond maxRetryAfter are reported as maxRetryAfter.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int(maxRetryAfter/time.Second) {
			return maxRetryAfter, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return min(d, maxRetryAfter), true
		}
		return 0, true
	}
	return 0, false
}
