// Package throttle tracks the last request issued to each host and decides
// whether another request to that host may start.
//
// Hosts are taken from the authority component of a feed URL, so every feed
// served from the same host shares one entry. There is no per-host
// concurrency limit beyond the single timestamp: fetches to one host are
// staggered by the scheduler, never run in parallel on purpose.
package throttle

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Throttle is a per-host last-request tracker.
//
// All methods are safe for concurrent use. The check-then-set performed by
// [Throttle.MayProceed] and [Throttle.Acquire] is a single critical section,
// so two callers for the same host can never both be allowed before either
// has recorded its request.
type Throttle struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// Option configures a [Throttle].
type Option func(*Throttle)

// WithClock replaces time.Now as the throttle's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty [Throttle]. Entries live for the process lifetime.
func New(opts ...Option) *Throttle {
	t := &Throttle{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MayProceed reports whether a request to host may start now. When it
// returns true the current time has been recorded as the host's last
// request time.
func (t *Throttle) MayProceed(host string, minDelay time.Duration) bool {
	_, ok := t.Acquire(host, minDelay)
	return ok
}

// Acquire behaves like [Throttle.MayProceed] and additionally returns the
// time recorded for the request when it is allowed.
func (t *Throttle) Acquire(host string, minDelay time.Duration) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[host]; ok {
		if now.Before(last) || now.Sub(last) < minDelay {
			return time.Time{}, false
		}
	}
	t.last[host] = now
	return now, true
}

// TimeUntilAllowed returns how long a caller must wait before a request to
// host would be allowed. Zero means a request is allowed now. Nothing is
// recorded.
func (t *Throttle) TimeUntilAllowed(host string, minDelay time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[host]
	if !ok {
		return 0
	}
	wait := last.Add(minDelay).Sub(t.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// LastRequest returns the last recorded request time for host.
func (t *Throttle) LastRequest(host string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[host]
	return last, ok
}

// ErrNoHost is returned by [HostOf] for URLs without an authority.
var ErrNoHost = errors.New("url has no host")

// HostOf extracts the lower-cased authority (host and optional port) of a
// feed URL. Feeds with equal HostOf values share a throttle entry.
func HostOf(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrNoHost, rawURL)
	}
	return strings.ToLower(u.Host), nil
}
