package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/feedboard/internal/fetcher"
	"github.com/jpalmerr/feedboard/internal/store"
	"github.com/jpalmerr/feedboard/internal/throttle"
)

// defaults applied by [New] for unset options
const (
	DefaultBackoffMax = 5 * time.Minute
	DefaultQueueSize  = 64

	// minBackoffSeed seeds the backoff for hosts configured without a delay.
	minBackoffSeed = time.Second

	// minThrottleWait keeps a denied dispatch from spinning on the throttle.
	minThrottleWait = 10 * time.Millisecond
)

// Fetcher retrieves one feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Document, error)
}

// Phase is a feed's position in the refresh state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseQueued
	PhaseFetching
	PhaseBackoff
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseQueued:
		return "queued"
	case PhaseFetching:
		return "fetching"
	case PhaseBackoff:
		return "backoff"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Options configures a [Scheduler].
type Options struct {
	// DomainDelay is the minimum spacing between requests to one host.
	DomainDelay time.Duration

	// DomainDelays overrides DomainDelay for specific hosts. Keys are
	// lower-cased authorities as returned by [throttle.HostOf].
	DomainDelays map[string]time.Duration

	// BackoffMax caps the cooldown after repeated transient failures.
	BackoffMax time.Duration

	// QueueSize bounds the number of undelivered results.
	QueueSize int
}

// Result is the outcome of one dispatched fetch.
type Result struct {
	FeedID store.FeedID
	URL    string
	Host   string

	// Doc is the fetched document, nil on failure.
	Doc *fetcher.Document

	// Err is a *fetcher.FetchError on failure.
	Err error

	// StartedAt is the time the throttle admitted the request.
	StartedAt time.Time

	// FinishedAt is the time the fetch returned.
	FinishedAt time.Time

	// Backoff is the cooldown entered because of this result, set by
	// [Scheduler.Drain]. Zero unless the feed moved to [PhaseBackoff].
	Backoff time.Duration

	token uint64
}

// feedState is the scheduler's bookkeeping for one feed.
type feedState struct {
	phase    Phase
	failures int       // consecutive transient failures
	until    time.Time // end of the current backoff
	token    uint64    // identifies the outstanding dispatch
}

// Scheduler dispatches throttled, staggered feed fetches and tracks each
// feed's refresh phase.
//
// Each dispatched fetch runs in its own goroutine and hands its [Result] to
// a bounded queue. The scheduler never touches the feed store: the caller
// polls [Scheduler.Drain] from its own loop and applies the results there.
// Phase transitions caused by a result happen when it is drained, so a feed
// stays Fetching until the caller has seen its result.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	fetcher  Fetcher
	throttle *throttle.Throttle
	opts     Options
	logger   *slog.Logger
	results  chan Result
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
	states    map[store.FeedID]*feedState
	seq       uint64
}

// New creates a [Scheduler]. A nil throttle gets a private one; a nil logger
// falls back to slog.Default().
//
// The scheduler must be started with [Scheduler.Start] before it dispatches
// anything, and stopped with [Scheduler.Stop].
func New(f Fetcher, th *throttle.Throttle, opts Options, logger *slog.Logger) *Scheduler {
	if th == nil {
		th = throttle.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = DefaultBackoffMax
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.DomainDelay < 0 {
		opts.DomainDelay = 0
	}
	delays := make(map[string]time.Duration, len(opts.DomainDelays))
	for host, d := range opts.DomainDelays {
		delays[strings.ToLower(host)] = d
	}
	opts.DomainDelays = delays

	return &Scheduler{
		fetcher:  f,
		throttle: th,
		opts:     opts,
		logger:   logger,
		results:  make(chan Result, opts.QueueSize),
		now:      time.Now,
		states:   make(map[store.FeedID]*feedState),
	}
}

// Start enables dispatching. Fetches run under a context derived from ctx;
// cancelling ctx abandons them like [Scheduler.Stop] does.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
}

// Stop abandons outstanding fetches, waits for their goroutines to exit,
// and tears down the result queue. Results not yet drained are discarded.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.closeOnce.Do(func() {
		close(s.results)
		for range s.results {
		}
	})
}

// RefreshAll runs one scheduling pass over feeds and returns the number of
// fetches dispatched. Feeds already queued or fetching, and feeds still
// cooling down after a transient failure, are skipped.
func (s *Scheduler) RefreshAll(feeds []store.Feed) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runningLocked() {
		return 0
	}

	eligible := make([]store.Feed, 0, len(feeds))
	for _, f := range feeds {
		if s.eligibleLocked(f.ID, now) {
			eligible = append(eligible, f)
		}
	}

	tasks := stagger(eligible, now, s.delayFor)
	for _, t := range tasks {
		s.dispatchLocked(t)
	}
	if len(tasks) > 0 {
		s.logger.Debug("refresh pass", "feeds", len(feeds), "dispatched", len(tasks))
	}
	return len(tasks)
}

// RefreshFeed dispatches a single feed immediately, skipping the stagger
// and any backoff. The host throttle still applies. Returns false if the
// feed is already queued or fetching, or the scheduler is not running.
func (s *Scheduler) RefreshFeed(feed store.Feed) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runningLocked() {
		return false
	}
	if st, ok := s.states[feed.ID]; ok && (st.phase == PhaseQueued || st.phase == PhaseFetching) {
		return false
	}

	tasks := stagger([]store.Feed{feed}, now, s.delayFor)
	s.dispatchLocked(tasks[0])
	return true
}

// retryLocked starts the goroutine that returns a backing-off feed to the
// queue when its cooldown ends and fetches it again. A later dispatch of
// the same feed supersedes it. Callers must hold s.mu.
func (s *Scheduler) retryLocked(st *feedState, t Task) {
	if !s.runningLocked() {
		return
	}
	s.seq++
	st.token = s.seq

	ctx := s.ctx
	token := s.seq
	s.wg.Add(1)
	go s.run(ctx, t, token, true)
}

func (s *Scheduler) runningLocked() bool {
	return s.started && !s.stopped && s.ctx.Err() == nil
}

// dispatchLocked marks the task's feed queued and starts its goroutine.
// Callers must hold s.mu.
func (s *Scheduler) dispatchLocked(t Task) {
	st, ok := s.states[t.FeedID]
	if !ok {
		st = &feedState{}
		s.states[t.FeedID] = st
	}
	s.seq++
	st.phase = PhaseQueued
	st.token = s.seq

	ctx := s.ctx
	token := s.seq
	s.wg.Add(1)
	go s.run(ctx, t, token, false)
}

// run waits for the task's slot, acquires the host throttle, fetches, and
// queues the result. A retry first moves its feed from backoff to queued.
func (s *Scheduler) run(ctx context.Context, t Task, token uint64, retry bool) {
	defer s.wg.Done()

	if !sleepUntil(ctx, s.now, t.NotBefore) {
		return
	}
	if retry && !s.markQueued(t.FeedID, token) {
		return
	}

	var startedAt time.Time
	if t.Host != "" {
		delay := s.delayFor(t.Host)
		for {
			at, ok := s.throttle.Acquire(t.Host, delay)
			if ok {
				startedAt = at
				break
			}
			wait := s.throttle.TimeUntilAllowed(t.Host, delay)
			if wait < minThrottleWait {
				wait = minThrottleWait
			}
			if !sleep(ctx, wait) {
				return
			}
		}
	} else {
		startedAt = s.now()
	}

	if !s.markFetching(t.FeedID, token) {
		return
	}

	result := Result{FeedID: t.FeedID, URL: t.URL, Host: t.Host, StartedAt: startedAt, token: token}
	if t.Host == "" {
		result.Err = &fetcher.FetchError{
			Kind:  fetcher.KindNetwork,
			URL:   t.URL,
			Cause: throttle.ErrNoHost,
		}
	} else {
		result.Doc, result.Err = s.safeFetch(ctx, t.URL)
	}
	result.FinishedAt = s.now()

	if ctx.Err() != nil {
		// shutting down: the queue is being torn down
		return
	}

	s.logResult(result)

	select {
	case s.results <- result:
	case <-ctx.Done():
	}
}

func (s *Scheduler) markQueued(id store.FeedID, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok || st.token != token || st.phase != PhaseBackoff {
		return false
	}
	st.phase = PhaseQueued
	st.until = time.Time{}
	return true
}

func (s *Scheduler) markFetching(id store.FeedID, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok || st.token != token {
		return false
	}
	st.phase = PhaseFetching
	return true
}

// safeFetch calls the fetcher with panic recovery. A panic is logged with a
// correlation id and reported as a network failure carrying that id.
func (s *Scheduler) safeFetch(ctx context.Context, url string) (doc *fetcher.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			s.logger.Error("fetch panic",
				"correlation_id", correlationID,
				"url", url,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			doc = nil
			err = &fetcher.FetchError{
				Kind:  fetcher.KindNetwork,
				URL:   url,
				Cause: fmt.Errorf("fetch panic (correlation_id: %s)", correlationID),
			}
		}
	}()

	doc, err = s.fetcher.Fetch(ctx, url)
	if err != nil {
		var fe *fetcher.FetchError
		if !errors.As(err, &fe) {
			err = &fetcher.FetchError{Kind: fetcher.KindNetwork, URL: url, Cause: err}
		}
		return nil, err
	}
	if doc == nil {
		doc = &fetcher.Document{}
	}
	return doc, nil
}

func (s *Scheduler) logResult(r Result) {
	attrs := []any{
		"feed_id", r.FeedID,
		"url", r.URL,
		"host", r.Host,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	}
	if r.Err != nil {
		s.logger.Warn("fetch failed", append(attrs, "error_kind", fetcher.KindOf(r.Err), "error", r.Err)...)
		return
	}
	s.logger.Debug("fetch succeeded", append(attrs, "entries", len(r.Doc.Entries), "not_modified", r.Doc.NotModified)...)
}

// Drain returns up to limit queued results without blocking, in delivery
// order, and applies each result's phase transition: success and stable
// failures return the feed to idle; timeouts and rate limiting move it to
// backoff, after which it is queued and fetched again automatically. Results for feeds removed with [Scheduler.Forget] are discarded.
// A limit of zero or less drains everything available.
func (s *Scheduler) Drain(limit int) []Result {
	var out []Result
	for limit <= 0 || len(out) < limit {
		select {
		case r, ok := <-s.results:
			if !ok {
				return out
			}
			if s.apply(&r) {
				out = append(out, r)
			}
		default:
			return out
		}
	}
	return out
}

func (s *Scheduler) apply(r *Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[r.FeedID]
	if !ok || st.token != r.token {
		return false
	}

	var fe *fetcher.FetchError
	if r.Err != nil && errors.As(r.Err, &fe) && fe.Transient() {
		st.failures++
		r.Backoff = cooldown(s.delayFor(r.Host), s.opts.BackoffMax, fe.RetryAfter, st.failures)
		st.phase = PhaseBackoff
		st.until = r.FinishedAt.Add(r.Backoff)
		s.retryLocked(st, Task{FeedID: r.FeedID, URL: r.URL, Host: r.Host, NotBefore: st.until})
		return true
	}

	st.phase = PhaseIdle
	st.failures = 0
	st.until = time.Time{}
	return true
}

// Phase returns the feed's current refresh phase. Unknown feeds are idle.
// A backoff whose cooldown has elapsed is reported as queued: its retry is
// waiting for the host throttle.
func (s *Scheduler) Phase(id store.FeedID) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return PhaseIdle
	}
	if st.phase == PhaseBackoff && !s.now().Before(st.until) {
		return PhaseQueued
	}
	return st.phase
}

// BackoffUntil returns when the feed's current backoff ends.
func (s *Scheduler) BackoffUntil(id store.FeedID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok || st.phase != PhaseBackoff {
		return time.Time{}, false
	}
	return st.until, true
}

// Forget drops all state for a feed. An outstanding fetch for it is not
// cancelled, but its result is discarded.
func (s *Scheduler) Forget(id store.FeedID) {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()
}

// InFlight returns the number of feeds queued or fetching.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.states {
		if st.phase == PhaseQueued || st.phase == PhaseFetching {
			n++
		}
	}
	return n
}

// sleepUntil blocks until t or until ctx is done. Returns false if ctx
// ended first.
func sleepUntil(ctx context.Context, now func() time.Time, t time.Time) bool {
	return sleep(ctx, t.Sub(now()))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
