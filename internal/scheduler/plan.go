package scheduler

import (
	"sort"
	"time"

	"github.com/jpalmerr/feedboard/internal/store"
	"github.com/jpalmerr/feedboard/internal/throttle"
)

// Task is one planned fetch: a feed and the time before which it must not
// be dispatched.
type Task struct {
	FeedID store.FeedID
	URL    string

	// Host is the feed's lower-cased authority. Empty if the URL has none.
	Host string

	// Offset is the task's position in its host's stagger sequence, as a
	// delay from the start of the pass.
	Offset time.Duration

	// NotBefore is the pass start plus Offset.
	NotBefore time.Time
}

// stagger builds the tasks for one pass over feeds, all of which are
// assumed eligible. Feeds are grouped by host and ordered by id within
// each group; the i-th feed of a group is offset by i times the group's
// delay. The result is ordered by NotBefore, then host, then feed id.
func stagger(feeds []store.Feed, now time.Time, delayFor func(host string) time.Duration) []Task {
	groups := make(map[string][]Task)
	for _, f := range feeds {
		host, err := throttle.HostOf(f.URL)
		if err != nil {
			host = ""
		}
		groups[host] = append(groups[host], Task{FeedID: f.ID, URL: f.URL, Host: host})
	}

	tasks := make([]Task, 0, len(feeds))
	for host, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].FeedID < group[j].FeedID })
		delay := delayFor(host)
		for i := range group {
			group[i].Offset = time.Duration(i) * delay
			group[i].NotBefore = now.Add(group[i].Offset)
		}
		tasks = append(tasks, group...)
	}

	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if !a.NotBefore.Equal(b.NotBefore) {
			return a.NotBefore.Before(b.NotBefore)
		}
		if a.Host != b.Host {
			return a.Host < b.Host
		}
		return a.FeedID < b.FeedID
	})
	return tasks
}

// Plan returns the tasks a refresh-all pass started at now would dispatch,
// without dispatching them. Feeds that are queued, fetching, or backing off
// with time left on their cooldown are left out.
func (s *Scheduler) Plan(feeds []store.Feed, now time.Time) []Task {
	s.mu.Lock()
	eligible := make([]store.Feed, 0, len(feeds))
	for _, f := range feeds {
		if s.eligibleLocked(f.ID, now) {
			eligible = append(eligible, f)
		}
	}
	s.mu.Unlock()

	return stagger(eligible, now, s.delayFor)
}

// eligibleLocked reports whether a pass may include the feed. Callers must
// hold s.mu.
func (s *Scheduler) eligibleLocked(id store.FeedID, now time.Time) bool {
	st, ok := s.states[id]
	if !ok {
		return true
	}
	switch st.phase {
	case PhaseQueued, PhaseFetching:
		return false
	case PhaseBackoff:
		return !now.Before(st.until)
	default:
		return true
	}
}

// delayFor returns the minimum spacing between requests to host.
func (s *Scheduler) delayFor(host string) time.Duration {
	if d, ok := s.opts.DomainDelays[host]; ok {
		return d
	}
	return s.opts.DomainDelay
}

// cooldown returns the backoff after the n-th consecutive transient
// failure: the host delay doubled per failure, at least the server's
// Retry-After, and never more than limit.
func cooldown(seed, limit, retryAfter time.Duration, n int) time.Duration {
	if seed <= 0 {
		seed = minBackoffSeed
	}
	d := seed
	for i := 1; i < n && d < limit; i++ {
		d *= 2
	}
	if retryAfter > d {
		d = retryAfter
	}
	if d > limit {
		d = limit
	}
	return d
}
