// Package scheduler dispatches feed refreshes for feedboard.
//
// Each feed moves through a small state machine:
//
//	Idle → Queued → Fetching → Idle      (success, network or parse failure)
//	                         → Backoff   (timeout or rate limiting)
//	Backoff → Queued                     (once the cooldown has elapsed)
//
// A refresh pass groups eligible feeds by host, orders each group by feed
// id, and staggers the group so that the i-th feed starts no earlier than
// i times the host's delay. Every dispatch also acquires the host's slot in
// the shared [throttle.Throttle], which keeps manual refreshes and
// overlapping passes apart.
//
// The main components are:
//
//   - [Scheduler]: lifecycle, dispatch and per-feed phase tracking
//   - [Task]: one planned fetch, as returned by [Scheduler.Plan]
//   - [Result]: one completed fetch, as returned by [Scheduler.Drain]
//
// Fetch goroutines only talk to the fetcher and the result queue. Whoever
// owns the feed store drains results and applies them on its own goroutine.
package scheduler
