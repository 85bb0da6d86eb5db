// Package feedboard is a terminal RSS and Atom reader.
//
// Subscribed feeds are aggregated into a dashboard of the newest items and
// kept fresh by a background refresh scheduler that spaces requests to each
// host, staggers refresh passes, and backs off from hosts that time out or
// rate limit.
//
// # Quick Start
//
//	app, err := feedboard.New(
//	    feedboard.WithConfig(cfg),
//	    feedboard.WithPersistence(persist.File{Path: path}),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := app.Start(ctx); err != nil {
//	    return err
//	}
//	defer app.Stop()
//
// A front end then calls [App.Tick] at a steady rate with the key presses
// it collected and draws the returned [RenderModel]. The internal/tui
// package does this with bubbletea.
//
// # Architecture
//
// feedboard consists of several internal packages (under internal/):
//
//   - internal/store: the feed store, its snapshots and its saved form
//   - internal/fetcher: HTTP retrieval, feed parsing and error classification
//   - internal/htmltext: plain text summaries from feed markup
//   - internal/throttle: per-host request spacing
//   - internal/scheduler: staggered refresh passes and per-feed backoff
//   - internal/view: the navigation state machine
//   - internal/persist: the JSON data file
//   - internal/browser: opening item links
//   - internal/tui: the terminal front end
//
// The internal packages are not part of the public API and may change
// without notice.
package feedboard
