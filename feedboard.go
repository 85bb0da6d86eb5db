package feedboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/feedboard/internal/browser"
	"github.com/jpalmerr/feedboard/internal/fetcher"
	"github.com/jpalmerr/feedboard/internal/scheduler"
	"github.com/jpalmerr/feedboard/internal/store"
	"github.com/jpalmerr/feedboard/internal/throttle"
	"github.com/jpalmerr/feedboard/internal/view"
)

// App is the feedboard application context: the feed store, the refresh
// scheduler, and the view state.
//
// An App is driven by a front end that calls [App.Tick] on a single
// goroutine. Tick never performs network work; fetches run on background
// goroutines and their results are folded into the store on the next
// tick.
//
// The typical lifecycle is:
//
//	app, err := feedboard.New(feedboard.WithPersistence(file))
//	if err != nil {
//	    return err
//	}
//	if err := app.Start(ctx); err != nil {
//	    return err
//	}
//	defer app.Stop()
//
//	for !quit {
//	    frame := app.Tick(elapsed, keys)
//	    quit = frame.Quit
//	}
type App struct {
	cfg         Config
	logger      *slog.Logger
	store       *store.MemoryStore
	sched       *scheduler.Scheduler
	fetcher     scheduler.Fetcher
	client      *fetcher.Client
	persistence Persistence
	open        func(url string) error
	machine     view.Machine

	mu           sync.Mutex
	started      bool
	stopped      bool
	state        view.State
	quit         bool
	sinceRefresh time.Duration
	banner       string
	bannerLeft   time.Duration
	savedVersion uint64

	// saveBlocked is set when saved data could not be read, so that it is
	// not overwritten unless the user saves explicitly.
	saveBlocked bool
}

// New creates an [App] with the given options. Without [WithFetcher] an
// HTTP fetcher is built from the configuration.
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:         cfg.config,
		logger:      logger,
		store:       store.NewMemoryStore(),
		persistence: cfg.persistence,
		open:        cfg.browser,
		machine:     view.Machine{DashboardLimit: cfg.config.DashboardLimit},
		state:       view.Initial(),
	}
	if a.open == nil {
		a.open = browser.Open
	}

	a.fetcher = cfg.fetcher
	if a.fetcher == nil {
		clientOpts := []fetcher.ClientOption{fetcher.WithUserAgent(a.cfg.UserAgent)}
		if a.cfg.MaxRequestsPerSecond > 0 {
			clientOpts = append(clientOpts, fetcher.WithRateLimit(a.cfg.MaxRequestsPerSecond))
		}
		a.client = fetcher.NewClient(clientOpts...)
		a.fetcher = fetcher.New(a.client, a.cfg.FetchTimeout)
	}

	a.sched = scheduler.New(a.fetcher, throttle.New(), scheduler.Options{
		DomainDelay:  a.cfg.DomainDelay,
		DomainDelays: a.cfg.DomainDelays,
		BackoffMax:   a.cfg.BackoffMax,
		QueueSize:    a.cfg.QueueSize,
	}, logger)

	return a, nil
}

// Start loads saved state, subscribes the configured feeds, and starts the
// scheduler. Fetches run under a context derived from ctx.
//
// Unreadable saved data is logged and reported in the banner; the App then
// starts with an empty store. Start is idempotent. Starting a stopped App
// returns an error.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return errors.New("app already stopped")
	}
	if a.started {
		return nil
	}
	a.started = true

	a.load()
	a.subscribeSeeds()

	a.sched.Start(ctx)
	a.logger.Info("feedboard started",
		"feeds", len(a.store.Snapshot().Feeds()),
		"refresh_interval", a.cfg.RefreshInterval.String(),
		"auto_refresh", a.cfg.AutoRefresh,
	)

	if a.cfg.RefreshOnStart {
		a.refreshAll()
	}
	return nil
}

func (a *App) load() {
	if a.persistence == nil {
		return
	}
	st, err := a.persistence.Load()
	if err == nil {
		err = a.store.Import(st)
	}
	if err != nil {
		a.logger.Error("failed to load saved data", "error", err)
		a.setBanner("Could not load saved data; ctrl+s overwrites it")
		a.saveBlocked = true
		return
	}
	a.savedVersion = a.store.Version()
}

func (a *App) subscribeSeeds() {
	for _, sub := range a.cfg.Feeds {
		_, err := a.store.AddFeed(sub.URL, sub.Category)
		switch {
		case err == nil:
			a.logger.Info("subscribed configured feed", "url", sub.URL, "category", sub.Category)
		case errors.Is(err, store.ErrDuplicateURL):
		default:
			a.logger.Warn("skipping configured feed", "url", sub.URL, "error", err)
			a.setBanner(fmt.Sprintf("Skipping configured feed %s", sub.URL))
		}
	}
}

// Tick advances the application by elapsed time and processes the key
// events that arrived since the previous tick, in order. It returns the
// frame to draw.
//
// Tick never blocks on the network. Calling Tick before [App.Start] or
// after [App.Stop] only renders.
func (a *App) Tick(elapsed time.Duration, events []view.Key) RenderModel {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started || a.stopped {
		return a.renderLocked()
	}

	a.expireBanner(elapsed)
	a.applyResults()

	for _, k := range events {
		if a.quit {
			break
		}
		var effects []view.Effect
		a.state, effects = a.machine.Update(a.state, k, a.store.Snapshot())
		for _, e := range effects {
			a.execute(e)
		}
	}
	a.state = a.machine.Reconcile(a.state, a.store.Snapshot())

	if a.cfg.AutoRefresh {
		a.sinceRefresh += elapsed
		if a.sinceRefresh >= a.cfg.RefreshInterval {
			a.refreshAll()
		}
	}

	if a.store.Version() != a.savedVersion && !a.saveBlocked {
		a.save()
	}
	return a.renderLocked()
}

// applyResults folds completed fetches into the store.
func (a *App) applyResults() {
	for _, r := range a.sched.Drain(0) {
		var err error
		switch {
		case r.Err != nil:
			err = a.store.RecordFetchError(r.FeedID, r.Err.Error(), r.FinishedAt)
		case r.Doc.NotModified:
			_, err = a.store.MergeFetchResult(r.FeedID, "", nil, r.FinishedAt)
		default:
			var added int
			added, err = a.store.MergeFetchResult(r.FeedID, r.Doc.Title, r.Doc.Entries, r.FinishedAt)
			if err == nil && added > 0 {
				a.logger.Debug("new items", "feed_id", r.FeedID, "added", added)
			}
			if err == nil && a.cfg.MaxItemsPerFeed > 0 {
				_, err = a.store.PruneFeed(r.FeedID, a.cfg.MaxItemsPerFeed)
			}
		}
		if err != nil && !errors.Is(err, store.ErrFeedNotFound) {
			a.logger.Error("failed to apply fetch result", "feed_id", r.FeedID, "error", err)
		}
	}
}

// execute runs one effect requested by the view machine.
func (a *App) execute(e view.Effect) {
	switch e := e.(type) {
	case view.Quit:
		a.quit = true

	case view.RefreshAll:
		a.refreshAll()

	case view.RefreshFeed:
		f, ok := a.store.Snapshot().Feed(e.FeedID)
		if !ok {
			return
		}
		if !a.sched.RefreshFeed(f) {
			a.setBanner(fmt.Sprintf("%s is already refreshing", f.DisplayTitle()))
		}

	case view.OpenURL:
		if err := a.open(e.URL); err != nil {
			a.logger.Warn("failed to open link", "url", e.URL, "error", err)
			a.setBanner("Could not open link")
		}

	case view.AddFeed:
		id, err := a.store.AddFeed(e.URL, "")
		switch {
		case errors.Is(err, store.ErrDuplicateURL):
			a.setBanner("Already subscribed to " + e.URL)
			return
		case errors.Is(err, store.ErrInvalidURL):
			a.setBanner("Not a valid feed URL: " + e.URL)
			return
		case err != nil:
			a.logger.Error("failed to add feed", "url", e.URL, "error", err)
			a.setBanner("Could not add feed")
			return
		}
		a.logger.Info("feed added", "feed_id", id, "url", e.URL)
		if f, ok := a.store.Snapshot().Feed(id); ok {
			a.sched.RefreshFeed(f)
		}

	case view.RemoveFeed:
		f, ok := a.store.Snapshot().Feed(e.FeedID)
		if !ok {
			return
		}
		if err := a.store.RemoveFeed(e.FeedID); err != nil {
			a.logger.Error("failed to remove feed", "feed_id", e.FeedID, "error", err)
			return
		}
		a.sched.Forget(e.FeedID)
		if v, ok := a.fetcher.(interface{ Forget(url string) }); ok {
			v.Forget(f.URL)
		}
		a.logger.Info("feed removed", "feed_id", e.FeedID, "url", f.URL)

	case view.ToggleRead:
		a.itemResult(a.store.ToggleRead(e.ItemID))

	case view.MarkRead:
		a.itemResult(false, a.store.MarkRead(e.ItemID))

	case view.ToggleBookmark:
		a.itemResult(a.store.ToggleBookmark(e.ItemID))

	case view.SetCategory:
		if err := a.store.SetFeedCategory(e.FeedID, e.Name); err != nil &&
			!errors.Is(err, store.ErrFeedNotFound) {
			a.logger.Error("failed to set category", "feed_id", e.FeedID, "error", err)
		}

	case view.CreateCategory:
		if _, err := a.store.CreateCategory(e.Name); err != nil {
			a.categoryFailed(err, e.Name)
			return
		}
		a.logger.Info("category created", "name", e.Name)

	case view.RenameCategory:
		if err := a.store.RenameCategory(e.ID, e.Name); err != nil {
			a.categoryFailed(err, e.Name)
			return
		}
		a.logger.Info("category renamed", "category_id", e.ID, "name", e.Name)

	case view.DeleteCategory:
		if err := a.store.DeleteCategory(e.ID); err != nil {
			a.categoryFailed(err, string(e.ID))
			return
		}
		a.logger.Info("category deleted", "category_id", e.ID)

	case view.Save:
		a.saveBlocked = false
		if a.save() {
			a.setBanner("Saved")
		}
	}
}

// categoryFailed reports a rejected category edit in the banner.
func (a *App) categoryFailed(err error, name string) {
	switch {
	case errors.Is(err, store.ErrCategoryExists):
		a.setBanner("Category already exists: " + name)
	case errors.Is(err, store.ErrCategoryNotFound):
	default:
		a.logger.Error("failed to update category", "name", name, "error", err)
		a.setBanner("Could not update category")
	}
}

// itemResult logs unexpected failures of item flag updates. Items that
// vanished between the keypress and the update are ignored.
func (a *App) itemResult(_ bool, err error) {
	if err != nil && !errors.Is(err, store.ErrItemNotFound) {
		a.logger.Error("failed to update item", "error", err)
	}
}

func (a *App) refreshAll() {
	a.sinceRefresh = 0
	a.sched.RefreshAll(a.store.Snapshot().Feeds())
}

// save writes the store if persistence is configured and reports whether
// it succeeded. A failed save is not retried until the store changes again.
func (a *App) save() bool {
	if a.persistence == nil {
		return false
	}
	version := a.store.Version()
	if err := a.persistence.Save(a.store.Export()); err != nil {
		a.logger.Error("failed to save", "error", err)
		a.setBanner("Could not save")
		a.savedVersion = version
		return false
	}
	a.savedVersion = version
	return true
}

func (a *App) setBanner(msg string) {
	a.banner = msg
	a.bannerLeft = a.cfg.ErrorDisplay
}

func (a *App) expireBanner(elapsed time.Duration) {
	if a.banner == "" {
		return
	}
	a.bannerLeft -= elapsed
	if a.bannerLeft <= 0 {
		a.banner = ""
	}
}

func (a *App) renderLocked() RenderModel {
	rm := render(a.machine, a.state, a.store.Snapshot(), a.sched)
	rm.Banner = a.banner
	rm.Quit = a.quit
	return rm
}

// Stop abandons outstanding fetches and saves the store.
//
// Stop is idempotent and safe to call before [App.Start].
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true

	a.sched.Stop()
	if a.started && a.store.Version() != a.savedVersion && !a.saveBlocked {
		a.save()
	}
	a.client.Close()
	a.logger.Info("feedboard stopped")
}
