package feedboard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/feedboard/internal/scheduler"
	"github.com/jpalmerr/feedboard/internal/store"
)

const (
	defaultRefreshInterval = 15 * time.Minute
	defaultDomainDelay     = 2 * time.Second
	defaultFetchTimeout    = 15 * time.Second
	defaultErrorDisplay    = 3 * time.Second
	defaultDashboardLimit  = 100

	// DefaultUserAgent identifies feedboard to feed servers.
	DefaultUserAgent = "feedboard/" + Version + " (+https://github.com/jpalmerr/feedboard)"
)

// Version is the feedboard release.
const Version = "0.3.0"

// Subscription is a feed the application subscribes to on start if it is
// not subscribed already.
type Subscription struct {
	URL      string
	Category string
}

// Config holds the tunables of an [App]. Zero fields take their defaults,
// see [DefaultConfig].
type Config struct {
	// RefreshInterval is the time between automatic refresh passes.
	RefreshInterval time.Duration

	// AutoRefresh enables the refresh timer.
	AutoRefresh bool

	// RefreshOnStart runs a refresh pass from [App.Start].
	RefreshOnStart bool

	// DomainDelay is the minimum spacing between requests to one host.
	DomainDelay time.Duration

	// DomainDelays overrides DomainDelay per host.
	DomainDelays map[string]time.Duration

	// FetchTimeout bounds a single fetch.
	FetchTimeout time.Duration

	// BackoffMax caps the cooldown after timeouts and rate limiting.
	BackoffMax time.Duration

	// MaxRequestsPerSecond caps requests across all hosts. Zero disables
	// the cap.
	MaxRequestsPerSecond float64

	// QueueSize is the capacity of the fetch result queue.
	QueueSize int

	// UserAgent is sent with every request.
	UserAgent string

	// DashboardLimit caps the number of dashboard rows.
	DashboardLimit int

	// MaxItemsPerFeed prunes each feed to its newest items after a refresh.
	// Bookmarked items are always kept. Zero keeps everything.
	MaxItemsPerFeed int

	// ErrorDisplay is how long a message banner stays visible.
	ErrorDisplay time.Duration

	// Feeds are subscribed on start.
	Feeds []Subscription
}

// DefaultConfig returns the configuration used when [WithConfig] is not
// given.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: defaultRefreshInterval,
		AutoRefresh:     true,
		RefreshOnStart:  true,
		DomainDelay:     defaultDomainDelay,
		FetchTimeout:    defaultFetchTimeout,
		BackoffMax:      scheduler.DefaultBackoffMax,
		QueueSize:       scheduler.DefaultQueueSize,
		UserAgent:       DefaultUserAgent,
		DashboardLimit:  defaultDashboardLimit,
		ErrorDisplay:    defaultErrorDisplay,
	}
}

// withDefaults fills zero durations and sizes. Booleans are taken as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RefreshInterval == 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.DashboardLimit == 0 {
		c.DashboardLimit = d.DashboardLimit
	}
	if c.ErrorDisplay == 0 {
		c.ErrorDisplay = d.ErrorDisplay
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.RefreshInterval < 0:
		return fmt.Errorf("refresh interval cannot be negative, got %s", c.RefreshInterval)
	case c.DomainDelay < 0:
		return fmt.Errorf("domain delay cannot be negative, got %s", c.DomainDelay)
	case c.FetchTimeout < 0:
		return fmt.Errorf("fetch timeout cannot be negative, got %s", c.FetchTimeout)
	case c.BackoffMax < 0:
		return fmt.Errorf("backoff max cannot be negative, got %s", c.BackoffMax)
	case c.MaxRequestsPerSecond < 0:
		return fmt.Errorf("max requests per second cannot be negative, got %g", c.MaxRequestsPerSecond)
	case c.QueueSize < 0:
		return fmt.Errorf("queue size cannot be negative, got %d", c.QueueSize)
	case c.DashboardLimit < 0:
		return fmt.Errorf("dashboard limit cannot be negative, got %d", c.DashboardLimit)
	case c.MaxItemsPerFeed < 0:
		return fmt.Errorf("max items per feed cannot be negative, got %d", c.MaxItemsPerFeed)
	}
	for host, d := range c.DomainDelays {
		if d < 0 {
			return fmt.Errorf("domain delay for %q cannot be negative, got %s", host, d)
		}
	}
	return nil
}

// Persistence loads and saves the store's state.
type Persistence interface {
	Load() (store.StoredState, error)
	Save(store.StoredState) error
}

// appConfig holds mutable state during App construction.
type appConfig struct {
	config      Config
	logger      *slog.Logger
	fetcher     scheduler.Fetcher
	persistence Persistence
	browser     func(url string) error
}

// Option configures an [App] during construction. Options return an error
// if validation fails.
type Option func(*appConfig) error

// WithConfig replaces the default configuration. Zero durations and sizes
// in c take their defaults.
//
// Returns an error if any value is negative.
func WithConfig(c Config) Option {
	return func(cfg *appConfig) error {
		if err := c.validate(); err != nil {
			return err
		}
		cfg.config = c.withDefaults()
		return nil
	}
}

// WithLogger sets the [slog.Logger] used by the App and its scheduler.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithFetcher replaces the HTTP feed fetcher. The App's user agent,
// timeout and rate cap settings do not apply to a replaced fetcher.
//
// Returns an error if f is nil.
func WithFetcher(f scheduler.Fetcher) Option {
	return func(cfg *appConfig) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		cfg.fetcher = f
		return nil
	}
}

// WithPersistence sets where the store is loaded from and saved to.
// Without it the App keeps its state in memory only.
//
// Returns an error if p is nil.
func WithPersistence(p Persistence) Option {
	return func(cfg *appConfig) error {
		if p == nil {
			return errors.New("persistence cannot be nil")
		}
		cfg.persistence = p
		return nil
	}
}

// WithBrowser sets the function that opens links.
//
// Returns an error if open is nil.
func WithBrowser(open func(url string) error) Option {
	return func(cfg *appConfig) error {
		if open == nil {
			return errors.New("browser cannot be nil")
		}
		cfg.browser = open
		return nil
	}
}
