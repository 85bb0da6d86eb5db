// Package config provides YAML configuration parsing for feedboard.
//
// Every key is optional. Missing keys take the defaults from [Default];
// keys that are present but invalid fail validation.
//
// Example configuration:
//
//	refresh_interval: 30m
//	domain_delay: 2s
//	domain_delays:
//	  news.ycombinator.com: 5s
//	fetch_timeout: 15s
//	theme: dark
//	data_file: ${XDG_DATA_HOME:-~/.local/share}/feedboard/feedboard_data.json
//
//	feeds:
//	  - url: https://go.dev/blog/feed.atom
//	    category: Go
//	  - url: https://blog.rust-lang.org/feed.xml
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/feedboard"
	"github.com/jpalmerr/feedboard/internal/persist"
)

const (
	// minRefreshInterval keeps automatic refreshes from hammering servers.
	minRefreshInterval = time.Minute

	minFetchTimeout = time.Second
	minTickRate     = 10 * time.Millisecond

	appName = "feedboard"
)

// Themes accepted by the theme key.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Config is the root configuration structure for feedboard. It maps
// directly to the YAML file. Use [Load] or [Parse] to create one.
type Config struct {
	// RefreshInterval is the time between automatic refresh passes.
	// Accepts duration strings like "15m" or "1h". At least 1m.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// AutoRefresh enables the refresh timer.
	AutoRefresh bool `yaml:"auto_refresh"`

	// RefreshOnStart refreshes every feed when the reader opens.
	RefreshOnStart bool `yaml:"refresh_on_start"`

	// DomainDelay is the minimum time between requests to the same host.
	DomainDelay Duration `yaml:"domain_delay"`

	// DomainDelays overrides DomainDelay for individual hosts.
	DomainDelays map[string]Duration `yaml:"domain_delays"`

	// FetchTimeout bounds a single fetch. At least 1s.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// BackoffMax caps the cooldown after timeouts and rate limiting.
	BackoffMax Duration `yaml:"backoff_max"`

	// MaxRequestsPerSecond caps requests across all hosts. 0 disables it.
	MaxRequestsPerSecond float64 `yaml:"max_requests_per_second"`

	// QueueSize is the capacity of the fetch result queue.
	QueueSize int `yaml:"queue_size"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent"`

	// DashboardLimit caps the number of items on the dashboard.
	DashboardLimit int `yaml:"dashboard_limit"`

	// MaxItemsPerFeed prunes old unbookmarked items. 0 keeps everything.
	MaxItemsPerFeed int `yaml:"max_items_per_feed"`

	// ErrorDisplay is how long messages stay in the banner.
	ErrorDisplay Duration `yaml:"error_display"`

	// TickRate is how often the screen is refreshed.
	TickRate Duration `yaml:"tick_rate"`

	// Theme selects the color scheme: "dark" or "light".
	Theme string `yaml:"theme"`

	// DataFile is where subscriptions and item flags are saved.
	// Empty means the platform data directory.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	DataFile string `yaml:"data_file"`

	// LogFile receives the JSON log. Empty means the platform data
	// directory. Supports environment variable substitution.
	LogFile string `yaml:"log_file"`

	// Feeds are subscribed when the reader starts, if not subscribed yet.
	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig is a feed subscribed from the configuration.
type FeedConfig struct {
	// URL is the feed address. Supports environment variable substitution.
	URL string `yaml:"url"`

	// Category is an optional category name.
	Category string `yaml:"category"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used for missing keys.
func Default() Config {
	app := feedboard.DefaultConfig()
	return Config{
		RefreshInterval: Duration(app.RefreshInterval),
		AutoRefresh:     app.AutoRefresh,
		RefreshOnStart:  app.RefreshOnStart,
		DomainDelay:     Duration(app.DomainDelay),
		FetchTimeout:    Duration(app.FetchTimeout),
		BackoffMax:      Duration(app.BackoffMax),
		QueueSize:       app.QueueSize,
		UserAgent:       app.UserAgent,
		DashboardLimit:  app.DashboardLimit,
		ErrorDisplay:    Duration(app.ErrorDisplay),
		TickRate:        Duration(100 * time.Millisecond),
		Theme:           ThemeDark,
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value, possibly empty
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values. An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name := sub[1]
		hasDefault := sub[2] != ""

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return sub[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults for missing keys,
// expands environment variables in data_file, log_file and feed URLs, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expand() error {
	var err error
	if c.DataFile, err = expandEnvVars(c.DataFile); err != nil {
		return fmt.Errorf("data_file: %w", err)
	}
	c.DataFile = expandHome(c.DataFile)

	if c.LogFile, err = expandEnvVars(c.LogFile); err != nil {
		return fmt.Errorf("log_file: %w", err)
	}
	c.LogFile = expandHome(c.LogFile)

	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.URL, err = expandEnvVars(strings.TrimSpace(f.URL)); err != nil {
			return fmt.Errorf("feeds[%d]: url: %w", i, err)
		}
		f.Category = strings.TrimSpace(f.Category)
	}
	return nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if d := c.RefreshInterval.Duration(); d < minRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %s, got %s", minRefreshInterval, d)
	}
	if d := c.FetchTimeout.Duration(); d < minFetchTimeout {
		return fmt.Errorf("fetch_timeout must be at least %s, got %s", minFetchTimeout, d)
	}
	if d := c.DomainDelay.Duration(); d < 0 {
		return fmt.Errorf("domain_delay cannot be negative, got %s", d)
	}
	for host, d := range c.DomainDelays {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("domain_delays: empty host")
		}
		if d.Duration() < 0 {
			return fmt.Errorf("domain_delays[%s]: cannot be negative, got %s", host, d.Duration())
		}
	}
	if d := c.BackoffMax.Duration(); d <= 0 {
		return fmt.Errorf("backoff_max must be positive, got %s", d)
	}
	if c.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max_requests_per_second cannot be negative, got %g", c.MaxRequestsPerSecond)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}
	if c.DashboardLimit < 1 {
		return fmt.Errorf("dashboard_limit must be at least 1, got %d", c.DashboardLimit)
	}
	if c.MaxItemsPerFeed < 0 {
		return fmt.Errorf("max_items_per_feed cannot be negative, got %d", c.MaxItemsPerFeed)
	}
	if d := c.ErrorDisplay.Duration(); d <= 0 {
		return fmt.Errorf("error_display must be positive, got %s", d)
	}
	if d := c.TickRate.Duration(); d < minTickRate {
		return fmt.Errorf("tick_rate must be at least %s, got %s", minTickRate, d)
	}
	if c.Theme != ThemeDark && c.Theme != ThemeLight {
		return fmt.Errorf("theme must be %q or %q, got %q", ThemeDark, ThemeLight, c.Theme)
	}

	seen := make(map[string]int, len(c.Feeds))
	for i, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("feeds[%d]: url is required", i)
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("feeds[%d]: invalid url: %w", i, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("feeds[%d]: url scheme must be http or https, got %q", i, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("feeds[%d]: url must have a host", i)
		}
		if j, dup := seen[f.URL]; dup {
			return fmt.Errorf("feeds[%d]: duplicate of feeds[%d] (%s)", i, j, f.URL)
		}
		seen[f.URL] = i
	}
	return nil
}

// DataPath returns the data file location, defaulting to
// feedboard_data.json in the platform data directory.
func (c *Config) DataPath() (string, error) {
	if c.DataFile != "" {
		return c.DataFile, nil
	}
	dir, err := persist.DataDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+"_data.json"), nil
}

// LogPath returns the log file location, defaulting to feedboard.log in
// the platform data directory.
func (c *Config) LogPath() (string, error) {
	if c.LogFile != "" {
		return c.LogFile, nil
	}
	dir, err := persist.DataDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}
