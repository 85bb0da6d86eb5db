package config

import (
	"sort"
	"strings"
	"time"

	"github.com/jpalmerr/feedboard"
)

// AppConfig converts parsed configuration into the application's settings.
func AppConfig(cfg *Config) feedboard.Config {
	out := feedboard.Config{
		RefreshInterval:      cfg.RefreshInterval.Duration(),
		AutoRefresh:          cfg.AutoRefresh,
		RefreshOnStart:       cfg.RefreshOnStart,
		DomainDelay:          cfg.DomainDelay.Duration(),
		FetchTimeout:         cfg.FetchTimeout.Duration(),
		BackoffMax:           cfg.BackoffMax.Duration(),
		MaxRequestsPerSecond: cfg.MaxRequestsPerSecond,
		QueueSize:            cfg.QueueSize,
		UserAgent:            cfg.UserAgent,
		DashboardLimit:       cfg.DashboardLimit,
		MaxItemsPerFeed:      cfg.MaxItemsPerFeed,
		ErrorDisplay:         cfg.ErrorDisplay.Duration(),
		Feeds:                buildSubscriptions(cfg.Feeds),
	}

	if len(cfg.DomainDelays) > 0 {
		out.DomainDelays = make(map[string]time.Duration, len(cfg.DomainDelays))
		for host, d := range cfg.DomainDelays {
			out.DomainDelays[strings.ToLower(strings.TrimSpace(host))] = d.Duration()
		}
	}
	return out
}

// BuildOptions returns the [feedboard.Option] values for cfg. Callers add
// persistence and logging themselves.
func BuildOptions(cfg *Config) []feedboard.Option {
	return []feedboard.Option{feedboard.WithConfig(AppConfig(cfg))}
}

func buildSubscriptions(feeds []FeedConfig) []feedboard.Subscription {
	if len(feeds) == 0 {
		return nil
	}
	subs := make([]feedboard.Subscription, len(feeds))
	for i, f := range feeds {
		subs[i] = feedboard.Subscription{URL: f.URL, Category: f.Category}
	}
	return subs
}

// Categories returns the distinct category names used by the configured
// feeds, sorted.
func Categories(cfg *Config) []string {
	seen := make(map[string]struct{})
	for _, f := range cfg.Feeds {
		if f.Category != "" {
			seen[f.Category] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
