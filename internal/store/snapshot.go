package store

import "strings"

// Snapshot is an immutable view of the store at one version.
type Snapshot struct {
	feeds      []Feed
	feedIndex  map[FeedID]int
	items      map[ItemID]Item
	byFeed     map[FeedID][]ItemID
	categories []Category
	version    uint64
}

// Version returns the store version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// Feeds returns the subscribed feeds in subscription order.
func (s *Snapshot) Feeds() []Feed {
	return append([]Feed(nil), s.feeds...)
}

// Feed returns the feed with the given id.
func (s *Snapshot) Feed(id FeedID) (Feed, bool) {
	i, ok := s.feedIndex[id]
	if !ok {
		return Feed{}, false
	}
	return s.feeds[i], true
}

// Item returns the item with the given id.
func (s *Snapshot) Item(id ItemID) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Categories returns the categories in creation order.
func (s *Snapshot) Categories() []Category {
	return append([]Category(nil), s.categories...)
}

// FeedsInCategory returns the feeds labelled with the named category.
func (s *Snapshot) FeedsInCategory(name string) []Feed {
	var out []Feed
	for _, f := range s.feeds {
		if f.Category == name {
			out = append(out, f)
		}
	}
	return out
}

// FeedItems returns the items of one feed, newest first.
func (s *Snapshot) FeedItems(id FeedID) []Item {
	ids := s.byFeed[id]
	out := make([]Item, 0, len(ids))
	for _, itemID := range ids {
		out = append(out, s.items[itemID])
	}
	sortNewestFirst(out)
	return out
}

// UnreadCount returns the number of unread items in a feed.
func (s *Snapshot) UnreadCount(id FeedID) int {
	n := 0
	for _, itemID := range s.byFeed[id] {
		if !s.items[itemID].Read {
			n++
		}
	}
	return n
}

// ItemCount returns the number of items across all feeds.
func (s *Snapshot) ItemCount() int { return len(s.items) }

// DashboardItems returns up to limit items across all feeds, newest first,
// undated items last. A limit of zero or less returns every item.
func (s *Snapshot) DashboardItems(limit int) []Item {
	out := s.allItems(nil)
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Bookmarks returns the bookmarked items, newest first.
func (s *Snapshot) Bookmarks() []Item {
	out := s.allItems(func(it Item) bool { return it.Bookmarked })
	sortNewestFirst(out)
	return out
}

// Search returns items whose title or summary contains query,
// case-insensitively, newest first. A blank query matches nothing.
func (s *Snapshot) Search(query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := s.allItems(func(it Item) bool {
		return strings.Contains(strings.ToLower(it.Title), q) ||
			strings.Contains(strings.ToLower(it.Summary), q)
	})
	sortNewestFirst(out)
	return out
}

func (s *Snapshot) allItems(keep func(Item) bool) []Item {
	out := make([]Item, 0, len(s.items))
	for _, f := range s.feeds {
		for _, itemID := range s.byFeed[f.ID] {
			it := s.items[itemID]
			if keep == nil || keep(it) {
				out = append(out, it)
			}
		}
	}
	return out
}
