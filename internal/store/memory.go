package store

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory feed store.
//
// MemoryStore serializes every mutation behind a single write lock. Reads go
// through [MemoryStore.Snapshot], which returns an immutable copy that is
// cached until the next mutation, so repeated reads between mutations are
// cheap and never observe a half-applied change.
type MemoryStore struct {
	mu         sync.RWMutex
	feeds      map[FeedID]*Feed
	order      []FeedID // subscription order
	items      map[ItemID]*Item
	byFeed     map[FeedID][]ItemID
	categories []Category

	// readKeys holds read markers migrated from older on-disk layouts,
	// matched against item keys and links as items first arrive.
	readKeys map[string]struct{}

	version uint64
	snap    *Snapshot
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feeds:    make(map[FeedID]*Feed),
		items:    make(map[ItemID]*Item),
		byFeed:   make(map[FeedID][]ItemID),
		readKeys: make(map[string]struct{}),
	}
}

// Version returns a counter that increases with every mutation.
func (m *MemoryStore) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// touch records a mutation. Callers must hold the write lock.
func (m *MemoryStore) touch() {
	m.version++
	m.snap = nil
}

// AddFeed subscribes to the feed at rawURL, optionally placing it in the
// named category (created if missing).
//
// Returns an error wrapping [ErrInvalidURL] for anything other than an
// absolute http or https URL, and [ErrDuplicateURL] if an equivalent URL is
// already subscribed.
func (m *MemoryStore) AddFeed(rawURL, category string) (FeedID, error) {
	rawURL = strings.TrimSpace(rawURL)
	key, err := normalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		existing, _ := normalizeURL(m.feeds[id].URL)
		if existing == key {
			return "", fmt.Errorf("%w: %s", ErrDuplicateURL, rawURL)
		}
	}

	category = strings.TrimSpace(category)
	if category != "" {
		m.ensureCategoryLocked(category)
	}

	id := NewFeedID()
	m.feeds[id] = &Feed{ID: id, URL: rawURL, Category: category}
	m.order = append(m.order, id)
	m.touch()
	return id, nil
}

// normalizeURL validates rawURL and returns its comparison key.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https: %q", ErrInvalidURL, rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host: %q", ErrInvalidURL, rawURL)
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String(), nil
}

// RemoveFeed unsubscribes a feed and deletes all of its items.
func (m *MemoryStore) RemoveFeed(id FeedID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}

	for _, itemID := range m.byFeed[id] {
		delete(m.items, itemID)
	}
	delete(m.byFeed, id)
	delete(m.feeds, id)
	for i, fid := range m.order {
		if fid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.touch()
	return nil
}

// MergeFetchResult merges a successful fetch of feed id into the store and
// returns the number of new items.
//
// Entries whose key is already known update the stored item in place and
// keep its read and bookmark flags. Unknown keys are inserted. Items missing
// from entries are kept. The feed's last error is cleared, LastFetched is set
// to fetchedAt, and a non-empty source title replaces the display title.
// Merging the same result twice leaves the store unchanged the second time.
func (m *MemoryStore) MergeFetchResult(id FeedID, title string, entries []Entry, fetchedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}

	changed := false
	added := 0
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if _, dup := seen[e.Key]; dup {
			continue
		}
		seen[e.Key] = struct{}{}

		itemID := DeriveItemID(id, e.Key)
		if existing, ok := m.items[itemID]; ok {
			if existing.Title != e.Title || !existing.Published.Equal(e.Published) ||
				existing.Summary != e.Summary || existing.Link != e.Link || existing.Author != e.Author {
				existing.Title = e.Title
				existing.Published = e.Published
				existing.Summary = e.Summary
				existing.Link = e.Link
				existing.Author = e.Author
				changed = true
			}
			continue
		}

		item := &Item{
			ID:        itemID,
			FeedID:    id,
			Key:       e.Key,
			Title:     e.Title,
			Published: e.Published,
			Summary:   e.Summary,
			Link:      e.Link,
			Author:    e.Author,
		}
		if m.matchesReadKeyLocked(feed, item) {
			item.Read = true
		}
		m.items[itemID] = item
		m.byFeed[id] = append(m.byFeed[id], itemID)
		added++
		changed = true
	}

	title = strings.TrimSpace(title)
	if title != "" && feed.Title != title {
		feed.Title = title
		changed = true
	}
	if !feed.LastFetched.Equal(fetchedAt) {
		feed.LastFetched = fetchedAt
		changed = true
	}
	if feed.LastError != "" || !feed.LastErrorAt.IsZero() {
		feed.LastError = ""
		feed.LastErrorAt = time.Time{}
		changed = true
	}

	if changed {
		m.touch()
	}
	return added, nil
}

// matchesReadKeyLocked reports whether a pending read marker names item.
// Markers match the entry key, the link, or the "<feed url>_<title>" form
// used by older files for items without a link.
func (m *MemoryStore) matchesReadKeyLocked(feed *Feed, item *Item) bool {
	if len(m.readKeys) == 0 {
		return false
	}
	candidates := []string{item.Key, item.Link, feed.URL + "_" + item.Title}
	for _, k := range candidates {
		if k == "" {
			continue
		}
		if _, ok := m.readKeys[k]; ok {
			delete(m.readKeys, k)
			return true
		}
	}
	return false
}

// RecordFetchError stores a fetch failure on the feed for display.
func (m *MemoryStore) RecordFetchError(id FeedID, msg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}
	feed.LastError = msg
	feed.LastErrorAt = at
	m.touch()
	return nil
}

// ToggleBookmark flips the bookmark flag of an item and returns the new value.
func (m *MemoryStore) ToggleBookmark(id ItemID) (bool, error) {
	return m.updateItem(id, func(it *Item) bool {
		it.Bookmarked = !it.Bookmarked
		return it.Bookmarked
	})
}

// ToggleRead flips the read flag of an item and returns the new value.
func (m *MemoryStore) ToggleRead(id ItemID) (bool, error) {
	return m.updateItem(id, func(it *Item) bool {
		it.Read = !it.Read
		return it.Read
	})
}

// MarkRead sets the read flag of an item.
func (m *MemoryStore) MarkRead(id ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if !it.Read {
		it.Read = true
		m.touch()
	}
	return nil
}

func (m *MemoryStore) updateItem(id ItemID, fn func(*Item) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	v := fn(it)
	m.touch()
	return v, nil
}

// PruneFeed deletes all but the newest keep items of a feed. Bookmarked
// items are never pruned. Returns the number of items removed.
func (m *MemoryStore) PruneFeed(id FeedID, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[id]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}
	if keep < 0 {
		keep = 0
	}

	ids := m.byFeed[id]
	items := make([]Item, 0, len(ids))
	for _, itemID := range ids {
		items = append(items, *m.items[itemID])
	}
	sortNewestFirst(items)

	drop := make(map[ItemID]struct{})
	for i, it := range items {
		if i >= keep && !it.Bookmarked {
			drop[it.ID] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	kept := ids[:0:0]
	for _, itemID := range ids {
		if _, ok := drop[itemID]; ok {
			delete(m.items, itemID)
			continue
		}
		kept = append(kept, itemID)
	}
	m.byFeed[id] = kept
	m.touch()
	return len(drop), nil
}

// CreateCategory adds a new, empty category.
func (m *MemoryStore) CreateCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.categoryByNameLocked(name) >= 0 {
		return Category{}, fmt.Errorf("%w: %s", ErrCategoryExists, name)
	}
	c := m.ensureCategoryLocked(name)
	m.touch()
	return c, nil
}

// RenameCategory renames a category and relabels its feeds.
func (m *MemoryStore) RenameCategory(id CategoryID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.categoryByIDLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	if other := m.categoryByNameLocked(name); other >= 0 && other != idx {
		return fmt.Errorf("%w: %s", ErrCategoryExists, name)
	}

	old := m.categories[idx].Name
	m.categories[idx].Name = name
	for _, f := range m.feeds {
		if f.Category == old {
			f.Category = name
		}
	}
	m.touch()
	return nil
}

// DeleteCategory removes a category. Its feeds stay subscribed, uncategorized.
func (m *MemoryStore) DeleteCategory(id CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.categoryByIDLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}

	name := m.categories[idx].Name
	m.categories = append(m.categories[:idx], m.categories[idx+1:]...)
	for _, f := range m.feeds {
		if f.Category == name {
			f.Category = ""
		}
	}
	m.touch()
	return nil
}

// SetFeedCategory moves a feed into the named category, creating it if
// needed. An empty name removes the feed from its category.
func (m *MemoryStore) SetFeedCategory(id FeedID, name string) error {
	name = strings.TrimSpace(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}
	if name != "" {
		m.ensureCategoryLocked(name)
	}
	feed.Category = name
	m.touch()
	return nil
}

func (m *MemoryStore) ensureCategoryLocked(name string) Category {
	if idx := m.categoryByNameLocked(name); idx >= 0 {
		return m.categories[idx]
	}
	c := Category{ID: CategoryID(uuid.NewString()), Name: name}
	m.categories = append(m.categories, c)
	return c
}

func (m *MemoryStore) categoryByNameLocked(name string) int {
	for i, c := range m.categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) categoryByIDLocked(id CategoryID) int {
	for i, c := range m.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns an immutable copy of the store.
//
// The returned snapshot is shared between callers until the next mutation
// and must not be modified.
func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	if s := m.snap; s != nil {
		m.mu.RUnlock()
		return s
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		m.snap = m.buildSnapshotLocked()
	}
	return m.snap
}

func (m *MemoryStore) buildSnapshotLocked() *Snapshot {
	s := &Snapshot{
		feeds:      make([]Feed, 0, len(m.order)),
		feedIndex:  make(map[FeedID]int, len(m.order)),
		items:      make(map[ItemID]Item, len(m.items)),
		byFeed:     make(map[FeedID][]ItemID, len(m.byFeed)),
		categories: append([]Category(nil), m.categories...),
		version:    m.version,
	}
	for i, id := range m.order {
		s.feeds = append(s.feeds, *m.feeds[id])
		s.feedIndex[id] = i
	}
	for id, it := range m.items {
		s.items[id] = *it
	}
	for id, ids := range m.byFeed {
		s.byFeed[id] = append([]ItemID(nil), ids...)
	}
	return s
}

// DashboardItems returns up to limit items across all feeds, newest first.
func (m *MemoryStore) DashboardItems(limit int) []Item {
	return m.Snapshot().DashboardItems(limit)
}

// Search returns the items whose title or summary contains query,
// case-insensitively, newest first.
func (m *MemoryStore) Search(query string) []Item {
	return m.Snapshot().Search(query)
}

// sortNewestFirst orders items by publish time, newest first. Undated items
// sort after dated ones; ties are broken by id for a stable order.
func sortNewestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.Published.IsZero() != b.Published.IsZero():
			return !a.Published.IsZero()
		case !a.Published.Equal(b.Published):
			return a.Published.After(b.Published)
		default:
			return a.ID < b.ID
		}
	})
}
