package store

import (
	"fmt"
	"sort"
	"time"
)

// SchemaVersion is the version of [StoredState] written by this build.
const SchemaVersion = 2

// StoredState is the serializable form of a [MemoryStore].
type StoredState struct {
	Version    int              `json:"version"`
	Feeds      []StoredFeed     `json:"feeds"`
	Items      []StoredItem     `json:"items"`
	Categories []StoredCategory `json:"categories"`

	// ReadKeys are read markers not yet matched to an item. Older files
	// recorded read state by link; those markers wait here until the item
	// is fetched again.
	ReadKeys []string `json:"read_keys,omitempty"`
}

// StoredFeed is the persisted form of a [Feed].
type StoredFeed struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Category    string    `json:"category,omitempty"`
	LastFetched time.Time `json:"last_fetched,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

// StoredItem is the persisted form of an [Item].
type StoredItem struct {
	FeedID     string    `json:"feed_id"`
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	Published  time.Time `json:"published,omitzero"`
	Summary    string    `json:"summary,omitempty"`
	Link       string    `json:"link,omitempty"`
	Author     string    `json:"author,omitempty"`
	Read       bool      `json:"read,omitempty"`
	Bookmarked bool      `json:"bookmarked,omitempty"`
}

// StoredCategory is the persisted form of a [Category].
type StoredCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Export returns the store's persisted form. Feeds keep subscription order;
// items are grouped by feed in arrival order. Times are normalized to UTC.
func (m *MemoryStore) Export() StoredState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := StoredState{
		Version:    SchemaVersion,
		Feeds:      make([]StoredFeed, 0, len(m.order)),
		Items:      make([]StoredItem, 0, len(m.items)),
		Categories: make([]StoredCategory, 0, len(m.categories)),
	}
	for _, id := range m.order {
		f := m.feeds[id]
		st.Feeds = append(st.Feeds, StoredFeed{
			ID:          string(f.ID),
			URL:         f.URL,
			Title:       f.Title,
			Category:    f.Category,
			LastFetched: utc(f.LastFetched),
			LastError:   f.LastError,
			LastErrorAt: utc(f.LastErrorAt),
		})
		for _, itemID := range m.byFeed[id] {
			it := m.items[itemID]
			st.Items = append(st.Items, StoredItem{
				FeedID:     string(it.FeedID),
				Key:        it.Key,
				Title:      it.Title,
				Published:  utc(it.Published),
				Summary:    it.Summary,
				Link:       it.Link,
				Author:     it.Author,
				Read:       it.Read,
				Bookmarked: it.Bookmarked,
			})
		}
	}
	for _, c := range m.categories {
		st.Categories = append(st.Categories, StoredCategory{ID: string(c.ID), Name: c.Name})
	}
	for k := range m.readKeys {
		st.ReadKeys = append(st.ReadKeys, k)
	}
	sort.Strings(st.ReadKeys)
	return st
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Round(0)
}

// Import replaces the store's contents with st.
//
// Feeds with an empty id or a duplicate id are rejected. Items whose feed is
// not present are dropped. Categories referenced by feeds but missing from
// st.Categories are created.
func (m *MemoryStore) Import(st StoredState) error {
	if st.Version > SchemaVersion {
		return fmt.Errorf("unsupported state version %d (max %d)", st.Version, SchemaVersion)
	}

	feeds := make(map[FeedID]*Feed, len(st.Feeds))
	order := make([]FeedID, 0, len(st.Feeds))
	for i, sf := range st.Feeds {
		id := FeedID(sf.ID)
		if id == "" {
			return fmt.Errorf("feeds[%d]: empty id", i)
		}
		if _, dup := feeds[id]; dup {
			return fmt.Errorf("feeds[%d]: duplicate id %s", i, id)
		}
		feeds[id] = &Feed{
			ID:          id,
			URL:         sf.URL,
			Title:       sf.Title,
			Category:    sf.Category,
			LastFetched: sf.LastFetched,
			LastError:   sf.LastError,
			LastErrorAt: sf.LastErrorAt,
		}
		order = append(order, id)
	}

	items := make(map[ItemID]*Item, len(st.Items))
	byFeed := make(map[FeedID][]ItemID, len(feeds))
	for _, si := range st.Items {
		fid := FeedID(si.FeedID)
		if _, ok := feeds[fid]; !ok || si.Key == "" {
			continue
		}
		id := DeriveItemID(fid, si.Key)
		if _, dup := items[id]; dup {
			continue
		}
		items[id] = &Item{
			ID:         id,
			FeedID:     fid,
			Key:        si.Key,
			Title:      si.Title,
			Published:  si.Published,
			Summary:    si.Summary,
			Link:       si.Link,
			Author:     si.Author,
			Read:       si.Read,
			Bookmarked: si.Bookmarked,
		}
		byFeed[fid] = append(byFeed[fid], id)
	}

	readKeys := make(map[string]struct{}, len(st.ReadKeys))
	for _, k := range st.ReadKeys {
		if k != "" {
			readKeys[k] = struct{}{}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.feeds = feeds
	m.order = order
	m.items = items
	m.byFeed = byFeed
	m.readKeys = readKeys
	m.categories = nil
	for _, sc := range st.Categories {
		if sc.Name == "" || m.categoryByNameLocked(sc.Name) >= 0 {
			continue
		}
		id := CategoryID(sc.ID)
		if id == "" {
			m.ensureCategoryLocked(sc.Name)
			continue
		}
		m.categories = append(m.categories, Category{ID: id, Name: sc.Name})
	}
	for _, id := range order {
		if name := feeds[id].Category; name != "" {
			m.ensureCategoryLocked(name)
		}
	}
	m.touch()
	return nil
}
