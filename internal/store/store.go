package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by [MemoryStore]. Callers match them with
// errors.Is; returned errors wrap them with context.
var (
	ErrInvalidURL       = errors.New("invalid feed url")
	ErrDuplicateURL     = errors.New("feed already subscribed")
	ErrFeedNotFound     = errors.New("feed not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrEmptyName        = errors.New("category name cannot be empty")
)

// FeedID identifies a subscribed feed. It is generated at subscribe time and
// persisted, so it is stable across sessions.
type FeedID string

// ItemID identifies an item. It is derived from the owning feed's id and the
// entry key, so merging the same entry twice always resolves to the same item.
type ItemID string

// CategoryID identifies a category.
type CategoryID string

// NewFeedID returns a fresh random feed id.
func NewFeedID() FeedID {
	return FeedID(uuid.NewString())
}

// DeriveItemID returns the stable id of the item with the given entry key
// inside feed.
func DeriveItemID(feed FeedID, key string) ItemID {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("feedboard:feed:"+string(feed)))
	return ItemID(uuid.NewSHA1(ns, []byte(key)).String())
}

// Feed is a subscribed RSS or Atom source.
type Feed struct {
	// ID is the feed's stable identity.
	ID FeedID

	// URL is the source URL as entered by the user.
	URL string

	// Title is the display title. It starts empty and is adopted from the
	// source on the first successful fetch.
	Title string

	// Category is the name of the category the feed belongs to, or empty.
	Category string

	// LastFetched is the time of the last successful fetch.
	LastFetched time.Time

	// LastError describes the most recent fetch failure. Empty after a
	// successful fetch.
	LastError string

	// LastErrorAt is when LastError was recorded.
	LastErrorAt time.Time
}

// DisplayTitle returns the title, falling back to the URL before the first
// successful fetch.
func (f Feed) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return f.URL
}

// Item is one entry of a feed.
type Item struct {
	ID        ItemID
	FeedID    FeedID
	Key       string
	Title     string
	Published time.Time
	Summary   string
	Link      string
	Author    string

	Read       bool
	Bookmarked bool
}

// Category is a named group of feeds.
type Category struct {
	ID   CategoryID
	Name string
}

// Entry is one normalized entry of a fetched feed document, the input to
// [MemoryStore.MergeFetchResult].
type Entry struct {
	// Key is the entry's stable per-feed key (GUID, link, ...).
	Key       string
	Title     string
	Published time.Time
	Summary   string
	Link      string
	Author    string
}
