package view

import "github.com/jpalmerr/feedboard/internal/store"

// Effect is a side effect requested by a transition. The machine never
// performs effects; the application loop does.
type Effect interface {
	effect()
}

type (
	// Quit ends the application.
	Quit struct{}

	// RefreshAll starts a refresh pass over every feed.
	RefreshAll struct{}

	// RefreshFeed refreshes one feed immediately.
	RefreshFeed struct{ FeedID store.FeedID }

	// OpenURL opens a link in the browser.
	OpenURL struct{ URL string }

	// AddFeed subscribes to a feed.
	AddFeed struct{ URL string }

	// RemoveFeed unsubscribes a feed and deletes its items.
	RemoveFeed struct{ FeedID store.FeedID }

	// ToggleRead flips an item's read flag.
	ToggleRead struct{ ItemID store.ItemID }

	// MarkRead sets an item's read flag.
	MarkRead struct{ ItemID store.ItemID }

	// ToggleBookmark flips an item's bookmark flag.
	ToggleBookmark struct{ ItemID store.ItemID }

	// SetCategory moves a feed into a category; an empty name clears it.
	SetCategory struct {
		FeedID store.FeedID
		Name   string
	}

	// CreateCategory adds an empty category.
	CreateCategory struct{ Name string }

	// RenameCategory renames a category and relabels its feeds.
	RenameCategory struct {
		ID   store.CategoryID
		Name string
	}

	// DeleteCategory removes a category, leaving its feeds uncategorized.
	DeleteCategory struct{ ID store.CategoryID }

	// Save persists the store now.
	Save struct{}
)

func (Quit) effect()           {}
func (RefreshAll) effect()     {}
func (RefreshFeed) effect()    {}
func (OpenURL) effect()        {}
func (AddFeed) effect()        {}
func (RemoveFeed) effect()     {}
func (ToggleRead) effect()     {}
func (MarkRead) effect()       {}
func (ToggleBookmark) effect() {}
func (SetCategory) effect()    {}
func (CreateCategory) effect() {}
func (RenameCategory) effect() {}
func (DeleteCategory) effect() {}
func (Save) effect()           {}
