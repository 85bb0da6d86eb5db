package view

import (
	"fmt"

	"github.com/jpalmerr/feedboard/internal/store"
)

// Kind identifies a view.
type Kind int

const (
	Dashboard Kind = iota
	FeedList
	FeedItems
	ItemDetail
	Search
	Categories
)

func (k Kind) String() string {
	switch k {
	case Dashboard:
		return "Dashboard"
	case FeedList:
		return "Feeds"
	case FeedItems:
		return "Feed"
	case ItemDetail:
		return "Item"
	case Search:
		return "Search"
	case Categories:
		return "Categories"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PromptKind identifies what a text prompt collects.
type PromptKind int

const (
	// PromptAddFeed collects a feed URL to subscribe to.
	PromptAddFeed PromptKind = iota + 1

	// PromptCategory collects a category name for [Prompt.FeedID].
	PromptCategory

	// PromptNewCategory collects the name of a category to create.
	PromptNewCategory

	// PromptRenameCategory collects a new name for [Prompt.CategoryID].
	PromptRenameCategory
)

// Prompt is a single-line text input shown over the current view.
type Prompt struct {
	Kind       PromptKind
	Input      string
	FeedID     store.FeedID
	CategoryID store.CategoryID
}

// State is the complete view state. States are values: [Machine.Update]
// never modifies the state it is given.
type State struct {
	Kind Kind

	// Selected is the index of the highlighted row.
	Selected int

	// FeedID is the feed shown by a FeedItems view.
	FeedID store.FeedID

	// ItemID is the item shown by an ItemDetail view.
	ItemID store.ItemID

	// Scroll is the first visible line of an ItemDetail view.
	Scroll int

	// Query is the search text of a Search view.
	Query string

	// Editing is set while a Search view is taking query input.
	Editing bool

	// Origin is the state an ItemDetail or Search view returns to.
	Origin *State

	// Prompt, if non-nil, captures input until confirmed or cancelled.
	Prompt *Prompt

	// Filter narrows the dashboard. It outlives view changes.
	Filter Filter

	// Filtering is set while the dashboard's filter panel takes keys.
	Filtering bool
}

// Initial returns the starting state.
func Initial() State {
	return State{Kind: Dashboard}
}

// origin returns a copy of s suitable for storing as another state's
// Origin. Overlays are not carried over.
func (s State) origin() *State {
	o := s
	o.Prompt = nil
	o.Editing = false
	o.Filtering = false
	return &o
}

// back returns the state to return to from s, if any.
func (s State) back() (State, bool) {
	switch s.Kind {
	case ItemDetail, Search:
		if s.Origin != nil {
			return *s.Origin, true
		}
		return Initial(), true
	case FeedItems, Categories:
		return State{Kind: FeedList}, true
	case FeedList:
		return Initial(), true
	default:
		return s, false
	}
}
