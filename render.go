package feedboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpalmerr/feedboard/internal/scheduler"
	"github.com/jpalmerr/feedboard/internal/store"
	"github.com/jpalmerr/feedboard/internal/view"
)

// RenderModel is everything a front end needs to draw one frame. It is a
// plain value built from a store snapshot and holds no references into
// the App.
type RenderModel struct {
	// View names the current view.
	View string

	// Title is the heading of the current view.
	Title string

	// Rows are the list rows of list views.
	Rows []Row

	// Selected is the index of the highlighted row.
	Selected int

	// Detail is set in the item view.
	Detail *Detail

	// Query is the search text of the search view.
	Query string

	// Editing is set while the search query takes input.
	Editing bool

	// Prompt is set while a text prompt is open.
	Prompt *Prompt

	// Filter is set while the dashboard filter panel is open.
	Filter *FilterPanel

	// Banner is a transient message, empty when there is none.
	Banner string

	Status Status

	// Quit is set once the application asked to exit.
	Quit bool
}

// Row is one line of a list view.
type Row struct {
	Title string

	// Source is the feed title for item rows and the category for feed rows.
	Source string

	Published  time.Time
	Read       bool
	Bookmarked bool

	// Unread counts a feed's unread items. Item rows leave it zero.
	Unread int

	// Error is a feed's last fetch error.
	Error string

	// Refreshing is set while a feed row is queued or fetching.
	Refreshing bool
}

// Detail is the content of the item view.
type Detail struct {
	Title      string
	Feed       string
	Author     string
	Link       string
	Published  time.Time
	Lines      []string
	Scroll     int
	Read       bool
	Bookmarked bool
}

// FilterPanel shows each dashboard filter criterion and how many items
// pass.
type FilterPanel struct {
	Category string
	Age      string
	Read     string
	Author   string
	Length   string
	Shown    int
	Total    int
}

// Prompt is an open text prompt.
type Prompt struct {
	Label string
	Input string
}

// Status summarizes the store and the scheduler.
type Status struct {
	Feeds      int
	Items      int
	Unread     int
	Bookmarked int
	InFlight   int

	// Filter summarizes the active dashboard filter, empty when none.
	Filter string
}

// render builds the frame for state s.
func render(m view.Machine, s view.State, snap *store.Snapshot, sched *scheduler.Scheduler) RenderModel {
	rm := RenderModel{
		View:     s.Kind.String(),
		Selected: s.Selected,
		Query:    s.Query,
		Editing:  s.Editing,
		Status:   status(snap, sched),
	}
	rm.Status.Filter = s.Filter.Summary()

	switch s.Kind {
	case view.Dashboard:
		rm.Title = "Latest"
		rm.Rows = itemRows(m.Items(s, snap), snap)
	case view.FeedList:
		rm.Title = "Feeds"
		rm.Rows = feedRows(snap, sched)
	case view.FeedItems:
		f, _ := snap.Feed(s.FeedID)
		rm.Title = f.DisplayTitle()
		rm.Rows = itemRows(m.Items(s, snap), snap)
	case view.Search:
		rm.Title = "Search"
		rm.Rows = itemRows(m.Items(s, snap), snap)
	case view.Categories:
		rm.Title = "Categories"
		rm.Rows = categoryRows(snap)
	case view.ItemDetail:
		if it, ok := snap.Item(s.ItemID); ok {
			f, _ := snap.Feed(it.FeedID)
			rm.Title = it.Title
			rm.Detail = &Detail{
				Title:      it.Title,
				Feed:       f.DisplayTitle(),
				Author:     it.Author,
				Link:       it.Link,
				Published:  it.Published,
				Lines:      strings.Split(it.Summary, "\n"),
				Scroll:     s.Scroll,
				Read:       it.Read,
				Bookmarked: it.Bookmarked,
			}
		}
	}

	if s.Filtering {
		category := s.Filter.Category
		if category == "" {
			category = "any"
		}
		rm.Filter = &FilterPanel{
			Category: category,
			Age:      s.Filter.Age.String(),
			Read:     s.Filter.Read.String(),
			Author:   s.Filter.Author.String(),
			Length:   s.Filter.Length(),
			Shown:    len(rm.Rows),
			Total:    len(m.Items(view.State{Kind: view.Dashboard}, snap)),
		}
	}

	if p := s.Prompt; p != nil {
		label := "Add feed URL"
		switch p.Kind {
		case view.PromptCategory:
			label = "Category"
		case view.PromptNewCategory:
			label = "New category"
		case view.PromptRenameCategory:
			label = "Rename category"
		}
		rm.Prompt = &Prompt{Label: label, Input: p.Input}
	}
	return rm
}

func itemRows(items []store.Item, snap *store.Snapshot) []Row {
	rows := make([]Row, len(items))
	for i, it := range items {
		f, _ := snap.Feed(it.FeedID)
		rows[i] = Row{
			Title:      it.Title,
			Source:     f.DisplayTitle(),
			Published:  it.Published,
			Read:       it.Read,
			Bookmarked: it.Bookmarked,
		}
	}
	return rows
}

func feedRows(snap *store.Snapshot, sched *scheduler.Scheduler) []Row {
	feeds := snap.Feeds()
	rows := make([]Row, len(feeds))
	for i, f := range feeds {
		phase := sched.Phase(f.ID)
		rows[i] = Row{
			Title:      f.DisplayTitle(),
			Source:     f.Category,
			Published:  f.LastFetched,
			Unread:     snap.UnreadCount(f.ID),
			Error:      f.LastError,
			Refreshing: phase == scheduler.PhaseQueued || phase == scheduler.PhaseFetching,
		}
	}
	return rows
}

func categoryRows(snap *store.Snapshot) []Row {
	cats := snap.Categories()
	rows := make([]Row, len(cats))
	for i, c := range cats {
		feeds := snap.FeedsInCategory(c.Name)
		unread := 0
		for _, f := range feeds {
			unread += snap.UnreadCount(f.ID)
		}
		rows[i] = Row{
			Title:  c.Name,
			Source: fmt.Sprintf("%d feeds", len(feeds)),
			Unread: unread,
		}
	}
	return rows
}

func status(snap *store.Snapshot, sched *scheduler.Scheduler) Status {
	st := Status{
		Items:      snap.ItemCount(),
		Bookmarked: len(snap.Bookmarks()),
		InFlight:   sched.InFlight(),
	}
	for _, f := range snap.Feeds() {
		st.Feeds++
		st.Unread += snap.UnreadCount(f.ID)
	}
	return st
}
