package view

import (
	"strings"
	"time"

	"github.com/jpalmerr/feedboard/internal/store"
)

// DefaultDashboardLimit is the number of items on the dashboard when a
// [Machine] has no limit set.
const DefaultDashboardLimit = 100

// pageSize is how far page keys move.
const pageSize = 10

// Row is one selectable line of a list view. Feed rows have an empty
// ItemID; category rows carry only a CategoryID.
type Row struct {
	FeedID     store.FeedID
	ItemID     store.ItemID
	CategoryID store.CategoryID
}

// Machine holds the transition rules. Its methods are pure functions of
// their arguments and the clock.
type Machine struct {
	// DashboardLimit caps the dashboard list. Zero means
	// [DefaultDashboardLimit].
	DashboardLimit int

	// Now is the clock age filters measure against. Nil means [time.Now].
	Now func() time.Time
}

func (m Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m Machine) dashboardLimit() int {
	if m.DashboardLimit > 0 {
		return m.DashboardLimit
	}
	return DefaultDashboardLimit
}

// Items returns the items listed by s, in display order. Views that do
// not list items return nil.
func (m Machine) Items(s State, snap *store.Snapshot) []store.Item {
	switch s.Kind {
	case Dashboard:
		if !s.Filter.Active() {
			return snap.DashboardItems(m.dashboardLimit())
		}
		return m.filtered(s.Filter, snap)
	case FeedItems:
		return snap.FeedItems(s.FeedID)
	case Search:
		return snap.Search(s.Query)
	default:
		return nil
	}
}

// filtered returns the newest items passing f, up to the dashboard limit.
func (m Machine) filtered(f Filter, snap *store.Snapshot) []store.Item {
	now := m.now()
	limit := m.dashboardLimit()
	var out []store.Item
	for _, it := range snap.DashboardItems(0) {
		feed, _ := snap.Feed(it.FeedID)
		if !f.Match(it, feed, now) {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Rows returns the selectable rows of s.
func (m Machine) Rows(s State, snap *store.Snapshot) []Row {
	if s.Kind == Categories {
		cats := snap.Categories()
		rows := make([]Row, len(cats))
		for i, c := range cats {
			rows[i] = Row{CategoryID: c.ID}
		}
		return rows
	}
	if s.Kind == FeedList {
		feeds := snap.Feeds()
		rows := make([]Row, len(feeds))
		for i, f := range feeds {
			rows[i] = Row{FeedID: f.ID}
		}
		return rows
	}

	items := m.Items(s, snap)
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{FeedID: it.FeedID, ItemID: it.ID}
	}
	return rows
}

// DetailLines returns the number of scrollable lines of an item's body.
func DetailLines(it store.Item) int {
	if it.Summary == "" {
		return 1
	}
	return strings.Count(it.Summary, "\n") + 1
}

// Update applies one key to s and returns the next state together with the
// effects the caller should run. The result is already reconciled against
// snap.
func (m Machine) Update(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	if k == KeyCtrlC {
		return s, []Effect{Quit{}}
	}

	var next State
	var effects []Effect
	filter := s.Filter
	switch {
	case s.Prompt != nil:
		next, effects = m.updatePrompt(s, k)
	case s.Filtering:
		next, effects = m.updateFilter(s, k, snap)
		filter = next.Filter
	case s.Kind == Search && s.Editing:
		next, effects = m.updateQuery(s, k)
	default:
		next, effects = m.updateView(s, k, snap)
	}
	next.Filter = filter
	return m.Reconcile(next, snap), effects
}

// updateFilter handles keys while the filter panel is open. Each letter
// steps one criterion to its next setting.
func (m Machine) updateFilter(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	f := s.Filter
	switch k {
	case KeyEsc, KeyEnter, "f":
		s.Filtering = false
		return s, nil
	case "c":
		cats := snap.Categories()
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = c.Name
		}
		f = f.nextCategory(names)
	case "t":
		f = f.nextAge()
	case "r":
		f = f.nextRead()
	case "a":
		f = f.nextAuthor()
	case "l":
		f = f.nextLength()
	case "x":
		f = Filter{}
	default:
		return s, nil
	}
	s.Filter = f
	s.Selected = 0
	return s, nil
}

func (m Machine) updatePrompt(s State, k Key) (State, []Effect) {
	p := *s.Prompt

	switch k {
	case KeyEsc:
		s.Prompt = nil
		return s, nil
	case KeyEnter:
		s.Prompt = nil
		input := strings.TrimSpace(p.Input)
		switch p.Kind {
		case PromptAddFeed:
			if input != "" {
				return s, []Effect{AddFeed{URL: input}}
			}
		case PromptCategory:
			return s, []Effect{SetCategory{FeedID: p.FeedID, Name: input}}
		case PromptNewCategory:
			if input != "" {
				return s, []Effect{CreateCategory{Name: input}}
			}
		case PromptRenameCategory:
			if input != "" {
				return s, []Effect{RenameCategory{ID: p.CategoryID, Name: input}}
			}
		}
		return s, nil
	case KeyBackspace:
		p.Input = dropLastRune(p.Input)
	default:
		if r, ok := k.Rune(); ok {
			p.Input += string(r)
		}
	}
	s.Prompt = &p
	return s, nil
}

func (m Machine) updateQuery(s State, k Key) (State, []Effect) {
	switch k {
	case KeyEsc:
		back, _ := s.back()
		return back, nil
	case KeyEnter:
		s.Editing = false
		s.Selected = 0
	case KeyBackspace:
		s.Query = dropLastRune(s.Query)
		s.Selected = 0
	case KeyUp:
		s.Selected--
	case KeyDown:
		s.Selected++
	default:
		if r, ok := k.Rune(); ok {
			s.Query += string(r)
			s.Selected = 0
		}
	}
	return s, nil
}

func (m Machine) updateView(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	switch k {
	case "q":
		return s, []Effect{Quit{}}
	case KeyTab:
		if s.Kind == Dashboard {
			return State{Kind: FeedList}, nil
		}
		return Initial(), nil
	case KeyHome:
		return Initial(), nil
	case "/":
		if s.Kind == Search {
			s.Editing = true
			return s, nil
		}
		return State{Kind: Search, Editing: true, Origin: s.origin()}, nil
	case "a":
		s.Prompt = &Prompt{Kind: PromptAddFeed}
		return s, nil
	case "R":
		return s, []Effect{RefreshAll{}}
	case KeyCtrlS:
		return s, []Effect{Save{}}
	case "f":
		if s.Kind == Dashboard {
			s.Filtering = true
		}
		return s, nil
	case KeyEsc, KeyBackspace, KeyLeft, "h":
		return m.goBack(s, snap), nil
	}

	switch s.Kind {
	case ItemDetail:
		return m.updateDetail(s, k, snap)
	case Categories:
		return m.updateCategories(s, k, snap)
	}
	return m.updateList(s, k, snap)
}

func (m Machine) updateDetail(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	it, ok := snap.Item(s.ItemID)
	if !ok {
		return s, nil
	}

	switch k {
	case KeyUp, "k":
		s.Scroll--
	case KeyDown, "j":
		s.Scroll++
	case KeyPgUp:
		s.Scroll -= pageSize
	case KeyPgDown, KeySpace:
		s.Scroll += pageSize
	case "g":
		s.Scroll = 0
	case "G", KeyEnd:
		s.Scroll = DetailLines(it) - 1
	case "o":
		if it.Link != "" {
			return s, []Effect{OpenURL{URL: it.Link}}
		}
	case "b":
		return s, []Effect{ToggleBookmark{ItemID: it.ID}}
	case "m":
		return s, []Effect{ToggleRead{ItemID: it.ID}}
	case "r":
		return s, []Effect{RefreshAll{}}
	}
	return s, nil
}

func (m Machine) updateList(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	rows := m.Rows(s, snap)
	var row Row
	hasRow := s.Selected >= 0 && s.Selected < len(rows)
	if hasRow {
		row = rows[s.Selected]
	}

	switch k {
	case KeyUp, "k":
		s.Selected--
	case KeyDown, "j":
		s.Selected++
	case KeyPgUp:
		s.Selected -= pageSize
	case KeyPgDown:
		s.Selected += pageSize
	case "g":
		s.Selected = 0
	case "G", KeyEnd:
		s.Selected = len(rows) - 1

	case KeyEnter, KeyRight, "l":
		if !hasRow {
			return s, nil
		}
		if s.Kind == FeedList {
			return State{Kind: FeedItems, FeedID: row.FeedID}, nil
		}
		return State{Kind: ItemDetail, ItemID: row.ItemID, Origin: s.origin()},
			[]Effect{MarkRead{ItemID: row.ItemID}}

	case "d":
		switch {
		case s.Kind == FeedList && hasRow:
			return s, []Effect{RemoveFeed{FeedID: row.FeedID}}
		case s.Kind == FeedItems:
			return m.goBack(s, snap), []Effect{RemoveFeed{FeedID: s.FeedID}}
		}

	case "r":
		switch {
		case s.Kind == FeedList && hasRow:
			return s, []Effect{RefreshFeed{FeedID: row.FeedID}}
		case s.Kind == FeedItems:
			return s, []Effect{RefreshFeed{FeedID: s.FeedID}}
		default:
			return s, []Effect{RefreshAll{}}
		}

	case "C":
		if s.Kind == FeedList {
			return State{Kind: Categories}, nil
		}

	case "c":
		feedID := s.FeedID
		if s.Kind == FeedList && hasRow {
			feedID = row.FeedID
		}
		if s.Kind != FeedList && s.Kind != FeedItems || feedID == "" {
			return s, nil
		}
		f, _ := snap.Feed(feedID)
		s.Prompt = &Prompt{Kind: PromptCategory, FeedID: feedID, Input: f.Category}

	case "o", "b", "m":
		if !hasRow || row.ItemID == "" {
			return s, nil
		}
		switch k {
		case "o":
			if it, ok := snap.Item(row.ItemID); ok && it.Link != "" {
				return s, []Effect{OpenURL{URL: it.Link}}
			}
		case "b":
			return s, []Effect{ToggleBookmark{ItemID: row.ItemID}}
		case "m":
			return s, []Effect{ToggleRead{ItemID: row.ItemID}}
		}
	}
	return s, nil
}

// updateCategories handles the category list: n creates, e or enter
// renames, d deletes.
func (m Machine) updateCategories(s State, k Key, snap *store.Snapshot) (State, []Effect) {
	rows := m.Rows(s, snap)
	var cat store.Category
	hasRow := s.Selected >= 0 && s.Selected < len(rows)
	if hasRow {
		cat = snap.Categories()[s.Selected]
	}

	switch k {
	case KeyUp, "k":
		s.Selected--
	case KeyDown, "j":
		s.Selected++
	case "g":
		s.Selected = 0
	case "G", KeyEnd:
		s.Selected = len(rows) - 1
	case "n":
		s.Prompt = &Prompt{Kind: PromptNewCategory}
	case "e", KeyEnter:
		if hasRow {
			s.Prompt = &Prompt{Kind: PromptRenameCategory, CategoryID: cat.ID, Input: cat.Name}
		}
	case "d":
		if hasRow {
			return s, []Effect{DeleteCategory{ID: cat.ID}}
		}
	}
	return s, nil
}

// goBack leaves s for its parent view. Leaving a feed's items selects that
// feed in the feed list.
func (m Machine) goBack(s State, snap *store.Snapshot) State {
	back, ok := s.back()
	if !ok {
		return s
	}
	if s.Kind == FeedItems {
		for i, f := range snap.Feeds() {
			if f.ID == s.FeedID {
				back.Selected = i
				break
			}
		}
	}
	return back
}

// Reconcile adjusts s after the store changed underneath it. Selections
// past the end of a shrunken list move to its last row; a view whose feed
// or item is gone falls back to its parent.
func (m Machine) Reconcile(s State, snap *store.Snapshot) State {
	switch s.Kind {
	case FeedItems:
		if _, ok := snap.Feed(s.FeedID); !ok {
			back := State{Kind: FeedList, Prompt: s.Prompt}
			return m.Reconcile(back, snap)
		}
	case ItemDetail:
		it, ok := snap.Item(s.ItemID)
		if !ok {
			back, _ := s.back()
			back.Prompt = s.Prompt
			return m.Reconcile(back, snap)
		}
		s.Scroll = clamp(s.Scroll, DetailLines(it))
	}

	if s.Origin != nil {
		o := m.Reconcile(*s.Origin, snap)
		s.Origin = &o
	}

	if s.Kind != Dashboard {
		s.Filtering = false
	}
	if s.Filter.Category != "" && !hasCategory(snap, s.Filter.Category) {
		s.Filter.Category = ""
	}

	if s.Prompt != nil && s.Prompt.Kind == PromptCategory {
		if _, ok := snap.Feed(s.Prompt.FeedID); !ok {
			s.Prompt = nil
		}
	}
	if s.Prompt != nil && s.Prompt.Kind == PromptRenameCategory && !hasCategoryID(snap, s.Prompt.CategoryID) {
		s.Prompt = nil
	}

	if s.Kind == ItemDetail {
		s.Selected = 0
	} else {
		s.Selected = clamp(s.Selected, len(m.Rows(s, snap)))
	}
	return s
}

func hasCategory(snap *store.Snapshot, name string) bool {
	for _, c := range snap.Categories() {
		if c.Name == name {
			return true
		}
	}
	return false
}

func hasCategoryID(snap *store.Snapshot, id store.CategoryID) bool {
	for _, c := range snap.Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// clamp bounds i to [0, max(0, n-1)].
func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
