package view

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/feedboard/internal/store"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture builds a store with feeds items, newest item first within each
// feed.
func fixture(t *testing.T, feeds, items int) (*store.MemoryStore, []store.FeedID) {
	t.Helper()
	s := store.NewMemoryStore()
	ids := make([]store.FeedID, feeds)
	for f := 0; f < feeds; f++ {
		id, err := s.AddFeed(fmt.Sprintf("https://host%d.example.com/feed", f), "")
		if err != nil {
			t.Fatalf("AddFeed() error = %v", err)
		}
		ids[f] = id

		entries := make([]store.Entry, items)
		for i := 0; i < items; i++ {
			entries[i] = store.Entry{
				Key:       fmt.Sprintf("f%d-i%d", f, i),
				Title:     fmt.Sprintf("Feed %d item %d", f, i),
				Published: base.Add(-time.Duration(f*items+i) * time.Minute),
				Summary:   "line one\nline two\nline three",
				Link:      fmt.Sprintf("https://host%d.example.com/%d", f, i),
			}
		}
		if _, err := s.MergeFetchResult(id, fmt.Sprintf("Feed %d", f), entries, base); err != nil {
			t.Fatalf("MergeFetchResult() error = %v", err)
		}
	}
	return s, ids
}

func press(m Machine, s State, snap *store.Snapshot, keys ...Key) (State, []Effect) {
	var all []Effect
	for _, k := range keys {
		var effects []Effect
		s, effects = m.Update(s, k, snap)
		all = append(all, effects...)
	}
	return s, all
}

// TestUpdate_Navigation verifies movement between the views.
func TestUpdate_Navigation(t *testing.T) {
	st, ids := fixture(t, 2, 3)
	snap := st.Snapshot()
	m := Machine{}

	s, _ := press(m, Initial(), snap, KeyTab)
	if s.Kind != FeedList {
		t.Fatalf("tab from dashboard: Kind = %v, want %v", s.Kind, FeedList)
	}

	s, _ = press(m, s, snap, KeyDown, KeyEnter)
	if s.Kind != FeedItems || s.FeedID != ids[1] {
		t.Fatalf("enter on feed row: got %v/%s, want %v/%s", s.Kind, s.FeedID, FeedItems, ids[1])
	}

	s, effects := press(m, s, snap, KeyDown, KeyEnter)
	if s.Kind != ItemDetail {
		t.Fatalf("enter on item row: Kind = %v, want %v", s.Kind, ItemDetail)
	}
	want := store.DeriveItemID(ids[1], "f1-i1")
	if s.ItemID != want {
		t.Errorf("ItemID = %s, want %s", s.ItemID, want)
	}
	if !reflect.DeepEqual(effects, []Effect{MarkRead{ItemID: want}}) {
		t.Errorf("effects = %#v, want MarkRead", effects)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != FeedItems || s.Selected != 1 {
		t.Errorf("esc from detail: got %v selected %d, want %v selected 1", s.Kind, s.Selected, FeedItems)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != FeedList || s.Selected != 1 {
		t.Errorf("esc from feed items: got %v selected %d, want %v selected 1", s.Kind, s.Selected, FeedList)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != Dashboard {
		t.Errorf("esc from feed list: Kind = %v, want %v", s.Kind, Dashboard)
	}

	s, effects = press(m, s, snap, KeyEsc)
	if s.Kind != Dashboard || len(effects) != 0 {
		t.Errorf("esc on dashboard: got %v %v, want dashboard and no effects", s.Kind, effects)
	}
}

// TestUpdate_DoesNotModifyInput verifies that states are treated as values.
func TestUpdate_DoesNotModifyInput(t *testing.T) {
	st, _ := fixture(t, 1, 3)
	snap := st.Snapshot()
	m := Machine{}

	in := State{Kind: Dashboard, Prompt: &Prompt{Kind: PromptAddFeed, Input: "http"}}
	press(m, in, snap, "s")
	if in.Prompt.Input != "http" {
		t.Errorf("input prompt modified: %q", in.Prompt.Input)
	}
}

// TestUpdate_SelectionBounds verifies that movement stops at both ends.
func TestUpdate_SelectionBounds(t *testing.T) {
	st, _ := fixture(t, 1, 3)
	snap := st.Snapshot()
	m := Machine{}

	s, _ := press(m, Initial(), snap, KeyUp, KeyUp)
	if s.Selected != 0 {
		t.Errorf("Selected after up = %d, want 0", s.Selected)
	}
	s, _ = press(m, s, snap, KeyDown, KeyDown, KeyDown, KeyDown, KeyPgDown)
	if s.Selected != 2 {
		t.Errorf("Selected after down = %d, want 2", s.Selected)
	}
	s, _ = press(m, s, snap, "g")
	if s.Selected != 0 {
		t.Errorf("Selected after g = %d, want 0", s.Selected)
	}
	s, _ = press(m, s, snap, "G")
	if s.Selected != 2 {
		t.Errorf("Selected after G = %d, want 2", s.Selected)
	}

	empty := store.NewMemoryStore().Snapshot()
	s, _ = press(m, Initial(), empty, KeyDown, "G", KeyEnter)
	if s.Kind != Dashboard || s.Selected != 0 {
		t.Errorf("empty dashboard: got %v selected %d", s.Kind, s.Selected)
	}
}

// TestUpdate_DashboardLimit verifies the dashboard row cap.
func TestUpdate_DashboardLimit(t *testing.T) {
	st, _ := fixture(t, 2, 10)
	snap := st.Snapshot()

	if got := len(Machine{DashboardLimit: 5}.Rows(Initial(), snap)); got != 5 {
		t.Errorf("Rows() with limit 5 = %d, want 5", got)
	}
	if got := len(Machine{}.Rows(Initial(), snap)); got != 20 {
		t.Errorf("Rows() with default limit = %d, want 20", got)
	}
}

// TestUpdate_Effects verifies the keys that request side effects.
func TestUpdate_Effects(t *testing.T) {
	st, ids := fixture(t, 2, 2)
	snap := st.Snapshot()
	m := Machine{}

	top := snap.DashboardItems(DefaultDashboardLimit)[0]
	feedItems := State{Kind: FeedItems, FeedID: ids[0]}
	feedList := State{Kind: FeedList, Selected: 1}
	detail := State{Kind: ItemDetail, ItemID: top.ID, Origin: &State{Kind: Dashboard}}

	tests := []struct {
		name  string
		state State
		key   Key
		want  []Effect
	}{
		{name: "quit", state: Initial(), key: "q", want: []Effect{Quit{}}},
		{name: "ctrl+c", state: detail, key: KeyCtrlC, want: []Effect{Quit{}}},
		{name: "refresh all", state: Initial(), key: "r", want: []Effect{RefreshAll{}}},
		{name: "refresh all upper", state: feedItems, key: "R", want: []Effect{RefreshAll{}}},
		{name: "refresh feed row", state: feedList, key: "r", want: []Effect{RefreshFeed{FeedID: ids[1]}}},
		{name: "refresh current feed", state: feedItems, key: "r", want: []Effect{RefreshFeed{FeedID: ids[0]}}},
		{name: "open", state: Initial(), key: "o", want: []Effect{OpenURL{URL: top.Link}}},
		{name: "open detail", state: detail, key: "o", want: []Effect{OpenURL{URL: top.Link}}},
		{name: "bookmark", state: Initial(), key: "b", want: []Effect{ToggleBookmark{ItemID: top.ID}}},
		{name: "bookmark detail", state: detail, key: "b", want: []Effect{ToggleBookmark{ItemID: top.ID}}},
		{name: "toggle read", state: Initial(), key: "m", want: []Effect{ToggleRead{ItemID: top.ID}}},
		{name: "remove feed row", state: feedList, key: "d", want: []Effect{RemoveFeed{FeedID: ids[1]}}},
		{name: "remove current feed", state: feedItems, key: "d", want: []Effect{RemoveFeed{FeedID: ids[0]}}},
		{name: "remove on dashboard", state: Initial(), key: "d"},
		{name: "save", state: Initial(), key: KeyCtrlS, want: []Effect{Save{}}},
		{name: "bookmark feed row", state: feedList, key: "b"},
		{name: "unknown key", state: Initial(), key: "z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := m.Update(tt.state, tt.key, snap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Update(%q) effects = %#v, want %#v", tt.key, got, tt.want)
			}
		})
	}
}

// TestUpdate_AddFeedPrompt verifies text entry in the add prompt.
func TestUpdate_AddFeedPrompt(t *testing.T) {
	snap := store.NewMemoryStore().Snapshot()
	m := Machine{}

	s, _ := press(m, Initial(), snap, "a")
	if s.Prompt == nil || s.Prompt.Kind != PromptAddFeed {
		t.Fatalf("Prompt = %+v, want add-feed prompt", s.Prompt)
	}

	// Keys that would otherwise quit or navigate are typed into the prompt.
	s, effects := press(m, s, snap, "h", "t", "q", KeyBackspace, "t", "p", ":", "/", "/", "x")
	if len(effects) != 0 {
		t.Errorf("typing produced effects %v", effects)
	}
	if s.Prompt.Input != "http://x" {
		t.Errorf("Input = %q, want %q", s.Prompt.Input, "http://x")
	}

	s, effects = press(m, s, snap, KeyEnter)
	if s.Prompt != nil {
		t.Error("Prompt still open after enter")
	}
	if !reflect.DeepEqual(effects, []Effect{AddFeed{URL: "http://x"}}) {
		t.Errorf("effects = %#v, want AddFeed", effects)
	}

	s, _ = press(m, s, snap, "a", "x", KeyEsc)
	if s.Prompt != nil || s.Kind != Dashboard {
		t.Errorf("esc: got %v prompt %+v, want dashboard without prompt", s.Kind, s.Prompt)
	}

	_, effects = press(m, s, snap, "a", " ", KeyEnter)
	if len(effects) != 0 {
		t.Errorf("blank input effects = %v, want none", effects)
	}
}

// TestUpdate_CategoryPrompt verifies that the category prompt starts with
// the current category and emits SetCategory.
func TestUpdate_CategoryPrompt(t *testing.T) {
	st, ids := fixture(t, 1, 1)
	if err := st.SetFeedCategory(ids[0], "News"); err != nil {
		t.Fatalf("SetFeedCategory() error = %v", err)
	}
	snap := st.Snapshot()
	m := Machine{}

	s, _ := press(m, State{Kind: FeedList}, snap, "c")
	if s.Prompt == nil || s.Prompt.Kind != PromptCategory || s.Prompt.Input != "News" {
		t.Fatalf("Prompt = %+v, want category prompt with News", s.Prompt)
	}

	s, effects := press(m, s, snap, "!", KeyEnter)
	want := []Effect{SetCategory{FeedID: ids[0], Name: "News!"}}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("effects = %#v, want %#v", effects, want)
	}

	_, effects = press(m, s, snap, "c", KeyBackspace, KeyBackspace, KeyBackspace, KeyBackspace, KeyEnter)
	want = []Effect{SetCategory{FeedID: ids[0], Name: ""}}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("clear effects = %#v, want %#v", effects, want)
	}

	if s, _ := press(m, Initial(), snap, "c"); s.Prompt != nil {
		t.Errorf("c on dashboard opened prompt %+v", s.Prompt)
	}
}

// TestUpdate_CategoryManagement verifies the create, rename and delete
// prompts of the category list.
func TestUpdate_CategoryManagement(t *testing.T) {
	st, ids := fixture(t, 1, 1)
	if err := st.SetFeedCategory(ids[0], "News"); err != nil {
		t.Fatalf("SetFeedCategory() error = %v", err)
	}
	tech, err := st.CreateCategory("Tech")
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	snap := st.Snapshot()
	news := snap.Categories()[0]
	m := Machine{}

	s, _ := press(m, State{Kind: FeedList}, snap, "C")
	if s.Kind != Categories || len(m.Rows(s, snap)) != 2 {
		t.Fatalf("C on feed list = %v with %d rows, want %v with 2 rows", s.Kind, len(m.Rows(s, snap)), Categories)
	}

	tests := []struct {
		name string
		keys []Key
		want []Effect
	}{
		{name: "create", keys: []Key{"n", "S", "c", "i", KeyEnter}, want: []Effect{CreateCategory{Name: "Sci"}}},
		{name: "create blank", keys: []Key{"n", " ", KeyEnter}},
		{name: "create cancelled", keys: []Key{"n", "x", KeyEsc}},
		{name: "rename", keys: []Key{"e", "!", KeyEnter}, want: []Effect{RenameCategory{ID: news.ID, Name: "News!"}}},
		{name: "rename with enter", keys: []Key{KeyDown, KeyEnter, "2", KeyEnter}, want: []Effect{RenameCategory{ID: tech.ID, Name: "Tech2"}}},
		{name: "rename blank", keys: []Key{"e", KeyBackspace, KeyBackspace, KeyBackspace, KeyBackspace, KeyEnter}},
		{name: "delete", keys: []Key{KeyDown, "d"}, want: []Effect{DeleteCategory{ID: tech.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := press(m, s, snap, tt.keys...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("effects = %#v, want %#v", got, tt.want)
			}
		})
	}

	back, _ := press(m, s, snap, KeyEsc)
	if back.Kind != FeedList {
		t.Errorf("esc from categories: Kind = %v, want %v", back.Kind, FeedList)
	}

	renaming, _ := press(m, s, snap, KeyDown, "e")
	if err := st.DeleteCategory(tech.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if got := m.Reconcile(renaming, st.Snapshot()); got.Prompt != nil || got.Selected != 0 {
		t.Errorf("after delete: Prompt = %+v, Selected = %d; want closed prompt on row 0", got.Prompt, got.Selected)
	}
}

// TestUpdate_Search verifies query editing and result navigation.
func TestUpdate_Search(t *testing.T) {
	st, _ := fixture(t, 2, 3)
	snap := st.Snapshot()
	m := Machine{}

	s, _ := press(m, State{Kind: FeedList, Selected: 1}, snap, "/")
	if s.Kind != Search || !s.Editing {
		t.Fatalf("/: got %v editing %v, want editing search", s.Kind, s.Editing)
	}

	s, _ = press(m, s, snap, "F", "E", "E", "D", " ", "1")
	if s.Query != "FEED 1" {
		t.Errorf("Query = %q, want %q", s.Query, "FEED 1")
	}
	if got := len(m.Rows(s, snap)); got != 3 {
		t.Errorf("Rows() = %d, want 3", got)
	}

	s, _ = press(m, s, snap, KeyEnter, "j", "j")
	if s.Editing || s.Selected != 2 {
		t.Errorf("after enter and j: editing %v selected %d", s.Editing, s.Selected)
	}

	s, effects := press(m, s, snap, KeyEnter)
	if s.Kind != ItemDetail || len(effects) != 1 {
		t.Fatalf("enter on result: got %v effects %v", s.Kind, effects)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != Search || s.Query != "FEED 1" || s.Selected != 2 {
		t.Errorf("back from detail: got %+v", s)
	}

	s, _ = press(m, s, snap, "/", KeyBackspace, KeyBackspace)
	if !s.Editing || s.Query != "FEED" || s.Selected != 0 {
		t.Errorf("re-edit: got editing %v query %q selected %d", s.Editing, s.Query, s.Selected)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != FeedList || s.Selected != 1 {
		t.Errorf("esc from search: got %v selected %d, want %v selected 1", s.Kind, s.Selected, FeedList)
	}
}

// TestUpdate_DetailScroll verifies scrolling bounds in the item view.
func TestUpdate_DetailScroll(t *testing.T) {
	st, _ := fixture(t, 1, 1)
	snap := st.Snapshot()
	m := Machine{}

	it := snap.DashboardItems(1)[0]
	s := State{Kind: ItemDetail, ItemID: it.ID}

	s, _ = press(m, s, snap, KeyDown, KeyDown, KeyDown, KeyDown)
	if s.Scroll != 2 {
		t.Errorf("Scroll after down = %d, want 2", s.Scroll)
	}
	s, _ = press(m, s, snap, KeyPgUp)
	if s.Scroll != 0 {
		t.Errorf("Scroll after pgup = %d, want 0", s.Scroll)
	}
	s, _ = press(m, s, snap, "G")
	if s.Scroll != 2 {
		t.Errorf("Scroll after G = %d, want 2", s.Scroll)
	}

	s, _ = press(m, s, snap, KeyEsc)
	if s.Kind != Dashboard {
		t.Errorf("esc without origin: Kind = %v, want %v", s.Kind, Dashboard)
	}
}

// TestReconcile verifies that views fall back when the store shrinks.
func TestReconcile(t *testing.T) {
	st, ids := fixture(t, 2, 3)
	m := Machine{}

	last := State{Kind: Dashboard, Selected: 5}
	detail := State{
		Kind:   ItemDetail,
		ItemID: store.DeriveItemID(ids[1], "f1-i0"),
		Origin: &State{Kind: FeedItems, FeedID: ids[1], Selected: 2},
	}
	feedItems := State{Kind: FeedItems, FeedID: ids[1], Selected: 2}

	if err := st.RemoveFeed(ids[1]); err != nil {
		t.Fatalf("RemoveFeed() error = %v", err)
	}
	snap := st.Snapshot()

	if got := m.Reconcile(last, snap); got.Selected != 2 {
		t.Errorf("dashboard Selected = %d, want 2", got.Selected)
	}

	got := m.Reconcile(detail, snap)
	if got.Kind != FeedList || got.Selected != 0 {
		t.Errorf("detail of removed feed: got %v selected %d, want %v selected 0", got.Kind, got.Selected, FeedList)
	}

	got = m.Reconcile(feedItems, snap)
	if got.Kind != FeedList {
		t.Errorf("items of removed feed: Kind = %v, want %v", got.Kind, FeedList)
	}

	prompt := State{Kind: FeedList, Prompt: &Prompt{Kind: PromptCategory, FeedID: ids[1]}}
	if got := m.Reconcile(prompt, snap); got.Prompt != nil {
		t.Errorf("category prompt for removed feed kept: %+v", got.Prompt)
	}
}

// TestUpdate_RemoveCurrentFeed verifies that removing the open feed
// returns to the feed list.
func TestUpdate_RemoveCurrentFeed(t *testing.T) {
	st, ids := fixture(t, 2, 1)
	m := Machine{}

	s, effects := m.Update(State{Kind: FeedItems, FeedID: ids[1]}, "d", st.Snapshot())
	if s.Kind != FeedList || s.Selected != 1 {
		t.Errorf("Update(d) = %v selected %d, want %v selected 1", s.Kind, s.Selected, FeedList)
	}
	if err := st.RemoveFeed(effects[0].(RemoveFeed).FeedID); err != nil {
		t.Fatalf("RemoveFeed() error = %v", err)
	}
	if s = m.Reconcile(s, st.Snapshot()); s.Selected != 0 {
		t.Errorf("Selected after removal = %d, want 0", s.Selected)
	}
}

// TestUpdate_RandomSequences verifies that the selection always stays
// inside the current list while keys and store mutations are interleaved.
func TestUpdate_RandomSequences(t *testing.T) {
	keys := []Key{
		KeyUp, KeyDown, KeyEnter, KeyEsc, KeyTab, KeyHome, KeyPgUp, KeyPgDown,
		"g", "G", "j", "k", "/", "a", "c", "d", "b", "m", "x", "1", KeyBackspace,
		"f", "t", "l", "C", "n", "e",
	}
	rng := rand.New(rand.NewSource(42))
	m := Machine{DashboardLimit: 8}

	st, _ := fixture(t, 4, 5)
	s := Initial()
	for step := 0; step < 2000; step++ {
		snap := st.Snapshot()
		var effects []Effect
		s, effects = m.Update(s, keys[rng.Intn(len(keys))], snap)

		for _, e := range effects {
			switch e := e.(type) {
			case RemoveFeed:
				_ = st.RemoveFeed(e.FeedID)
			case ToggleBookmark:
				_, _ = st.ToggleBookmark(e.ItemID)
			}
		}
		if rng.Intn(50) == 0 {
			n := len(st.Snapshot().Feeds())
			id, err := st.AddFeed(fmt.Sprintf("https://new%d.example.com/feed", step), "")
			if err == nil {
				_, _ = st.MergeFetchResult(id, "", []store.Entry{{Key: "k", Title: strings.Repeat("n", n+1)}}, base)
			}
		}

		snap = st.Snapshot()
		s = m.Reconcile(s, snap)
		rows := len(m.Rows(s, snap))
		if s.Selected < 0 || (rows > 0 && s.Selected >= rows) || (rows == 0 && s.Selected != 0) {
			t.Fatalf("step %d: Selected = %d with %d rows in %v", step, s.Selected, rows, s.Kind)
		}
		if s.Kind == ItemDetail {
			if _, ok := snap.Item(s.ItemID); !ok {
				t.Fatalf("step %d: detail of missing item %s", step, s.ItemID)
			}
		}
		if s.Kind == FeedItems {
			if _, ok := snap.Feed(s.FeedID); !ok {
				t.Fatalf("step %d: items of missing feed %s", step, s.FeedID)
			}
		}
	}
}

// TestKindString verifies view names.
func TestKindString(t *testing.T) {
	if got := FeedList.String(); got != "Feeds" {
		t.Errorf("FeedList.String() = %q, want %q", got, "Feeds")
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Errorf("Kind(42).String() = %q, want %q", got, "Kind(42)")
	}
}

// TestKeyRune verifies printable key detection.
func TestKeyRune(t *testing.T) {
	tests := []struct {
		key  Key
		want bool
	}{
		{"a", true},
		{"é", true},
		{" ", true},
		{"enter", false},
		{"ctrl+c", false},
		{"", false},
		{"\t", false},
	}
	for _, tt := range tests {
		if _, got := tt.key.Rune(); got != tt.want {
			t.Errorf("Key(%q).Rune() ok = %v, want %v", tt.key, got, tt.want)
		}
	}
}
