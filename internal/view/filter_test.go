package view

import (
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/feedboard/internal/store"
)

// TestFilter_Match verifies each criterion on its own.
func TestFilter_Match(t *testing.T) {
	now := base
	day := 24 * time.Hour
	news := store.Feed{Category: "News"}
	plain := store.Feed{}

	tests := []struct {
		name   string
		filter Filter
		item   store.Item
		feed   store.Feed
		want   bool
	}{
		{name: "zero filter", item: store.Item{}, feed: plain, want: true},

		{name: "category match", filter: Filter{Category: "News"}, feed: news, want: true},
		{name: "category mismatch", filter: Filter{Category: "News"}, feed: plain, want: false},

		{name: "today fresh", filter: Filter{Age: AgeToday}, item: store.Item{Published: now.Add(-time.Hour)}, want: true},
		{name: "today stale", filter: Filter{Age: AgeToday}, item: store.Item{Published: now.Add(-25 * time.Hour)}, want: false},
		{name: "week", filter: Filter{Age: AgeWeek}, item: store.Item{Published: now.Add(-6 * day)}, want: true},
		{name: "week stale", filter: Filter{Age: AgeWeek}, item: store.Item{Published: now.Add(-8 * day)}, want: false},
		{name: "month", filter: Filter{Age: AgeMonth}, item: store.Item{Published: now.Add(-29 * day)}, want: true},
		{name: "month stale", filter: Filter{Age: AgeMonth}, item: store.Item{Published: now.Add(-31 * day)}, want: false},
		{name: "older", filter: Filter{Age: AgeOlder}, item: store.Item{Published: now.Add(-31 * day)}, want: true},
		{name: "older recent", filter: Filter{Age: AgeOlder}, item: store.Item{Published: now.Add(-day)}, want: false},
		{name: "age undated", filter: Filter{Age: AgeMonth}, item: store.Item{}, want: false},

		{name: "read only", filter: Filter{Read: ReadOnly}, item: store.Item{Read: true}, want: true},
		{name: "read only unread", filter: Filter{Read: ReadOnly}, item: store.Item{}, want: false},
		{name: "unread only", filter: Filter{Read: UnreadOnly}, item: store.Item{}, want: true},
		{name: "unread only read", filter: Filter{Read: UnreadOnly}, item: store.Item{Read: true}, want: false},

		{name: "with author", filter: Filter{Author: WithAuthor}, item: store.Item{Author: "Ann"}, want: true},
		{name: "with author missing", filter: Filter{Author: WithAuthor}, item: store.Item{}, want: false},
		{name: "without author", filter: Filter{Author: WithoutAuthor}, item: store.Item{}, want: true},
		{name: "without author named", filter: Filter{Author: WithoutAuthor}, item: store.Item{Author: "Ann"}, want: false},

		{name: "long enough", filter: Filter{MinLength: LengthShort}, item: store.Item{Summary: strings.Repeat("é", 100)}, want: true},
		{name: "too short", filter: Filter{MinLength: LengthShort}, item: store.Item{Summary: strings.Repeat("e", 99)}, want: false},

		{
			name:   "combined",
			filter: Filter{Category: "News", Read: UnreadOnly, Age: AgeToday},
			item:   store.Item{Published: now.Add(-time.Hour), Read: true},
			feed:   news,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.item, tt.feed, now); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestFilter_Toggles verifies that each toggle steps through its settings
// and wraps back to off.
func TestFilter_Toggles(t *testing.T) {
	tests := []struct {
		name string
		step func(Filter) Filter
		get  func(Filter) string
		want []string
	}{
		{
			name: "category",
			step: func(f Filter) Filter { return f.nextCategory([]string{"News", "Tech"}) },
			get:  func(f Filter) string { return f.Category },
			want: []string{"News", "Tech", ""},
		},
		{
			name: "age",
			step: Filter.nextAge,
			get:  func(f Filter) string { return f.Age.String() },
			want: []string{"today", "this week", "this month", "older than a month", "any"},
		},
		{
			name: "read",
			step: Filter.nextRead,
			get:  func(f Filter) string { return f.Read.String() },
			want: []string{"read", "unread", "any"},
		},
		{
			name: "author",
			step: Filter.nextAuthor,
			get:  func(f Filter) string { return f.Author.String() },
			want: []string{"with author", "no author", "any"},
		},
		{
			name: "length",
			step: Filter.nextLength,
			get: func(f Filter) string {
				if f.MinLength == 0 {
					return "any"
				}
				return lengthName(f.MinLength)
			},
			want: []string{"short", "medium", "long", "any"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Filter
			for i, want := range tt.want {
				f = tt.step(f)
				if got := tt.get(f); got != want {
					t.Errorf("step %d = %q, want %q", i+1, got, want)
				}
			}
			if f.Active() {
				t.Errorf("filter after a full cycle = %+v, want inactive", f)
			}
		})
	}
}

func TestFilter_NextCategoryGone(t *testing.T) {
	f := Filter{Category: "Removed"}.nextCategory([]string{"News"})
	if f.Category != "" {
		t.Errorf("nextCategory() from unknown = %q, want off", f.Category)
	}
	if f = (Filter{}).nextCategory(nil); f.Category != "" {
		t.Errorf("nextCategory() without categories = %q, want off", f.Category)
	}
}

func TestFilter_Summary(t *testing.T) {
	if got := (Filter{}).Summary(); got != "" {
		t.Errorf("Summary() of zero filter = %q, want empty", got)
	}
	f := Filter{Category: "News", Age: AgeWeek, Read: UnreadOnly, Author: WithAuthor, MinLength: LengthLong}
	want := "category: News, age: this week, status: unread, author: with author, length: long"
	if got := f.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

// filterFixture builds two categorized feeds whose items differ in age,
// read state, author and length.
func filterFixture(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	news, err := s.AddFeed("https://news.example.com/feed", "News")
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	tech, err := s.AddFeed("https://tech.example.com/feed", "Tech")
	if err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	s.MergeFetchResult(news, "News", []store.Entry{
		{Key: "n1", Title: "fresh", Published: base.Add(-time.Hour), Author: "Ann", Summary: strings.Repeat("x", 600)},
		{Key: "n2", Title: "old", Published: base.Add(-40 * 24 * time.Hour)},
	}, base)
	s.MergeFetchResult(tech, "Tech", []store.Entry{
		{Key: "t1", Title: "weekly", Published: base.Add(-3 * 24 * time.Hour), Summary: "short"},
	}, base)
	s.MarkRead(store.DeriveItemID(news, "n2"))
	return s
}

func titles(items []store.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

// TestUpdate_FilterMode verifies the filter panel keys and their effect on
// the dashboard.
func TestUpdate_FilterMode(t *testing.T) {
	snap := filterFixture(t).Snapshot()
	m := Machine{Now: func() time.Time { return base }}

	tests := []struct {
		name string
		keys []Key
		want []string
	}{
		{name: "unfiltered", want: []string{"fresh", "weekly", "old"}},
		{name: "category news", keys: []Key{"f", "c"}, want: []string{"fresh", "old"}},
		{name: "category tech", keys: []Key{"f", "c", "c"}, want: []string{"weekly"}},
		{name: "category off", keys: []Key{"f", "c", "c", "c"}, want: []string{"fresh", "weekly", "old"}},
		{name: "today", keys: []Key{"f", "t"}, want: []string{"fresh"}},
		{name: "this week", keys: []Key{"f", "t", "t"}, want: []string{"fresh", "weekly"}},
		{name: "older", keys: []Key{"f", "t", "t", "t", "t"}, want: []string{"old"}},
		{name: "read", keys: []Key{"f", "r"}, want: []string{"old"}},
		{name: "unread", keys: []Key{"f", "r", "r"}, want: []string{"fresh", "weekly"}},
		{name: "with author", keys: []Key{"f", "a"}, want: []string{"fresh"}},
		{name: "no author", keys: []Key{"f", "a", "a"}, want: []string{"weekly", "old"}},
		{name: "medium length", keys: []Key{"f", "l", "l"}, want: []string{"fresh"}},
		{name: "long length", keys: []Key{"f", "l", "l", "l"}, want: []string{}},
		{name: "combined", keys: []Key{"f", "c", "r", "r"}, want: []string{"fresh"}},
		{name: "clear", keys: []Key{"f", "c", "t", "r", "a", "l", "x"}, want: []string{"fresh", "weekly", "old"}},
		{name: "closed panel keeps filter", keys: []Key{"f", "t", KeyEsc}, want: []string{"fresh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, effects := press(m, Initial(), snap, tt.keys...)
			if len(effects) != 0 {
				t.Errorf("effects = %#v, want none", effects)
			}
			got := titles(m.Items(s, snap))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Items() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestUpdate_FilterPanel verifies opening and closing the panel and that
// the filter survives navigation.
func TestUpdate_FilterPanel(t *testing.T) {
	snap := filterFixture(t).Snapshot()
	m := Machine{Now: func() time.Time { return base }}

	s, _ := press(m, Initial(), snap, "f")
	if !s.Filtering {
		t.Fatal("Filtering = false after f, want true")
	}

	s, effects := press(m, s, snap, "q", "r")
	if !s.Filtering || len(effects) != 0 {
		t.Errorf("panel keys q r: Filtering = %v, effects = %v; want open panel, no effects", s.Filtering, effects)
	}
	if s.Filter.Read != ReadOnly {
		t.Errorf("Filter.Read = %v, want %v", s.Filter.Read, ReadOnly)
	}

	for _, k := range []Key{KeyEsc, KeyEnter, "f"} {
		closed, _ := press(m, s, snap, k)
		if closed.Filtering || closed.Filter != s.Filter {
			t.Errorf("%q: Filtering = %v, Filter = %+v; want closed keeping %+v", k, closed.Filtering, closed.Filter, s.Filter)
		}
	}

	s, _ = press(m, s, snap, KeyEsc, KeyTab, KeyTab)
	if s.Kind != Dashboard || s.Filter.Read != ReadOnly {
		t.Errorf("after tab tab: %v with %+v, want dashboard keeping the filter", s.Kind, s.Filter)
	}

	s, _ = press(m, s, snap, KeyEnter, KeyEsc)
	if s.Kind != Dashboard || s.Filter.Read != ReadOnly {
		t.Errorf("after detail and back: %v with %+v, want dashboard keeping the filter", s.Kind, s.Filter)
	}

	if s, _ = press(m, State{Kind: FeedList}, snap, "f"); s.Filtering {
		t.Error("f on the feed list opened the filter panel")
	}
}

// TestReconcile_FilterCategoryRemoved verifies that deleting the filtered
// category turns that criterion off.
func TestReconcile_FilterCategoryRemoved(t *testing.T) {
	st := filterFixture(t)
	m := Machine{Now: func() time.Time { return base }}
	s, _ := press(m, Initial(), st.Snapshot(), "f", "c", "c")
	if s.Filter.Category != "Tech" {
		t.Fatalf("Filter.Category = %q, want Tech", s.Filter.Category)
	}

	for _, c := range st.Snapshot().Categories() {
		if c.Name == "Tech" {
			if err := st.DeleteCategory(c.ID); err != nil {
				t.Fatalf("DeleteCategory() error = %v", err)
			}
		}
	}
	if got := m.Reconcile(s, st.Snapshot()); got.Filter.Category != "" {
		t.Errorf("Filter.Category = %q after delete, want off", got.Filter.Category)
	}
}
