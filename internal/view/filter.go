package view

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jpalmerr/feedboard/internal/store"
)

// Age restricts items by how long ago they were published.
type Age int

const (
	AgeAny Age = iota
	AgeToday
	AgeWeek
	AgeMonth
	AgeOlder
)

func (a Age) String() string {
	switch a {
	case AgeToday:
		return "today"
	case AgeWeek:
		return "this week"
	case AgeMonth:
		return "this month"
	case AgeOlder:
		return "older than a month"
	default:
		return "any"
	}
}

// ReadState restricts items by their read flag.
type ReadState int

const (
	ReadAny ReadState = iota
	ReadOnly
	UnreadOnly
)

func (r ReadState) String() string {
	switch r {
	case ReadOnly:
		return "read"
	case UnreadOnly:
		return "unread"
	default:
		return "any"
	}
}

// AuthorState restricts items by whether they name an author.
type AuthorState int

const (
	AuthorAny AuthorState = iota
	WithAuthor
	WithoutAuthor
)

func (a AuthorState) String() string {
	switch a {
	case WithAuthor:
		return "with author"
	case WithoutAuthor:
		return "no author"
	default:
		return "any"
	}
}

// Minimum summary lengths, in characters, for the length filter.
const (
	LengthShort  = 100
	LengthMedium = 500
	LengthLong   = 1000
)

var lengthSteps = []int{0, LengthShort, LengthMedium, LengthLong}

// Filter narrows the dashboard. The zero value passes every item.
type Filter struct {
	// Category keeps items whose feed is in the named category.
	Category string

	Age    Age
	Read   ReadState
	Author AuthorState

	// MinLength keeps items whose summary has at least this many
	// characters.
	MinLength int
}

// Active reports whether any criterion is set.
func (f Filter) Active() bool {
	return f != Filter{}
}

// Match reports whether it, an item of feed, passes the filter at time now.
// Undated items never pass an age criterion.
func (f Filter) Match(it store.Item, feed store.Feed, now time.Time) bool {
	if f.Category != "" && feed.Category != f.Category {
		return false
	}

	if f.Age != AgeAny {
		if it.Published.IsZero() {
			return false
		}
		age := now.Sub(it.Published)
		day := 24 * time.Hour
		switch f.Age {
		case AgeToday:
			if age > day {
				return false
			}
		case AgeWeek:
			if age > 7*day {
				return false
			}
		case AgeMonth:
			if age > 30*day {
				return false
			}
		case AgeOlder:
			if age <= 30*day {
				return false
			}
		}
	}

	switch f.Read {
	case ReadOnly:
		if !it.Read {
			return false
		}
	case UnreadOnly:
		if it.Read {
			return false
		}
	}

	switch f.Author {
	case WithAuthor:
		if it.Author == "" {
			return false
		}
	case WithoutAuthor:
		if it.Author != "" {
			return false
		}
	}

	if f.MinLength > 0 && utf8.RuneCountInString(it.Summary) < f.MinLength {
		return false
	}
	return true
}

// Summary describes the active criteria, or is empty when none are set.
func (f Filter) Summary() string {
	var parts []string
	if f.Category != "" {
		parts = append(parts, "category: "+f.Category)
	}
	if f.Age != AgeAny {
		parts = append(parts, "age: "+f.Age.String())
	}
	if f.Read != ReadAny {
		parts = append(parts, "status: "+f.Read.String())
	}
	if f.Author != AuthorAny {
		parts = append(parts, "author: "+f.Author.String())
	}
	if f.MinLength > 0 {
		parts = append(parts, "length: "+f.Length())
	}
	return strings.Join(parts, ", ")
}

// Length names the length criterion.
func (f Filter) Length() string {
	if f.MinLength == 0 {
		return "any"
	}
	return lengthName(f.MinLength)
}

func lengthName(n int) string {
	switch n {
	case LengthShort:
		return "short"
	case LengthMedium:
		return "medium"
	case LengthLong:
		return "long"
	default:
		return "custom"
	}
}

// nextCategory cycles the category criterion through names and back to
// none.
func (f Filter) nextCategory(names []string) Filter {
	if len(names) == 0 {
		f.Category = ""
		return f
	}
	if f.Category == "" {
		f.Category = names[0]
		return f
	}
	for i, name := range names {
		if name == f.Category {
			if i+1 < len(names) {
				f.Category = names[i+1]
			} else {
				f.Category = ""
			}
			return f
		}
	}
	f.Category = ""
	return f
}

func (f Filter) nextAge() Filter {
	f.Age = (f.Age + 1) % (AgeOlder + 1)
	return f
}

func (f Filter) nextRead() Filter {
	f.Read = (f.Read + 1) % (UnreadOnly + 1)
	return f
}

func (f Filter) nextAuthor() Filter {
	f.Author = (f.Author + 1) % (WithoutAuthor + 1)
	return f
}

func (f Filter) nextLength() Filter {
	for i, n := range lengthSteps {
		if n == f.MinLength {
			f.MinLength = lengthSteps[(i+1)%len(lengthSteps)]
			return f
		}
	}
	f.MinLength = 0
	return f
}
