package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/feedboard"
	"github.com/jpalmerr/feedboard/internal/view"
)

const dateLayout = "2006-01-02"

var help = map[string]string{
	view.Dashboard.String():  "enter open · tab feeds · / search · f filter · a add · R refresh all · q quit",
	view.FeedList.String():   "enter open · c category · C categories · d remove · r refresh · tab latest · q quit",
	view.FeedItems.String():  "enter open · m read · b bookmark · r refresh · d remove · esc back",
	view.ItemDetail.String(): "o open link · m read · b bookmark · j/k scroll · esc back",
	view.Search.String():     "/ edit query · enter open · esc back",
	view.Categories.String(): "n new · e rename · d delete · esc feeds",
}

// Render draws frame into a screen of the given size.
func Render(frame feedboard.RenderModel, width, height int, th Theme) string {
	if width < 20 {
		width = 20
	}
	if height < 6 {
		height = 6
	}

	header := []string{th.Header.Render(frame.Title)}
	if frame.View == view.Search.String() {
		cursor := ""
		if frame.Editing {
			cursor = "_"
		}
		header = append(header, th.Prompt.Render("Search: "+frame.Query+cursor))
	}

	var footer []string
	if fp := frame.Filter; fp != nil {
		footer = append(footer, th.Prompt.Render(filterLine(fp)))
	}
	if p := frame.Prompt; p != nil {
		footer = append(footer, th.Prompt.Render(p.Label+": "+p.Input+"_"))
	}
	if frame.Banner != "" {
		footer = append(footer, th.Banner.Render(frame.Banner))
	}
	footer = append(footer, th.Status.Render(statusLine(frame.Status)))
	footer = append(footer, th.Help.Render(help[frame.View]))

	bodyHeight := height - len(header) - len(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body []string
	switch {
	case frame.Detail != nil:
		body = detailLines(frame.Detail, width, bodyHeight, th)
	case len(frame.Rows) == 0 && frame.Status.Filter != "" && frame.View == view.Dashboard.String():
		body = []string{th.Status.Render("No items match the filter. Press f to adjust it.")}
	default:
		body = listLines(frame, width, bodyHeight, th)
	}
	for len(body) < bodyHeight {
		body = append(body, "")
	}

	clip := lipgloss.NewStyle().MaxWidth(width)
	lines := make([]string, 0, height)
	for _, group := range [][]string{header, body, footer} {
		for _, l := range group {
			lines = append(lines, clip.Render(l))
		}
	}
	return strings.Join(lines, "\n")
}

func statusLine(s feedboard.Status) string {
	line := fmt.Sprintf("%d feeds · %d unread · %d items · %d bookmarked", s.Feeds, s.Unread, s.Items, s.Bookmarked)
	if s.InFlight > 0 {
		line += fmt.Sprintf(" · fetching %d", s.InFlight)
	}
	if s.Filter != "" {
		line += " · filter: " + s.Filter
	}
	return line
}

func filterLine(fp *feedboard.FilterPanel) string {
	return fmt.Sprintf("Filter c category [%s] · t age [%s] · r status [%s] · a author [%s] · l length [%s] · x clear · showing %d/%d",
		fp.Category, fp.Age, fp.Read, fp.Author, fp.Length, fp.Shown, fp.Total)
}

// listLines draws the visible window of rows, keeping the selection on
// screen.
func listLines(frame feedboard.RenderModel, width, height int, th Theme) []string {
	if len(frame.Rows) == 0 {
		return []string{th.Status.Render(emptyText(frame.View))}
	}

	start := 0
	if frame.Selected >= height {
		start = frame.Selected - height + 1
	}
	end := min(start+height, len(frame.Rows))

	feeds := frame.View == view.FeedList.String() || frame.View == view.Categories.String()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := frame.Rows[i]
		var line string
		if feeds {
			line = feedLine(r, th)
		} else {
			line = itemLine(r, th)
		}
		if i == frame.Selected {
			line = th.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return lines
}

func emptyText(v string) string {
	switch v {
	case view.FeedList.String():
		return "No feeds. Press a to add one."
	case view.Search.String():
		return "No matches."
	case view.Categories.String():
		return "No categories. Press n to create one."
	default:
		return "No items yet. Press a to add a feed."
	}
}

func itemLine(r feedboard.Row, th Theme) string {
	mark := " "
	if !r.Read {
		mark = "●"
	}
	star := " "
	if r.Bookmarked {
		star = "★"
	}
	date := strings.Repeat(" ", len(dateLayout))
	if !r.Published.IsZero() {
		date = r.Published.Local().Format(dateLayout)
	}

	title := th.Read.Render(r.Title)
	if !r.Read {
		title = th.Unread.Render(r.Title)
	}
	return fmt.Sprintf("%s%s %s %s  %s", mark, star, date, title, th.Source.Render(r.Source))
}

func feedLine(r feedboard.Row, th Theme) string {
	var b strings.Builder
	if r.Refreshing {
		b.WriteString("↻ ")
	} else {
		b.WriteString("  ")
	}
	b.WriteString(th.Unread.Render(r.Title))
	if r.Unread > 0 {
		fmt.Fprintf(&b, " (%d)", r.Unread)
	}
	if r.Source != "" {
		b.WriteString("  " + th.Source.Render("["+r.Source+"]"))
	}
	if r.Error != "" {
		b.WriteString("  " + th.Error.Render(r.Error))
	}
	return b.String()
}

// detailLines draws the item header and the summary from the scroll
// offset. Long summary lines wrap.
func detailLines(d *feedboard.Detail, width, height int, th Theme) []string {
	meta := d.Feed
	if d.Author != "" {
		meta += " · " + d.Author
	}
	if !d.Published.IsZero() {
		meta += " · " + d.Published.Local().Format(dateLayout)
	}
	if d.Bookmarked {
		meta += " · ★"
	}

	lines := []string{th.Selected.Render(d.Title), th.Source.Render(meta)}
	if d.Link != "" {
		lines = append(lines, th.Status.Render(d.Link))
	}
	lines = append(lines, "")

	wrap := lipgloss.NewStyle().Width(width)
	for i := d.Scroll; i < len(d.Lines) && len(lines) < height; i++ {
		if d.Lines[i] == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, strings.Split(wrap.Render(d.Lines[i]), "\n")...)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}
