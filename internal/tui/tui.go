// Package tui draws the feedboard reader in a terminal with bubbletea.
//
// The model holds no reader state of its own. It collects key presses,
// hands them to the application on every tick, and draws the frame the
// application returns.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/feedboard"
	"github.com/jpalmerr/feedboard/internal/view"
)

// DefaultTickRate is used when Options.TickRate is zero.
const DefaultTickRate = 100 * time.Millisecond

// Ticker advances the application. *feedboard.App implements it.
type Ticker interface {
	Tick(elapsed time.Duration, events []view.Key) feedboard.RenderModel
}

// Options configure the terminal front end.
type Options struct {
	TickRate time.Duration
	Theme    Theme
}

type tickMsg time.Time

// Model is the bubbletea model wrapping a [Ticker].
type Model struct {
	app      Ticker
	tickRate time.Duration
	theme    Theme
	now      func() time.Time

	width   int
	height  int
	pending []view.Key
	last    time.Time
	frame   feedboard.RenderModel
}

// NewModel creates a model driving app.
func NewModel(app Ticker, opts Options) Model {
	rate := opts.TickRate
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return Model{
		app:      app,
		tickRate: rate,
		theme:    opts.Theme,
		now:      time.Now,
		width:    80,
		height:   24,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init requests the first frame. Each tick schedules the next one.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(m.now()) }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.pending = append(m.pending, translate(msg))
		m = m.advance()
		if m.frame.Quit {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m = m.advance()
		if m.frame.Quit {
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

// advance runs one application tick with the pending keys.
func (m Model) advance() Model {
	now := m.now()
	var elapsed time.Duration
	if !m.last.IsZero() {
		elapsed = now.Sub(m.last)
		if elapsed < 0 {
			elapsed = 0
		}
	}
	m.last = now

	keys := m.pending
	m.pending = nil
	m.frame = m.app.Tick(elapsed, keys)
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.frame.Quit {
		return ""
	}
	return Render(m.frame, m.width, m.height, m.theme)
}

// translate maps a bubbletea key to the name the view machine uses.
func translate(msg tea.KeyMsg) view.Key {
	return view.Key(msg.String())
}

// Run runs the terminal front end until the user quits or ctx is done.
func Run(ctx context.Context, app Ticker, opts Options) error {
	p := tea.NewProgram(NewModel(app, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
