package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles used to draw a frame.
type Theme struct {
	Header   lipgloss.Style
	Status   lipgloss.Style
	Selected lipgloss.Style
	Unread   lipgloss.Style
	Read     lipgloss.Style
	Source   lipgloss.Style
	Error    lipgloss.Style
	Banner   lipgloss.Style
	Prompt   lipgloss.Style
	Help     lipgloss.Style
}

// Dark is the theme for dark terminal backgrounds.
func Dark() Theme {
	return Theme{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Unread:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Read:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Source:   lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Banner:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Light is the theme for light terminal backgrounds.
func Light() Theme {
	return Theme{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("25")).Padding(0, 1),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("161")),
		Unread:   lipgloss.NewStyle().Foreground(lipgloss.Color("232")),
		Read:     lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		Source:   lipgloss.NewStyle().Foreground(lipgloss.Color("24")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		Banner:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("166")).Padding(0, 1),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// ThemeFor returns the theme with the given name. Unknown names get
// [Dark].
func ThemeFor(name string) Theme {
	if name == "light" {
		return Light()
	}
	return Dark()
}
