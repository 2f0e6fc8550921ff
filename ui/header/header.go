package header

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"js8msg/config"
	"js8msg/js8"
)

// Model holds the header's state
type Model struct {
	width    int
	settings config.Settings
}

// New creates a new header model
func New(settings config.Settings) Model {
	return Model{
		width:    80, // Default width, will be updated
		settings: settings,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case config.Settings:
		m.settings = msg
	}
	return m, nil
}

// Title is the header text without styling.
func (m Model) Title() string {
	parts := []string{"js8msg"}
	call := m.settings.MyCall()
	if call == "" {
		parts = append(parts, "(no callsign)")
	} else {
		parts = append(parts, call)
	}

	if grid := m.settings.MyGrid(); grid != "" {
		if lon, lat, err := js8.ParseGrid(grid); err == nil {
			grid += fmt.Sprintf(" (%s %s)", hemi(lat, "N", "S"), hemi(lon, "E", "W"))
		}
		parts = append(parts, grid)
	}

	if !m.settings.AutoreplyEnabled {
		parts = append(parts, "[autoreply off]")
	}
	if !m.settings.RelayEnabled {
		parts = append(parts, "[relay off]")
	}
	return strings.Join(parts, "  ")
}

func hemi(v float64, pos, neg string) string {
	if v < 0 {
		return fmt.Sprintf("%.1f%s", -v, neg)
	}
	return fmt.Sprintf("%.1f%s", v, pos)
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color("63")).
		Foreground(lipgloss.Color("255")).
		Width(m.width).
		Align(lipgloss.Center)

	return style.Render(m.Title())
}
