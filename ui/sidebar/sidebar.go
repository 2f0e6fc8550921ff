package sidebar

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the sidebar's state
type Model struct {
	width  int
	height int
	calls  []string // Heard callsigns, most recent first
}

// New creates a new sidebar model
func New() Model {
	return Model{
		width:  20,
		height: 24,
		calls:  make([]string, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// AddCall moves callsign to the top of the list.
func (m *Model) AddCall(callsign string) {
	if callsign == "" {
		return
	}
	calls := []string{callsign}
	for _, c := range m.calls {
		if c != callsign {
			calls = append(calls, c)
		}
	}
	m.calls = calls
	m.trim()
}

// Calls returns the listed callsigns, most recent first.
func (m Model) Calls() []string {
	return append([]string(nil), m.calls...)
}

// trim keeps what fits: height minus the border and the header line.
func (m *Model) trim() {
	maxCalls := m.height - 3
	if maxCalls < 1 {
		maxCalls = 1
	}
	if len(m.calls) > maxCalls {
		m.calls = m.calls[:maxCalls]
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trim()
	}
	return m, nil
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width - 2).
		Height(m.height - 2).
		Padding(0, 1)

	header := lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Width(m.width - 2 - 2).
		Render("Heard")

	var b strings.Builder
	b.WriteString(header)

	// The box must not grow past its height.
	contentHeight := (m.height - 2) - 1
	if contentHeight > 0 {
		b.WriteRune('\n')
		for i, call := range m.calls {
			if i >= contentHeight {
				break
			}
			b.WriteString(fmt.Sprintf("%.*s", m.width-2-2, call))
			if i < len(m.calls)-1 && i < contentHeight-1 {
				b.WriteRune('\n')
			}
		}
	}
	return style.Render(b.String())
}
