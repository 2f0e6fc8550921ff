// Package activity is the band-activity pane: the decoded frames of the
// current and recent cycles, newest at the bottom.
package activity

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"js8msg/event"
	"js8msg/frame"
)

// maxLines bounds the history kept independently of the window size.
const maxLines = 200

// Model holds the pane's state
type Model struct {
	width  int
	height int
	lines  []string // Oldest first
	cycle  string   // Decode cycle status shown in the title
}

func New() Model {
	return Model{width: 60, height: 16}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// FrameLine renders one decoded frame as a single-frame message would be
// shown, with a marker for first/last/relay flags.
func FrameLine(f frame.DecodedFrame) string {
	marker := " "
	switch {
	case f.IsRelayData():
		marker = ">"
	case f.IsSingle():
		marker = " "
	case f.IsFirst():
		marker = "┌"
	case f.IsLast():
		marker = "└"
	default:
		marker = "│"
	}
	return marker + " " + frame.FromFrame(f).DisplayString()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case event.Event:
		switch msg.Kind {
		case event.KindDecoded:
			if msg.Frame != nil {
				m.lines = append(m.lines, FrameLine(*msg.Frame))
				if len(m.lines) > maxLines {
					m.lines = m.lines[len(m.lines)-maxLines:]
				}
			}
		case event.KindDecodeStarted:
			m.cycle = fmt.Sprintf("decoding (%d submodes)", msg.Submodes)
		case event.KindDecodeFinished:
			m.cycle = fmt.Sprintf("last cycle: %d decodes", msg.Count)
		}
	}
	return m, nil
}

// Lines returns the visible history, oldest first.
func (m Model) Lines() []string {
	return append([]string(nil), m.lines...)
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width - 2).
		Height(m.height - 2).
		Padding(0, 1)

	title := "Band Activity"
	if m.cycle != "" {
		title += "  " + m.cycle
	}
	contentWidth := m.width - 2 - 2
	if contentWidth < 0 {
		contentWidth = 0
	}
	header := lipgloss.NewStyle().Bold(true).Underline(true).Width(contentWidth).Render(title)

	var b strings.Builder
	b.WriteString(header)

	rows := (m.height - 2) - 1
	if rows > 0 {
		start := len(m.lines) - rows
		if start < 0 {
			start = 0
		}
		for _, line := range m.lines[start:] {
			b.WriteRune('\n')
			r := []rune(line)
			if len(r) > contentWidth {
				line = string(r[:contentWidth])
			}
			b.WriteString(line)
		}
	}
	return style.Render(b.String())
}
