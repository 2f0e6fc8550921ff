package msgbar

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"js8msg/event"
)

const (
	barHeight = 7 // Total height of the component (including border)
)

// Model holds the message bar's state
type Model struct {
	width    int
	height   int
	messages []string // Newest first
}

// New creates a new message bar model
func New() Model {
	return Model{
		width:    80,
		height:   barHeight,
		messages: make([]string, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Line formats the events the bar shows: assembled messages, automatic
// replies and relay outcomes.
func Line(e event.Event) (string, bool) {
	switch e.Kind {
	case event.KindMessage:
		if e.Message == nil {
			return "", false
		}
		line := e.Message.FormattedTime() + "  " + e.Message.Text
		if e.Message.Partial {
			line += " (partial)"
		}
		return line, true
	case event.KindAutoReply:
		to := e.To
		if to == "" {
			to = "ALL"
		}
		return fmt.Sprintf("auto %s → %s: %s", e.Command, to, e.Text), true
	case event.KindRelay:
		return fmt.Sprintf("relay %s from %s: %s", e.Outcome, e.From, e.Text), true
	}
	return "", false
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = barHeight

	case event.Event:
		line, ok := Line(msg)
		if !ok {
			return m, nil
		}
		m.messages = append([]string{line}, m.messages...)

		maxMessages := barHeight - 2
		if len(m.messages) > maxMessages {
			m.messages = m.messages[:maxMessages]
		}
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

	var b strings.Builder

	contentWidth := m.width - 2 - 2
	if contentWidth < 0 {
		contentWidth = 0
	}
	numMessages := m.height - 2
	if numMessages < 0 {
		numMessages = 0
	}

	// Oldest first, in arrival order.
	for i := 0; i < numMessages; i++ {
		if i < len(m.messages) {
			msg := m.messages[len(m.messages)-1-i]
			b.WriteString(truncate(msg, contentWidth))
		}
		if i < numMessages-1 {
			b.WriteRune('\n')
		}
	}
	return style.Render(b.String())
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s
}
