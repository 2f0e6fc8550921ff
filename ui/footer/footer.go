package footer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"js8msg/event"
)

const keyHelp = "q quit · h heartbeat · x cancel · r retry"

// Model holds the footer's state
type Model struct {
	width   int
	txState event.TxState
	txText  string
	keyed   bool
	lastErr string
}

func New() Model {
	return Model{width: 80}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetError shows err until the next transmission starts.
func (m *Model) SetError(err error) {
	if err == nil {
		m.lastErr = ""
		return
	}
	m.lastErr = err.Error()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case event.Event:
		switch msg.Kind {
		case event.KindTxState:
			m.txState = msg.TxState
			if msg.Text != "" {
				m.txText = msg.Text
			}
			if msg.TxState == event.TxQueued || msg.TxState == event.TxStarted {
				m.lastErr = ""
			}
		case event.KindKeying:
			m.keyed = msg.Keyed && msg.OK
		case event.KindError:
			m.lastErr = msg.Text
		}
	}
	return m, nil
}

// Status is the footer text without styling.
func (m Model) Status() string {
	state := "idle"
	if m.txState != "" {
		state = string(m.txState)
	}
	status := "TX " + state
	if m.txText != "" && m.txState != event.TxFinished {
		status += fmt.Sprintf(" %q", m.txText)
	}
	if m.keyed {
		status += " [PTT]"
	}
	if m.lastErr != "" {
		status += "  error: " + m.lastErr
	}
	return status + "  |  " + keyHelp
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Width(m.width)
	if m.lastErr != "" {
		style = style.Foreground(lipgloss.Color("9"))
	}
	return style.Render(m.Status())
}
