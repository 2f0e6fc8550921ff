// Package ui is the terminal monitor: station events are rendered in a
// bubbletea program and a few keys drive the transmit path.
package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"js8msg/config"
	"js8msg/event"
	"js8msg/ui/activity"
	"js8msg/ui/footer"
	"js8msg/ui/header"
	"js8msg/ui/msgbar"
	"js8msg/ui/sidebar"
)

const (
	sidebarWidth = 20
	msgbarHeight = 7

	commandTimeout = 5 * time.Second
)

var errFeedClosed = errors.New("station stopped")

// Controller is the part of the station the keys drive.
type Controller interface {
	Heartbeat(ctx context.Context) error
	Cancel(ctx context.Context) error
	Retry(ctx context.Context) error
}

// Feed buffers station events for the program. Publish never blocks; when
// the monitor falls behind, events are dropped.
type Feed struct {
	mu     sync.Mutex
	closed bool
	ch     chan event.Event
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 256
	}
	return &Feed{ch: make(chan event.Event, size)}
}

func (f *Feed) Publish(e event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- e:
	default:
	}
}

// Close ends the program's event stream; later events are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

// commandResult reports the outcome of a key-driven station command.
type commandResult struct {
	action string
	err    error
}

// Model holds the monitor's state
type Model struct {
	width  int
	height int

	headerModel   header.Model
	activityModel activity.Model
	msgbarModel   msgbar.Model
	footerModel   footer.Model
	sidebarModel  sidebar.Model

	station Controller
	feed    *Feed

	err error
}

// New creates the monitor for a station.
func New(settings config.Settings, station Controller, feed *Feed) Model {
	return Model{
		width:         80,
		height:        24,
		headerModel:   header.New(settings),
		activityModel: activity.New(),
		msgbarModel:   msgbar.New(),
		footerModel:   footer.New(),
		sidebarModel:  sidebar.New(),
		station:       station,
		feed:          feed,
	}
}

// listen waits for the next station event.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.feed.ch
		if !ok {
			return errFeedClosed
		}
		return e
	}
}

func (m Model) run(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandResult{action: action, err: fn(ctx)}
	}
}

func (m Model) Init() tea.Cmd {
	return m.listen()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
		return m, nil
	}

	var (
		headerCmd   tea.Cmd
		activityCmd tea.Cmd
		msgbarCmd   tea.Cmd
		footerCmd   tea.Cmd
		sidebarCmd  tea.Cmd
		cmds        []tea.Cmd
	)

	switch msg := msg.(type) {
	case event.Event:
		switch msg.Kind {
		case event.KindHeard:
			m.sidebarModel.AddCall(msg.Text)
		case event.KindDecoded, event.KindDecodeStarted, event.KindDecodeFinished:
			m.activityModel, activityCmd = m.activityModel.Update(msg)
		case event.KindMessage, event.KindAutoReply, event.KindRelay:
			m.msgbarModel, msgbarCmd = m.msgbarModel.Update(msg)
		}
		m.footerModel, footerCmd = m.footerModel.Update(msg)
		cmds = append(cmds, activityCmd, msgbarCmd, footerCmd, m.listen())

	case config.Settings:
		m.headerModel, headerCmd = m.headerModel.Update(msg)
		cmds = append(cmds, headerCmd)

	case commandResult:
		if msg.err != nil {
			m.footerModel.SetError(errors.New(msg.action + ": " + msg.err.Error()))
		}

	case error:
		m.err = msg
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 1
		footerHeight := 1
		mainHeight := m.height - headerHeight - msgbarHeight - footerHeight
		activityWidth := m.width - sidebarWidth
		if mainHeight < 1 {
			mainHeight = 1
		}

		m.headerModel, headerCmd = m.headerModel.Update(tea.WindowSizeMsg{Width: m.width, Height: headerHeight})
		m.sidebarModel, sidebarCmd = m.sidebarModel.Update(tea.WindowSizeMsg{Width: sidebarWidth, Height: mainHeight})
		m.activityModel, activityCmd = m.activityModel.Update(tea.WindowSizeMsg{Width: activityWidth, Height: mainHeight})
		m.msgbarModel, msgbarCmd = m.msgbarModel.Update(tea.WindowSizeMsg{Width: m.width, Height: msgbarHeight})
		m.footerModel, footerCmd = m.footerModel.Update(tea.WindowSizeMsg{Width: m.width, Height: footerHeight})
		cmds = append(cmds, headerCmd, sidebarCmd, activityCmd, msgbarCmd, footerCmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "h":
			cmds = append(cmds, m.run("heartbeat", m.station.Heartbeat))
		case "x":
			cmds = append(cmds, m.run("cancel", m.station.Cancel))
		case "r":
			cmds = append(cmds, m.run("retry", m.station.Retry))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Border(lipgloss.DoubleBorder(), true).
			BorderForeground(lipgloss.Color("9")).
			Padding(1).
			Align(lipgloss.Center, lipgloss.Center)
		return errorStyle.Render(
			"Error:\n\n" + m.err.Error() +
				"\n\nPress any key to quit.",
		)
	}

	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		m.sidebarModel.View(),
		m.activityModel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerModel.View(),
		middle,
		m.msgbarModel.View(),
		m.footerModel.View(),
	)
}
