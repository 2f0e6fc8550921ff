package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
)

type controller struct {
	calls []string
	err   error
}

func (c *controller) record(name string) error {
	c.calls = append(c.calls, name)
	return c.err
}

func (c *controller) Heartbeat(context.Context) error { return c.record("heartbeat") }
func (c *controller) Cancel(context.Context) error    { return c.record("cancel") }
func (c *controller) Retry(context.Context) error     { return c.record("retry") }

func settings() config.Settings {
	return config.Settings{Callsign: "W1AW", Grid: "FN31PR", AutoreplyEnabled: true, RelayEnabled: true}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestFeedDeliversAndDrops(t *testing.T) {
	feed := NewFeed(1)
	feed.Publish(event.Event{Kind: event.KindHeard, Text: "K1ABC"})
	feed.Publish(event.Event{Kind: event.KindHeard, Text: "N0CALL"}) // dropped

	m := New(settings(), &controller{}, feed)
	msg := m.listen()()
	e, ok := msg.(event.Event)
	require.True(t, ok)
	assert.Equal(t, "K1ABC", e.Text)

	feed.Close()
	assert.Equal(t, errFeedClosed, m.listen()())
}

func TestEventsReachPanes(t *testing.T) {
	m := New(settings(), &controller{}, NewFeed(4))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m, cmd := update(t, m, event.Event{Kind: event.KindHeard, Text: "K1ABC"})
	assert.NotNil(t, cmd)
	m, _ = update(t, m, event.Event{Kind: event.KindDecoded, Frame: &frame.DecodedFrame{
		Text: "K1ABC: W1AW SNR?", SNR: -12, FrequencyHz: 1500, UTC: 1342, Flags: frame.FlagFirst | frame.FlagLast,
	}})
	m, _ = update(t, m, event.Event{Kind: event.KindAutoReply, Command: "SNR?", To: "K1ABC", Text: "SNR -12"})
	m, _ = update(t, m, event.Event{Kind: event.KindTxState, TxState: event.TxStarted, Text: "K1ABC SNR -12"})

	assert.Equal(t, []string{"K1ABC"}, m.sidebarModel.Calls())
	require.Len(t, m.activityModel.Lines(), 1)
	assert.Contains(t, m.activityModel.Lines()[0], "K1ABC: W1AW SNR?")
	assert.Contains(t, m.footerModel.Status(), "TX started")

	view := m.View()
	assert.Contains(t, view, "W1AW")
	assert.Contains(t, view, "SNR -12")
}

func TestKeysDriveStation(t *testing.T) {
	ctl := &controller{}
	m := New(settings(), ctl, NewFeed(4))

	for _, key := range []string{"h", "x", "r"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		require.NotNil(t, cmd)
		res, ok := cmd().(commandResult)
		require.True(t, ok)
		assert.NoError(t, res.err)
	}
	assert.Equal(t, []string{"heartbeat", "cancel", "retry"}, ctl.calls)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCommandErrorShownInFooter(t *testing.T) {
	m := New(settings(), &controller{}, NewFeed(4))
	m, _ = update(t, m, commandResult{action: "retry", err: errors.New("nothing to retry")})
	assert.Contains(t, m.footerModel.Status(), "retry: nothing to retry")
}

func TestFeedClosedShowsError(t *testing.T) {
	m := New(settings(), &controller{}, NewFeed(4))
	m, _ = update(t, m, errFeedClosed)
	assert.Contains(t, m.View(), "station stopped")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
