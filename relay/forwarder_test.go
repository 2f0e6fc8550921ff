package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"js8msg/autoreply"
	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
	"js8msg/heard"
	"js8msg/js8"
)

type idle bool

func (i idle) Active() bool { return bool(i) }

type history string

func (h history) LastMessage() string { return string(h) }

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func settings() config.Settings {
	return config.Settings{
		AutoreplyEnabled: true,
		RelayEnabled:     true,
		Callsign:         "W1AW",
		Grid:             "FN31PR",
		TxSubmode:        config.SubmodeNormal,
	}
}

func newForwarder(busy bool) (*Forwarder, *event.Recorder) {
	rec := &event.Recorder{}
	policy := autoreply.New(heard.New(), history(""))
	return New(policy, idle(busy), WithEvents(rec)), rec
}

func fr(text string, flags frame.Flags, freq float64) frame.DecodedFrame {
	return frame.DecodedFrame{Text: text, Flags: flags, FrequencyHz: freq, SNR: -10}
}

func TestRelayedGridQuery(t *testing.T) {
	fw, rec := newForwarder(false)
	s := settings()

	out := fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), s, t0)
	assert.Empty(t, out)
	assert.Equal(t, 1, fw.Pending())

	out = fw.HandleFrame(fr(js8.AppendChecksum("GRID?"), frame.FlagRelayData|frame.FlagLast, 1504), s, t0.Add(15*time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, "K1ABC GRID FN31", out[0].Text)
	assert.Empty(t, out[0].SelectedCall)
	assert.Zero(t, fw.Pending())

	ev := rec.Of(event.KindRelay)
	require.Len(t, ev, 1)
	assert.Equal(t, event.RelayAnswered, ev[0].Outcome)
	assert.Equal(t, "K1ABC", ev[0].From)
}

func TestRelayedInlineQuery(t *testing.T) {
	fw, _ := newForwarder(false)
	out := fw.HandleFrame(fr("K1ABC: W1AW>"+js8.AppendChecksum("GRID?"), frame.FlagFirst|frame.FlagLast, 1500), settings(), t0)
	require.Len(t, out, 1)
	assert.Equal(t, "K1ABC GRID FN31", out[0].Text)
}

func TestRelayForward(t *testing.T) {
	fw, rec := newForwarder(false)
	s := settings()
	s.TxSubmode = config.SubmodeTurbo

	out := fw.HandleFrame(fr("K1ABC: W1AW/P> "+js8.AppendChecksum("N0CALL HELLO THERE")+" "+EOM, frame.FlagFirst, 1500), s, t0)
	require.Len(t, out, 1)
	assert.Equal(t, "N0CALL>HELLO THERE *DE* K1ABC", out[0].Text)
	assert.Equal(t, config.SubmodeTurbo, out[0].Submode)
	assert.Equal(t, "W1AW", out[0].MyCall)
	assert.True(t, out[0].ForceIdentify)
	assert.Equal(t, event.RelayForwarded, rec.Of(event.KindRelay)[0].Outcome)

	out = fw.HandleFrame(fr("K1ABC: W1AW>N0CALL>HI", frame.FlagFirst|frame.FlagLast, 1500), s, t0)
	require.Len(t, out, 1)
	assert.Equal(t, "N0CALL>HI *DE* K1ABC", out[0].Text, "inline payload forwarded without a checksum")
}

func TestRelayForwardLowercaseTarget(t *testing.T) {
	fw, rec := newForwarder(false)
	out := fw.HandleFrame(fr("K1ABC: W1AW>"+js8.AppendChecksum("k2def hello"), frame.FlagFirst|frame.FlagLast, 1500), settings(), t0)
	require.Len(t, out, 1)
	assert.Equal(t, "k2def>hello *DE* K1ABC", out[0].Text)
	require.Len(t, rec.Of(event.KindRelay), 1)
	assert.Equal(t, event.RelayForwarded, rec.Of(event.KindRelay)[0].Outcome)
}

func TestRelayMultiFrameChecksum(t *testing.T) {
	fw, rec := newForwarder(false)
	s := settings()

	body := js8.AppendChecksum("N0CALL HELLO FROM FAR AWAY")
	fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), s, t0)
	assert.Empty(t, fw.HandleFrame(fr(body[:10], frame.FlagRelayData, 1502), s, t0.Add(10*time.Second)))
	out := fw.HandleFrame(fr(body[10:], frame.FlagRelayData|frame.FlagLast, 1498), s, t0.Add(20*time.Second))
	require.Len(t, out, 1)
	assert.Equal(t, "N0CALL>HELLO FROM FAR AWAY *DE* K1ABC", out[0].Text)

	fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), s, t0)
	out = fw.HandleFrame(fr("N0CALL HELLO AAA", frame.FlagRelayData|frame.FlagLast, 1500), s, t0.Add(time.Second))
	assert.Empty(t, out, "bad checksum on relayed data is dropped")
	evs := rec.Of(event.KindRelay)
	assert.Equal(t, event.RelayRejected, evs[len(evs)-1].Outcome)
}

func TestRelayAckFallbackAndAbsorb(t *testing.T) {
	fw, rec := newForwarder(false)
	s := settings()

	out := fw.HandleFrame(fr("K1ABC: W1AW>"+js8.AppendChecksum("HELLO *DE* N0CALL"), frame.FlagFirst|frame.FlagLast, 1500), s, t0)
	require.Len(t, out, 1)
	assert.Equal(t, "K1ABC>N0CALL ACK", out[0].Text)
	assert.Equal(t, event.RelayAcked, rec.Of(event.KindRelay)[0].Outcome)

	out = fw.HandleFrame(fr("K1ABC: W1AW>"+js8.AppendChecksum("ack"), frame.FlagFirst|frame.FlagLast, 1500), s, t0)
	assert.Empty(t, out)
	assert.Equal(t, event.RelayAbsorbed, rec.Of(event.KindRelay)[1].Outcome)
}

func TestRelayIgnored(t *testing.T) {
	fw, _ := newForwarder(false)
	s := settings()

	assert.Empty(t, fw.HandleFrame(fr("K1ABC: N0CALL>HELLO", frame.FlagFirst|frame.FlagLast, 1500), s, t0), "not for us")
	assert.Empty(t, fw.HandleFrame(fr("K1ABC: @JS8NET>HELLO", frame.FlagFirst|frame.FlagLast, 1500), s, t0), "group")
	assert.Empty(t, fw.HandleFrame(fr("K1ABC: W1AW>@ALLCALL HELLO", frame.FlagFirst|frame.FlagLast, 1500), s, t0), "group payload")
	assert.Empty(t, fw.HandleFrame(fr("HELLO", frame.FlagRelayData|frame.FlagLast, 1500), s, t0), "no open buffer")
	assert.Zero(t, fw.Pending())

	off := s
	off.RelayEnabled = false
	fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), off, t0)
	assert.Zero(t, fw.Pending())

	nocall := s
	nocall.Callsign = ""
	fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), nocall, t0)
	assert.Zero(t, fw.Pending())
}

func TestRelayBusy(t *testing.T) {
	fw, _ := newForwarder(true)
	out := fw.HandleFrame(fr("K1ABC: W1AW>"+js8.AppendChecksum("GRID?"), frame.FlagFirst|frame.FlagLast, 1500), settings(), t0)
	assert.Empty(t, out)
}

func TestRelayTimeout(t *testing.T) {
	fw, rec := newForwarder(false)
	s := settings()

	fw.HandleFrame(fr("K1ABC: W1AW>", frame.FlagFirst, 1500), s, t0)
	fw.HandleFrame(fr("GRID", frame.FlagRelayData, 1500), s, t0.Add(60*time.Second))
	assert.Zero(t, fw.Sweep(t0.Add(140*time.Second)), "idle time counts from the last update")
	assert.Equal(t, 1, fw.Sweep(t0.Add(151*time.Second)))
	assert.Zero(t, fw.Pending())
	assert.Equal(t, event.RelayExpired, rec.Of(event.KindRelay)[0].Outcome)
}

func TestForwardPayload(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"N0CALL HELLO", "N0CALL>HELLO", true},
		{"  N0CALL>HELLO", "N0CALL>HELLO", true},
		{"KB2XYZ/M RR 73", "KB2XYZ/M>RR 73", true},
		{"GRID?", "", false},
		{"HELLO THERE", "", false},
		{"@ALLCALL HI", "", false},
		{"n0call hello", "n0call>hello", true},
		{"k2def>hello", "k2def>hello", true},
	}
	for _, c := range cases {
		got, ok := ForwardPayload(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestPath(t *testing.T) {
	assert.Equal(t, []string{"K1ABC"}, Path("k1abc", "GRID?"))
	assert.Equal(t, []string{"K1ABC", "KB2XYZ", "N0CALL"}, Path("K1ABC", "SNR? *DE* N0CALL via KB2XYZ"))
	assert.Empty(t, Path("", "HELLO"))
}
