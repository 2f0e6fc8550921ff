package station

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
	"js8msg/js8"
	"js8msg/txgate"
)

type feed struct {
	frames chan frame.Inbound
	stop   chan struct{}
	once   sync.Once
}

func newFeed() *feed {
	return &feed{frames: make(chan frame.Inbound), stop: make(chan struct{})}
}

func (f *feed) Start(out chan<- frame.Inbound) {
	for {
		select {
		case in, ok := <-f.frames:
			if !ok {
				close(out)
				return
			}
			out <- in
		case <-f.stop:
			return
		}
	}
}

func (f *feed) Close() { f.once.Do(func() { close(f.stop) }) }

func (f *feed) decode(text string, snr int, freq float64, flags frame.Flags) {
	f.frames <- frame.Inbound{Kind: frame.InboundDecoded, Frame: frame.DecodedFrame{
		Text: text, SNR: snr, FrequencyHz: freq, Flags: flags, UTC: 1200,
	}}
}

// engine accepts everything and finishes each session on the next poll.
type engine struct {
	mu   sync.Mutex
	sent []txgate.Request
}

func (e *engine) Transmit(r txgate.Request) bool {
	e.mu.Lock()
	e.sent = append(e.sent, r)
	e.mu.Unlock()
	return true
}

func (e *engine) IsTransmitting() bool      { return false }
func (e *engine) IsTransmittingAudio() bool { return false }

func (e *engine) requests() []txgate.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]txgate.Request(nil), e.sent...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func settings() config.Settings {
	return config.Settings{
		AutoreplyEnabled: true,
		RelayEnabled:     true,
		Callsign:         "W1AW",
		Grid:             "FN31PR",
		Info:             "QTH CT",
		AudioFrequencyHz: 1500,
	}
}

type harness struct {
	st     *Station
	feed   *feed
	eng    *engine
	rec    *event.Recorder
	clock  *clock
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, s config.Settings) *harness {
	t.Helper()
	h := &harness{
		feed:  newFeed(),
		eng:   &engine{},
		rec:   &event.Recorder{},
		clock: &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		done:  make(chan error, 1),
	}
	h.st = New(Options{
		Settings:        s,
		Transmitter:     h.eng,
		Events:          h.rec,
		MonitorInterval: time.Millisecond,
		SweepInterval:   5 * time.Millisecond,
		Clock:           h.clock.Now,
	})
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.st.Run(ctx, h.feed) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) waitSent(t *testing.T, n int) []txgate.Request {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.eng.requests()) >= n }, time.Second, time.Millisecond)
	return h.eng.requests()
}

func TestDirectedSNRQuery(t *testing.T) {
	h := start(t, settings())

	h.feed.decode("K1ABC: W1AW SNR?", -12, 1500, frame.FlagFirst|frame.FlagLast)

	sent := h.waitSent(t, 1)
	assert.Equal(t, "SNR -12", sent[0].Text)
	assert.Equal(t, "K1ABC", sent[0].SelectedCall)
	assert.Equal(t, "W1AW", sent[0].MyCall)

	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindAutoReply)) == 1 }, time.Second, time.Millisecond)
	ev := h.rec.Of(event.KindAutoReply)[0]
	assert.Equal(t, "SNR?", ev.Command)
	assert.Equal(t, "K1ABC", ev.From)

	calls, err := h.st.Heard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"K1ABC"}, calls)
}

func TestMultiFrameQuery(t *testing.T) {
	h := start(t, settings())

	h.feed.decode("K1ABC: W1AW", -3, 1500, frame.FlagFirst)
	h.feed.decode("INFO?", -3, 1506, frame.FlagLast)

	sent := h.waitSent(t, 1)
	assert.Equal(t, "INFO QTH CT", sent[0].Text)
	assert.Equal(t, "K1ABC", sent[0].SelectedCall)
}

func TestRelayedQueryEndToEnd(t *testing.T) {
	h := start(t, settings())

	h.feed.decode("K1ABC: W1AW>", -7, 1200, frame.FlagFirst)
	h.feed.decode(js8.AppendChecksum("GRID?"), -7, 1203, frame.FlagRelayData|frame.FlagLast)

	sent := h.waitSent(t, 1)
	assert.Equal(t, "K1ABC GRID FN31", sent[0].Text)
	assert.Empty(t, sent[0].SelectedCall)

	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindRelay)) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, event.RelayAnswered, h.rec.Of(event.KindRelay)[0].Outcome)
}

func TestSettingsUpdate(t *testing.T) {
	h := start(t, settings())

	off := settings()
	off.AutoreplyEnabled = false
	require.NoError(t, h.st.UpdateSettings(off))

	h.feed.decode("K1ABC: W1AW SNR?", -12, 1500, frame.FlagFirst|frame.FlagLast)
	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindMessage)) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, h.eng.requests())

	require.NoError(t, h.st.UpdateSettings(settings()))
	h.feed.decode("K1ABC: W1AW SNR?", -12, 1500, frame.FlagFirst|frame.FlagLast)
	h.waitSent(t, 1)
}

func TestSendHeartbeat(t *testing.T) {
	h := start(t, settings())

	require.NoError(t, h.st.Heartbeat(context.Background()))
	sent := h.waitSent(t, 1)
	assert.Equal(t, "@HB HEARTBEAT FN31", sent[0].Text)
	assert.Empty(t, sent[0].SelectedCall)
	assert.True(t, sent[0].ForceIdentify)

	require.Eventually(t, func() bool { return !h.st.Transmitting() }, time.Second, time.Millisecond)
	require.NoError(t, h.st.Send(context.Background(), "hello there", "k1abc"))
	sent = h.waitSent(t, 2)
	assert.Equal(t, "hello there", sent[1].Text)
	assert.Equal(t, "K1ABC", sent[1].SelectedCall)

	assert.ErrorIs(t, h.st.Send(context.Background(), "   ", ""), txgate.ErrEmpty)
}

func TestSendWithoutCallsign(t *testing.T) {
	s := settings()
	s.Callsign = ""
	h := start(t, s)

	err := h.st.Send(context.Background(), "HELLO", "")
	assert.ErrorIs(t, err, config.ErrNoCallsign)
	assert.Len(t, h.rec.Of(event.KindError), 1)
}

func TestPartialMessageFlushedBySweep(t *testing.T) {
	h := start(t, settings())

	h.feed.decode("K1ABC: W1AW", -3, 1500, frame.FlagFirst)
	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindDecoded)) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, h.rec.Of(event.KindMessage))

	h.clock.Add(91 * time.Second)

	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindMessage)) == 1 }, time.Second, time.Millisecond)
	m := h.rec.Of(event.KindMessage)[0].Message
	require.NotNil(t, m)
	assert.True(t, m.Partial)
	assert.Equal(t, "K1ABC: W1AW", m.Text)
	assert.Empty(t, h.eng.requests())
}

func TestDecodeCyclePassthrough(t *testing.T) {
	h := start(t, settings())

	h.feed.frames <- frame.Inbound{Kind: frame.InboundDecodeStarted, Submodes: 3}
	h.feed.frames <- frame.Inbound{Kind: frame.InboundDecodeFinished, Count: 2}
	h.feed.frames <- frame.Inbound{Kind: frame.InboundError, Error: "audio overrun"}

	require.Eventually(t, func() bool { return len(h.rec.Of(event.KindError)) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, h.rec.Of(event.KindDecodeStarted)[0].Submodes)
	assert.Equal(t, 2, h.rec.Of(event.KindDecodeFinished)[0].Count)
	assert.Equal(t, "audio overrun", h.rec.Of(event.KindError)[0].Text)
}

func TestStoppedStation(t *testing.T) {
	h := start(t, settings())
	close(h.feed.frames)

	assert.ErrorIs(t, <-h.done, ErrSourceClosed)
	h.done <- nil

	assert.ErrorIs(t, h.st.Send(context.Background(), "HELLO", ""), ErrStopped)
	assert.ErrorIs(t, h.st.UpdateSettings(settings()), ErrStopped)
}
