// Package txgate admits one transmission at a time and brackets its audio
// bursts with PTT.
package txgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"js8msg/event"
)

// DefaultMonitorInterval is how often an active session is polled.
const DefaultMonitorInterval = 250 * time.Millisecond

const keyQueueSize = 32

var (
	ErrBusy           = errors.New("transmit session already active")
	ErrRejected       = errors.New("transmit request rejected")
	ErrEmpty          = errors.New("empty transmit text")
	ErrNothingToRetry = errors.New("no rejected request to retry")
	ErrClosed         = errors.New("transmit gate closed")
)

// State is the gate's view of the transmitter.
type State int

const (
	Idle         State = iota
	Pending            // handed to the engine, not yet accepted
	Queued             // accepted, no audio playing
	Transmitting       // audio playing, PTT asserted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Queued:
		return "queued"
	case Transmitting:
		return "transmitting"
	default:
		return "unknown"
	}
}

// Gate enforces single-flight transmission. Transport and keying calls run
// on their own goroutines; a generation token turns callbacks from a
// superseded session into no-ops.
type Gate struct {
	interval time.Duration
	sink     TransmitSink
	keyer    KeyingSink
	events   event.Sink
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	wasAudio    bool
	current     Request
	lastMessage string
	rejected    *Request
	closed      bool

	wg      sync.WaitGroup
	keyCh   chan bool
	keyDone chan struct{}

	keyMu       sync.Mutex
	keyOverflow *bool // newest state requested while keyCh was full
}

// Option configures a Gate.
type Option func(*Gate)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) { g.log = l.With().Str("component", "txgate").Logger() }
}

func WithMonitorInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

func WithEvents(s event.Sink) Option {
	return func(g *Gate) {
		if s != nil {
			g.events = s
		}
	}
}

// New creates a gate. keyer may be nil when the radio is keyed some other
// way.
func New(sink TransmitSink, keyer KeyingSink, opts ...Option) *Gate {
	if keyer == nil {
		keyer = NoKeying{}
	}
	g := &Gate{
		interval: DefaultMonitorInterval,
		sink:     sink,
		keyer:    keyer,
		events:   event.Nop,
		log:      zerolog.Nop(),
		keyCh:    make(chan bool, keyQueueSize),
		keyDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	go g.keyLoop()
	return g
}

// Submit hands req to the engine unless a session is already active. The
// engine call itself happens asynchronously; acceptance or rejection is
// reported as a queued or failed event.
func (g *Gate) Submit(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmpty
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.state != Idle {
		g.mu.Unlock()
		return ErrBusy
	}
	g.generation++
	gen := g.generation
	g.state = Pending
	g.wasAudio = false
	g.current = req
	g.wg.Add(1)
	g.mu.Unlock()

	g.log.Info().
		Str("to", req.SelectedCall).
		Int("submode", req.Submode).
		Float64("freq", req.AudioFrequencyHz).
		Int("text_len", len(req.Text)).
		Msg("TX request")

	go g.dispatch(ctx, gen, req)
	return nil
}

// Retry resubmits the last request the engine rejected.
func (g *Gate) Retry(ctx context.Context) error {
	g.mu.Lock()
	r := g.rejected
	g.mu.Unlock()
	if r == nil {
		return ErrNothingToRetry
	}
	return g.Submit(ctx, *r)
}

// Cancel abandons the current session, if any, and releases PTT. Any
// pending engine reply or monitor tick for it is ignored.
func (g *Gate) Cancel() {
	g.mu.Lock()
	active := g.state != Idle
	g.generation++
	g.state = Idle
	g.wasAudio = false
	req := g.current
	g.mu.Unlock()

	if !active {
		return
	}
	g.log.Warn().Msg("TX session cancelled")
	g.key(false)
	g.publish(event.TxFailed, req, "cancelled")
}

// Close cancels any session and waits for background work to finish.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.Cancel()
	g.wg.Wait()
	close(g.keyCh)
	<-g.keyDone
}

// Active reports whether a session is in flight.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state != Idle
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastMessage is the last message the engine accepted, as keyed on air.
func (g *Gate) LastMessage() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMessage
}

// Rejected returns the request waiting for Retry, if any.
func (g *Gate) Rejected() (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rejected == nil {
		return Request{}, false
	}
	return *g.rejected, true
}

func (g *Gate) dispatch(ctx context.Context, gen uint64, req Request) {
	defer g.wg.Done()

	ok := g.sink.Transmit(req)

	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		g.log.Debug().Uint64("generation", gen).Msg("stale TX result ignored")
		return
	}
	if !ok {
		g.state = Idle
		r := req
		g.rejected = &r
		g.mu.Unlock()
		g.log.Error().Err(ErrRejected).Str("to", req.SelectedCall).Msg("TX request failed")
		g.publish(event.TxFailed, req, ErrRejected.Error())
		return
	}
	g.state = Queued
	g.rejected = nil
	if msg := req.OnAir(); msg != "" {
		g.lastMessage = msg
	}
	g.wg.Add(1)
	g.mu.Unlock()

	g.log.Info().Str("to", req.SelectedCall).Str("text", req.Text).Msg("TX request accepted")
	g.publish(event.TxQueued, req, "")
	go g.monitor(ctx, gen, req)
}

func (g *Gate) monitor(ctx context.Context, gen uint64, req Request) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.abandon(gen, req)
			return
		case <-ticker.C:
		}
		if !g.poll(gen, req) {
			return
		}
	}
}

// poll samples the engine once. It returns false when the monitor should
// stop.
func (g *Gate) poll(gen uint64, req Request) bool {
	session := g.sink.IsTransmitting()
	audio := g.sink.IsTransmittingAudio()

	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		return false
	}

	if !session {
		g.state = Idle
		g.wasAudio = false
		g.mu.Unlock()
		g.key(false)
		g.log.Info().Msg("TX finished")
		g.publish(event.TxFinished, req, "")
		return false
	}

	switch {
	case audio && !g.wasAudio:
		g.wasAudio = true
		g.state = Transmitting
		g.mu.Unlock()
		g.key(true)
		g.publish(event.TxStarted, req, "")
	case !audio && g.wasAudio:
		// silence between frames: drop PTT, session continues
		g.wasAudio = false
		g.state = Queued
		g.mu.Unlock()
		g.key(false)
		g.publish(event.TxQueued, req, "")
	default:
		g.mu.Unlock()
	}
	return true
}

func (g *Gate) abandon(gen uint64, req Request) {
	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		return
	}
	g.generation++
	g.state = Idle
	g.wasAudio = false
	g.mu.Unlock()
	g.key(false)
	g.publish(event.TxFailed, req, "monitor stopped")
}

func (g *Gate) key(enabled bool) {
	g.keyMu.Lock()
	defer g.keyMu.Unlock()
	if g.keyOverflow != nil {
		g.keyOverflow = &enabled
		return
	}
	select {
	case g.keyCh <- enabled:
	default:
		g.log.Warn().Bool("ptt", enabled).Msg("keying queue full, keeping latest state")
		g.keyOverflow = &enabled
	}
}

// takeOverflow returns the coalesced state once everything queued before it
// has been applied.
func (g *Gate) takeOverflow() (bool, bool) {
	g.keyMu.Lock()
	defer g.keyMu.Unlock()
	if g.keyOverflow == nil || len(g.keyCh) > 0 {
		return false, false
	}
	enabled := *g.keyOverflow
	g.keyOverflow = nil
	return enabled, true
}

// keyLoop runs keying requests one at a time so assert and release never
// reorder.
func (g *Gate) keyLoop() {
	defer close(g.keyDone)
	for enabled := range g.keyCh {
		g.setKeying(enabled)
		if latest, ok := g.takeOverflow(); ok {
			g.setKeying(latest)
		}
	}
	if latest, ok := g.takeOverflow(); ok {
		g.setKeying(latest)
	}
}

func (g *Gate) setKeying(enabled bool) {
	ok := g.keyer.SetKeying(enabled)
	if ok {
		g.log.Info().Bool("ptt", enabled).Msg("PTT set")
	} else {
		g.log.Warn().Bool("ptt", enabled).Msg("PTT request failed")
	}
	g.events.Publish(event.Event{Kind: event.KindKeying, Keyed: enabled, OK: ok})
}

func (g *Gate) publish(state event.TxState, req Request, detail string) {
	text := req.OnAir()
	if detail != "" && state == event.TxFailed {
		text = detail
	}
	g.events.Publish(event.Event{
		Kind:    event.KindTxState,
		TxState: state,
		Text:    text,
		To:      req.SelectedCall,
	})
}
