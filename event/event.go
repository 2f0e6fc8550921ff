// Package event carries state reports from the message plane to whoever is
// watching: the journal, metrics and the terminal monitor.
package event

import (
	"sync"
	"time"

	"js8msg/frame"
)

// Kind identifies an event.
type Kind int

const (
	KindDecoded Kind = iota
	KindDecodeStarted
	KindDecodeFinished
	KindMessage
	KindHeard
	KindTxState
	KindAutoReply
	KindRelay
	KindKeying
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDecoded:
		return "decoded"
	case KindDecodeStarted:
		return "decode_started"
	case KindDecodeFinished:
		return "decode_finished"
	case KindMessage:
		return "message"
	case KindHeard:
		return "heard"
	case KindTxState:
		return "tx_state"
	case KindAutoReply:
		return "autoreply"
	case KindRelay:
		return "relay"
	case KindKeying:
		return "keying"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// TxState is a transmit lifecycle report.
type TxState string

const (
	TxQueued   TxState = "queued"
	TxStarted  TxState = "started"
	TxFinished TxState = "finished"
	TxFailed   TxState = "failed"
)

// Relay outcomes.
const (
	RelayForwarded = "forwarded"
	RelayAnswered  = "answered"
	RelayAcked     = "acked"
	RelayAbsorbed  = "absorbed"
	RelayRejected  = "rejected"
	RelayExpired   = "expired"
)

// Event is one report. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	At   time.Time

	Frame   *frame.DecodedFrame
	Message *frame.Message

	TxState  TxState
	Text     string // outgoing text, heard callsign, or error message
	From     string // originating station of a relay or reply trigger
	To       string // directed call of an outgoing message
	Command  string // auto-reply command
	Outcome  string // relay outcome
	Keyed    bool   // keying requested state
	OK       bool   // keying result
	Count    int    // decode_finished count
	Submodes int    // decode_started submodes
}

// Sink receives events. Implementations must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Nop discards everything.
var Nop Sink = SinkFunc(func(Event) {})

// Fanout delivers each event to every sink in order.
type Fanout struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers another sink. nil is ignored.
func (f *Fanout) Add(s Sink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

func (f *Fanout) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(e)
	}
}

// Recorder keeps every event it receives. Tests use it as a sink.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of what has been recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Of returns recorded events of one kind.
func (r *Recorder) Of(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// TxStates returns the recorded tx-state sequence.
func (r *Recorder) TxStates() []TxState {
	var out []TxState
	for _, e := range r.Of(KindTxState) {
		out = append(out, e.TxState)
	}
	return out
}
