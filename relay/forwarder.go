// Package relay handles relay directives addressed to this station: it
// collects the relayed payload, validates it and either forwards it to the
// next hop or answers it locally.
package relay

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"js8msg/autoreply"
	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
	"js8msg/js8"
	"js8msg/txgate"
)

// EOM terminates a relayed payload.
const EOM = "♢"

const (
	DefaultTolerance = 10.0
	DefaultTimeout   = 90 * time.Second
)

var (
	targetRegex = regexp.MustCompile(`(?i)^\s*([A-Z0-9/]+)([> ])`)
	pathRegex   = regexp.MustCompile(`(?i)\s(?:\*DE\*|VIA)\s([A-Z0-9/]+)`)
)

// Responder answers relayed commands addressed to this station.
type Responder interface {
	AnswerRelayed(body, path string, snr, submode int, s config.Settings, busy bool) (txgate.Request, bool)
}

// Activity reports whether the transmitter is busy.
type Activity interface {
	Active() bool
}

type buffer struct {
	From        string
	To          string
	SNR         int
	Submode     int
	FrequencyHz float64
	LastUpdated time.Time
	Inline      bool
	Parts       []string
}

// Forwarder holds one relay buffer per frequency bucket. It is owned by the
// station loop and is not safe for concurrent use.
type Forwarder struct {
	Tolerance float64
	Timeout   time.Duration

	responder Responder
	activity  Activity
	events    event.Sink
	log       zerolog.Logger

	buffers map[int]*buffer
}

// Option configures a Forwarder.
type Option func(*Forwarder)

func WithLogger(l zerolog.Logger) Option {
	return func(fw *Forwarder) { fw.log = l.With().Str("component", "relay").Logger() }
}

func WithEvents(s event.Sink) Option {
	return func(fw *Forwarder) {
		if s != nil {
			fw.events = s
		}
	}
}

func New(responder Responder, activity Activity, opts ...Option) *Forwarder {
	fw := &Forwarder{
		Tolerance: DefaultTolerance,
		Timeout:   DefaultTimeout,
		responder: responder,
		activity:  activity,
		events:    event.Nop,
		log:       zerolog.Nop(),
		buffers:   make(map[int]*buffer),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// HandleFrame feeds one decoded frame through the relay state machine and
// returns whatever must be transmitted as a result.
func (fw *Forwarder) HandleFrame(f frame.DecodedFrame, s config.Settings, now time.Time) []txgate.Request {
	if !s.RelayEnabled {
		return nil
	}
	myCall := s.MyCall()
	if myCall == "" {
		return nil
	}
	fw.Sweep(now)

	if d, err := js8.ParseDirected(f.Text); err == nil && d.IsRelay() {
		target := js8.NormalizeCall(d.To)
		if js8.IsGroup(target) || !js8.IsSelf(myCall, target) {
			return nil
		}

		key, ok := fw.match(f.FrequencyHz)
		if !ok {
			key = int(math.Round(f.FrequencyHz))
		}
		buf := &buffer{
			From:        js8.NormalizeCall(d.From),
			To:          target,
			SNR:         f.SNR,
			Submode:     s.Submode(),
			FrequencyHz: f.FrequencyHz,
			LastUpdated: now,
			Inline:      strings.TrimSpace(d.Payload) != "",
		}
		fw.buffers[key] = buf
		fw.log.Info().Str("from", buf.From).Str("to", target).Float64("freq", f.FrequencyHz).Msg("relay command buffered")

		if !buf.Inline {
			return nil
		}
		payload, eom := splitEOM(d.Payload)
		if payload != "" {
			buf.Parts = append(buf.Parts, payload)
		}
		if eom || f.IsLast() {
			delete(fw.buffers, key)
			return fw.finalize(buf, s)
		}
		return nil
	}

	if !f.IsRelayData() {
		return nil
	}
	key, ok := fw.match(f.FrequencyHz)
	if !ok {
		return nil
	}
	buf := fw.buffers[key]
	buf.Parts = append(buf.Parts, f.Text)
	buf.LastUpdated = now
	if !f.IsLast() {
		return nil
	}
	delete(fw.buffers, key)
	return fw.finalize(buf, s)
}

// Sweep discards buffers idle for longer than Timeout and returns how many
// were dropped.
func (fw *Forwarder) Sweep(now time.Time) int {
	dropped := 0
	for key, buf := range fw.buffers {
		if now.Sub(buf.LastUpdated) > fw.Timeout {
			delete(fw.buffers, key)
			dropped++
			fw.log.Debug().Str("from", buf.From).Int("key", key).Msg("relay buffer expired")
			fw.publish(event.RelayExpired, buf.From, "")
		}
	}
	return dropped
}

// Pending reports open relay buffers.
func (fw *Forwarder) Pending() int {
	return len(fw.buffers)
}

func (fw *Forwarder) match(freq float64) (int, bool) {
	keys := make([]int, 0, len(fw.buffers))
	for k := range fw.buffers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if math.Abs(freq-float64(k)) <= fw.Tolerance {
			return k, true
		}
	}
	return 0, false
}

func (fw *Forwarder) finalize(buf *buffer, s config.Settings) []txgate.Request {
	if len(buf.Parts) == 0 {
		return nil
	}
	combined, _ := splitEOM(strings.Join(buf.Parts, ""))
	if strings.TrimSpace(combined) == "" {
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(combined), "@") {
		fw.log.Info().Str("from", buf.From).Msg("relay payload addressed to a group, ignoring")
		fw.publish(event.RelayRejected, buf.From, combined)
		return nil
	}

	var payload string
	valid, body := js8.ValidateChecksum(combined)
	switch {
	case valid:
		payload = body
	case buf.Inline:
		fw.log.Warn().Str("from", buf.From).Msg("relay checksum invalid, forwarding inline payload unvalidated")
		payload = js8.StripChecksum(combined)
	default:
		fw.log.Warn().Str("from", buf.From).Msg("relay payload failed checksum validation")
		fw.publish(event.RelayRejected, buf.From, combined)
		return nil
	}
	if strings.TrimSpace(payload) == "" {
		return nil
	}

	if fwd, ok := ForwardPayload(payload); ok {
		text := fwd
		if buf.From != "" {
			text += " *DE* " + buf.From
		}
		return fw.send(text, buf, s, event.RelayForwarded)
	}

	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(payload)), "ACK") {
		fw.publish(event.RelayAbsorbed, buf.From, payload)
		return nil
	}

	path := strings.Join(Path(buf.From, payload), ">")
	if path == "" {
		return nil
	}
	busy := fw.activity != nil && fw.activity.Active()
	if fw.responder != nil {
		if req, ok := fw.responder.AnswerRelayed(payload, path, buf.SNR, buf.Submode, s, busy); ok {
			fw.publish(event.RelayAnswered, buf.From, req.Text)
			return []txgate.Request{req}
		}
	}
	return fw.send(path+" ACK", buf, s, event.RelayAcked)
}

func (fw *Forwarder) send(text string, buf *buffer, s config.Settings, outcome string) []txgate.Request {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if fw.activity != nil && fw.activity.Active() {
		fw.log.Warn().Str("outcome", outcome).Msg("transmitter busy, relay reply dropped")
		return nil
	}
	req := autoreply.NewRequest(s, s.MyCall(), text, "")
	req.Submode = buf.Submode
	fw.log.Info().Str("outcome", outcome).Str("text", text).Msg("relay reply")
	fw.publish(outcome, buf.From, text)
	return []txgate.Request{req}
}

func (fw *Forwarder) publish(outcome, from, text string) {
	fw.events.Publish(event.Event{Kind: event.KindRelay, Outcome: outcome, From: from, Text: text})
}

// ForwardPayload turns a relayed payload that names a further hop into the
// text to transmit: "CALL>rest" is kept, "CALL rest" becomes "CALL>rest".
// Payloads that do not start with a station call are not forwardable.
func ForwardPayload(message string) (string, bool) {
	trimmed := strings.TrimLeft(message, " \t\r\n")
	m := targetRegex.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	target := strings.ToUpper(m[1])
	if !js8.IsCallsignLike(target) || js8.IsGroup(target) {
		return "", false
	}
	if m[2] == ">" {
		return trimmed, true
	}
	i := len(m[1])
	if i >= len(trimmed) {
		return "", false
	}
	return trimmed[:i] + ">" + trimmed[i+1:], true
}

// Path lists the stations a relayed message passed through, nearest first:
// the sender, then every *DE* or VIA marker in text from last to first.
func Path(from, text string) []string {
	var calls []string
	matches := pathRegex.FindAllStringSubmatch(strings.ToUpper(text), -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if call := strings.TrimSpace(matches[i][1]); call != "" {
			calls = append(calls, call)
		}
	}
	if base := js8.NormalizeCall(from); base != "" {
		calls = append([]string{base}, calls...)
	}
	return calls
}

func splitEOM(payload string) (string, bool) {
	trimmed := strings.TrimRight(payload, " \t\r\n")
	if strings.HasSuffix(trimmed, EOM) {
		return strings.TrimRight(strings.TrimSuffix(trimmed, EOM), " \t\r\n"), true
	}
	return trimmed, false
}
