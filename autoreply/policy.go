// Package autoreply decides which decoded messages the station answers on
// its own: heartbeat acknowledgements and the fixed set of directed queries.
package autoreply

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
	"js8msg/heard"
	"js8msg/js8"
	"js8msg/txgate"
)

// HeardLister supplies the calls a HEARING? reply lists.
type HeardLister interface {
	Recent(exclude []string, limit int, now time.Time) []string
}

// MessageHistory supplies the last message that went on air, for AGN?.
type MessageHistory interface {
	LastMessage() string
}

// Policy builds reply requests. It is owned by the station loop and is not
// safe for concurrent use.
type Policy struct {
	heard   HeardLister
	history MessageHistory
	events  event.Sink
	log     zerolog.Logger
	now     func() time.Time

	warned bool
}

// Option configures a Policy.
type Option func(*Policy)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Policy) { p.log = l.With().Str("component", "autoreply").Logger() }
}

func WithEvents(s event.Sink) Option {
	return func(p *Policy) {
		if s != nil {
			p.events = s
		}
	}
}

// WithClock overrides the time source used for heard-list lookups.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

func New(heardCalls HeardLister, history MessageHistory, opts ...Option) *Policy {
	p := &Policy{
		heard:   heardCalls,
		history: history,
		events:  event.Nop,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Callsign returns the configured operator call. While none is configured
// it raises a single warning; configuring one re-arms the warning.
func (p *Policy) Callsign(s config.Settings) (string, bool) {
	call := s.MyCall()
	if call == "" {
		if !p.warned {
			p.warned = true
			p.log.Warn().Err(config.ErrNoCallsign).Msg("automatic replies suppressed")
			p.events.Publish(event.Event{Kind: event.KindError, Text: config.ErrNoCallsign.Error()})
		}
		return "", false
	}
	p.warned = false
	return call, true
}

// Respond returns the reply to an assembled message, if one is due.
func (p *Policy) Respond(m frame.Message, s config.Settings, busy bool) (txgate.Request, bool) {
	if !s.AutoreplyEnabled {
		return txgate.Request{}, false
	}
	myCall, ok := p.Callsign(s)
	if !ok || busy {
		return txgate.Request{}, false
	}

	c := js8.Classify(m.Text)
	switch c.Kind {
	case js8.KindHeartbeat:
		from := js8.NormalizeCall(c.Heartbeat.From)
		if js8.IsSelf(myCall, from) {
			return txgate.Request{}, false
		}
		snr := js8.FormatSNR(m.SNR)
		if snr == "" {
			return txgate.Request{}, false
		}
		p.log.Info().Str("from", from).Str("snr", snr).Msg("heartbeat acknowledged")
		return NewRequest(s, myCall, "HEARTBEAT SNR "+snr, from), true

	case js8.KindQuery:
		d := c.Directed
		if !shouldReply(myCall, d) {
			return txgate.Request{}, false
		}
		from := js8.NormalizeCall(d.From)
		cmd := js8.NormalizeCommand(d.Command)
		a, ok := p.answer(cmd, m.SNR, s, []string{from, myCall})
		if !ok {
			return txgate.Request{}, false
		}
		p.log.Info().Str("from", from).Str("command", cmd).Msg("query answered")
		if a.resend {
			return NewRequest(s, myCall, a.text, ""), true
		}
		return NewRequest(s, myCall, a.text, from), true

	default:
		return txgate.Request{}, false
	}
}

// AnswerRelayed answers a command that arrived through a relay. The reply
// is sent undirected, prefixed with path so it travels back the way it came.
func (p *Policy) AnswerRelayed(body, path string, snr, submode int, s config.Settings, busy bool) (txgate.Request, bool) {
	if !s.AutoreplyEnabled || busy {
		return txgate.Request{}, false
	}
	myCall, ok := p.Callsign(s)
	if !ok {
		return txgate.Request{}, false
	}
	fields := strings.Fields(body)
	if len(fields) == 0 || path == "" {
		return txgate.Request{}, false
	}

	cmd := js8.NormalizeCommand(fields[0])
	exclude := append(strings.Split(path, ">"), myCall)
	a, ok := p.answer(cmd, snr, s, exclude)
	if !ok {
		return txgate.Request{}, false
	}
	p.log.Info().Str("path", path).Str("command", cmd).Msg("relayed query answered")

	text := a.text
	if !a.resend {
		text = path + " " + a.text
	}
	req := NewRequest(s, myCall, text, "")
	req.Submode = config.SanitizeSubmode(submode)
	return req, true
}

type answer struct {
	text   string
	resend bool // text is a previous message repeated verbatim
}

func (p *Policy) answer(cmd string, snr int, s config.Settings, exclude []string) (answer, bool) {
	switch cmd {
	case js8.CmdSNR, js8.CmdSNRAlt:
		v := js8.FormatSNR(snr)
		if v == "" {
			return answer{}, false
		}
		return answer{text: "SNR " + v}, true
	case js8.CmdInfo:
		return field("INFO", s.Info)
	case js8.CmdStatus:
		return field("STATUS", s.Status)
	case js8.CmdHearing:
		if p.heard == nil {
			return answer{}, false
		}
		calls := p.heard.Recent(exclude, heard.DefaultLimit, p.now())
		if len(calls) == 0 {
			return answer{}, false
		}
		return answer{text: "HEARING " + strings.Join(calls, " ")}, true
	case js8.CmdGrid:
		return field("GRID", js8.Grid4(s.MyGrid()))
	case js8.CmdAgain:
		if p.history == nil {
			return answer{}, false
		}
		last := strings.TrimRight(p.history.LastMessage(), " \t\r\n")
		if strings.TrimSpace(last) == "" {
			return answer{}, false
		}
		return answer{text: last, resend: true}, true
	default:
		return answer{}, false
	}
}

func field(label, value string) (answer, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return answer{}, false
	}
	return answer{text: label + " " + value}, true
}

// shouldReply accepts queries addressed to us, never to a group, and not
// sent by us.
func shouldReply(myCall string, d js8.Directed) bool {
	to := js8.NormalizeCall(d.To)
	if js8.IsGroup(to) {
		return false
	}
	if !js8.IsSelf(myCall, to) {
		return false
	}
	return !js8.IsSelf(myCall, d.From)
}

// NewRequest fills a transmit request from the current settings.
func NewRequest(s config.Settings, myCall, text, to string) txgate.Request {
	return txgate.Request{
		Text:             strings.TrimSpace(text),
		MyCall:           myCall,
		MyGrid:           s.MyGrid(),
		SelectedCall:     js8.NormalizeCall(to),
		Submode:          s.Submode(),
		AudioFrequencyHz: s.AudioFrequency(),
		ForceIdentify:    myCall != "",
	}
}
