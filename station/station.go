// Package station runs the message plane: one goroutine owns reassembly,
// relay and heard state and turns decoded frames into replies.
package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"js8msg/autoreply"
	"js8msg/config"
	"js8msg/event"
	"js8msg/frame"
	"js8msg/heard"
	"js8msg/js8"
	"js8msg/reassembly"
	"js8msg/relay"
	"js8msg/txgate"
)

// DefaultSweepInterval is how often timed-out buffers are flushed when no
// frames arrive.
const DefaultSweepInterval = time.Second

var (
	ErrStopped      = errors.New("station stopped")
	ErrSourceClosed = errors.New("frame source closed")
)

// FrameSource delivers engine output. Start runs until Close and may close
// out when the link ends.
type FrameSource interface {
	Start(out chan<- frame.Inbound)
	Close()
}

// Options wires a Station to its collaborators.
type Options struct {
	Settings        config.Settings
	Transmitter     txgate.TransmitSink
	Keyer           txgate.KeyingSink
	Events          event.Sink
	Logger          zerolog.Logger
	MonitorInterval time.Duration
	SweepInterval   time.Duration
	Clock           func() time.Time
}

type command struct {
	fn    func(ctx context.Context) error
	reply chan error
}

// Station is the serialized actor behind the message plane.
type Station struct {
	gate   *txgate.Gate
	events event.Sink
	log    zerolog.Logger
	now    func() time.Time
	sweep  time.Duration

	// loop-owned
	settings config.Settings
	reasm    *reassembly.Buffer
	heard    *heard.Registry
	relay    *relay.Forwarder
	policy   *autoreply.Policy

	settingsCh chan config.Settings
	commands   chan command
	done       chan struct{}
}

func New(opts Options) *Station {
	events := opts.Events
	if events == nil {
		events = event.Nop
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	log := opts.Logger.With().Str("component", "station").Logger()

	gate := txgate.New(opts.Transmitter, opts.Keyer,
		txgate.WithEvents(events),
		txgate.WithLogger(opts.Logger),
		txgate.WithMonitorInterval(opts.MonitorInterval),
	)
	registry := heard.New()
	policy := autoreply.New(registry, gate,
		autoreply.WithEvents(events),
		autoreply.WithLogger(opts.Logger),
		autoreply.WithClock(now),
	)

	return &Station{
		gate:       gate,
		events:     events,
		log:        log,
		now:        now,
		sweep:      sweep,
		settings:   opts.Settings,
		reasm:      reassembly.New(),
		heard:      registry,
		relay:      relay.New(policy, gate, relay.WithEvents(events), relay.WithLogger(opts.Logger)),
		policy:     policy,
		settingsCh: make(chan config.Settings, 1),
		commands:   make(chan command),
		done:       make(chan struct{}),
	}
}

// Run processes frames from src until ctx is cancelled or src closes its
// channel. Run may be called once.
func (s *Station) Run(ctx context.Context, src FrameSource) error {
	defer close(s.done)
	defer s.gate.Close()

	in := make(chan frame.Inbound, 64)
	if src != nil {
		go src.Start(in)
		defer src.Close()
	}

	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	s.log.Info().Str("callsign", s.settings.MyCall()).Msg("station running")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("station stopping")
			return nil

		case msg, ok := <-in:
			if !ok {
				s.log.Warn().Msg("frame source closed")
				return ErrSourceClosed
			}
			s.applySettings()
			s.handle(ctx, msg)

		case settings := <-s.settingsCh:
			s.setSettings(settings)

		case cmd := <-s.commands:
			s.applySettings()
			cmd.reply <- cmd.fn(ctx)

		case <-ticker.C:
			s.sweepBuffers(ctx)
		}
	}
}

// UpdateSettings replaces the settings snapshot used for later decisions.
// Only the newest pending snapshot is kept; it takes effect before the next
// frame or command is handled.
func (s *Station) UpdateSettings(settings config.Settings) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	for {
		select {
		case <-s.done:
			return ErrStopped
		case s.settingsCh <- settings:
			return nil
		default:
		}
		select {
		case <-s.settingsCh:
		default:
		}
	}
}

// Send transmits an operator message. CQ and heartbeat text gets the grid
// appended when it carries none.
func (s *Station) Send(ctx context.Context, text, selectedCall string) error {
	return s.do(ctx, func(ctx context.Context) error {
		text = strings.TrimSpace(text)
		if text == "" {
			return txgate.ErrEmpty
		}
		myCall, ok := s.policy.Callsign(s.settings)
		if !ok {
			return config.ErrNoCallsign
		}
		payload := js8.ApplyGridIfHeartbeat(text, s.settings.MyGrid())
		req := autoreply.NewRequest(s.settings, myCall, payload, selectedCall)
		if err := s.gate.Submit(ctx, req); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	})
}

// Heartbeat sends an @HB HEARTBEAT beacon.
func (s *Station) Heartbeat(ctx context.Context) error {
	return s.Send(ctx, "@HB HEARTBEAT", "")
}

// Retry resubmits the last transmission the engine rejected.
func (s *Station) Retry(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.gate.Retry(ctx); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		return nil
	})
}

// Cancel abandons the current transmission.
func (s *Station) Cancel(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		s.gate.Cancel()
		return nil
	})
}

// Heard returns the recently heard calls, most recent first.
func (s *Station) Heard(ctx context.Context) ([]string, error) {
	var calls []string
	err := s.do(ctx, func(context.Context) error {
		calls = s.heard.Recent(nil, 0, s.now())
		return nil
	})
	return calls, err
}

// Transmitting reports whether a transmission is in flight.
func (s *Station) Transmitting() bool {
	return s.gate.Active()
}

func (s *Station) applySettings() {
	select {
	case settings := <-s.settingsCh:
		s.setSettings(settings)
	default:
	}
}

func (s *Station) setSettings(settings config.Settings) {
	s.settings = settings
	s.log.Debug().
		Bool("autoreply", settings.AutoreplyEnabled).
		Bool("relay", settings.RelayEnabled).
		Str("callsign", settings.MyCall()).
		Msg("settings updated")
}

func (s *Station) do(ctx context.Context, fn func(context.Context) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Station) handle(ctx context.Context, in frame.Inbound) {
	switch in.Kind {
	case frame.InboundDecoded:
		s.handleFrame(ctx, in.Frame)
	case frame.InboundDecodeStarted:
		s.events.Publish(event.Event{Kind: event.KindDecodeStarted, Submodes: in.Submodes})
	case frame.InboundDecodeFinished:
		s.events.Publish(event.Event{Kind: event.KindDecodeFinished, Count: in.Count})
	case frame.InboundError:
		s.log.Error().Str("error", in.Error).Msg("engine error")
		s.events.Publish(event.Event{Kind: event.KindError, Text: in.Error})
	}
}

func (s *Station) handleFrame(ctx context.Context, f frame.DecodedFrame) {
	now := s.now()
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = now
	}
	s.log.Debug().Int("snr", f.SNR).Float64("freq", f.FrequencyHz).Str("text", f.Text).Msg("decoded")
	s.events.Publish(event.Event{Kind: event.KindDecoded, Frame: &f})

	if call, ok := s.heard.Observe(f.Text, now); ok {
		s.events.Publish(event.Event{Kind: event.KindHeard, Text: call})
	}

	for _, req := range s.relay.HandleFrame(f, s.settings, now) {
		if err := s.gate.Submit(ctx, req); err != nil {
			s.log.Warn().Err(err).Msg("relay transmission not submitted")
		}
	}

	for _, m := range s.reasm.Ingest(f, now) {
		s.handleMessage(ctx, m)
	}
}

func (s *Station) handleMessage(ctx context.Context, m frame.Message) {
	s.log.Info().Bool("partial", m.Partial).Int("frames", m.Frames).Str("text", m.Text).Msg("message")
	msg := m
	s.events.Publish(event.Event{Kind: event.KindMessage, Message: &msg})
	if m.Partial {
		return
	}

	req, ok := s.policy.Respond(m, s.settings, s.gate.Active())
	if !ok {
		return
	}
	if err := s.gate.Submit(ctx, req); err != nil {
		s.log.Warn().Err(err).Msg("automatic reply not submitted")
		return
	}
	s.events.Publish(event.Event{
		Kind:    event.KindAutoReply,
		Command: commandOf(m.Text),
		From:    heard.ExtractCallsign(m.Text),
		To:      req.SelectedCall,
		Text:    req.Text,
	})
}

func (s *Station) sweepBuffers(ctx context.Context) {
	now := s.now()
	for _, m := range s.reasm.Sweep(now) {
		s.handleMessage(ctx, m)
	}
	s.relay.Sweep(now)
	s.heard.Prune(now)
}

func commandOf(text string) string {
	c := js8.Classify(text)
	switch c.Kind {
	case js8.KindHeartbeat:
		return "HEARTBEAT"
	case js8.KindQuery:
		return js8.NormalizeCommand(c.Directed.Command)
	default:
		return ""
	}
}
