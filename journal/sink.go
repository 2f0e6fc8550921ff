package journal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"js8msg/event"
	"js8msg/heard"
)

// DefaultQueueSize is how many entries may wait for the writer.
const DefaultQueueSize = 256

// Sink writes station events to a Store on its own goroutine so the
// station loop never waits on the disk.
type Sink struct {
	store *Store
	log   zerolog.Logger

	queue chan Entry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSink starts the writer goroutine.
func NewSink(store *Store, queueSize int, log zerolog.Logger) *Sink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &Sink{
		store: store,
		log:   log.With().Str("component", "journal").Logger(),
		queue: make(chan Entry, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Publish implements event.Sink. Events with no journal form are ignored;
// when the queue is full the entry is dropped.
func (s *Sink) Publish(e event.Event) {
	entry, ok := EntryFor(e)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.log.Warn().Str("kind", entry.Kind).Msg("journal queue full, entry dropped")
	}
}

// Close flushes queued entries and stops the writer. It does not close the
// store.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sink) run() {
	defer s.wg.Done()
	for entry := range s.queue {
		if _, err := s.store.Append(context.Background(), entry); err != nil {
			s.log.Error().Err(err).Str("kind", entry.Kind).Msg("failed to write journal entry")
		}
	}
}

// EntryFor maps a station event to its journal entry.
func EntryFor(e event.Event) (Entry, bool) {
	switch e.Kind {
	case event.KindMessage:
		if e.Message == nil {
			return Entry{}, false
		}
		m := e.Message
		kind := KindReceived
		if m.Partial {
			kind = KindPartial
		}
		at := m.ReceivedAt
		if at.IsZero() {
			at = e.At
		}
		return Entry{
			Kind:        kind,
			At:          at,
			From:        heard.ExtractCallsign(m.Text),
			Text:        m.Text,
			SNR:         m.SNR,
			FrequencyHz: m.FrequencyHz,
			Submode:     m.Submode,
		}, true

	case event.KindTxState:
		switch e.TxState {
		case event.TxFinished:
			return Entry{Kind: KindSent, At: e.At, To: e.To, Text: e.Text}, true
		case event.TxFailed:
			return Entry{Kind: KindTxFailed, At: e.At, To: e.To, Text: e.Text}, true
		}
		return Entry{}, false

	case event.KindRelay:
		return Entry{Kind: KindRelay, At: e.At, From: e.From, Text: e.Text, Detail: e.Outcome}, true

	case event.KindError:
		return Entry{Kind: KindError, At: e.At, Text: e.Text}, true

	default:
		return Entry{}, false
	}
}
