package frame

import (
	"fmt"
	"time"
)

// Flags carries the multi-part markers the decoder attaches to each frame.
type Flags int

const (
	FlagFirst     Flags = 1 << iota // First frame of a message
	FlagLast                        // Last frame of a message
	FlagRelayData                   // Continuation data for a relay directive
)

// DecodedFrame is one demodulated packet as reported by the decoder engine.
type DecodedFrame struct {
	UTC         int
	SNR         int
	DT          float64
	FrequencyHz float64
	Text        string
	Flags       Flags
	Quality     float64
	Submode     int

	ReceivedAt time.Time // Stamped on arrival, not by the decoder
}

func (f DecodedFrame) IsFirst() bool     { return f.Flags&FlagFirst != 0 }
func (f DecodedFrame) IsLast() bool      { return f.Flags&FlagLast != 0 }
func (f DecodedFrame) IsRelayData() bool { return f.Flags&FlagRelayData != 0 }

// IsSingle reports a complete one-frame message (first and last both set).
func (f DecodedFrame) IsSingle() bool { return f.IsFirst() && f.IsLast() }

// Message is an assembled message. Metadata comes from its last frame.
type Message struct {
	Text        string
	UTC         int
	SNR         int
	DT          float64
	FrequencyHz float64
	Flags       Flags
	Quality     float64
	Submode     int

	Frames     int  // Number of frames that went into Text
	Partial    bool // Flushed by timeout before the last frame arrived
	ReceivedAt time.Time
}

// FromFrame wraps a complete single frame as a Message.
func FromFrame(f DecodedFrame) Message {
	return Message{
		Text:        f.Text,
		UTC:         f.UTC,
		SNR:         f.SNR,
		DT:          f.DT,
		FrequencyHz: f.FrequencyHz,
		Flags:       f.Flags,
		Quality:     f.Quality,
		Submode:     f.Submode,
		Frames:      1,
		ReceivedAt:  f.ReceivedAt,
	}
}

// DisplayString renders the message the way the decode list shows it:
// HHMM  SNR  DT  FREQ  TEXT
func (m Message) DisplayString() string {
	return fmt.Sprintf("%04d  %+3d dB  %+5.1f s  %7.1f Hz  %s",
		m.UTC, m.SNR, m.DT, m.FrequencyHz, m.Text)
}

// FormattedTime returns HH:MM from the decoder's HHMM utc field.
func (m Message) FormattedTime() string {
	return fmt.Sprintf("%02d:%02d", m.UTC/100, m.UTC%100)
}
