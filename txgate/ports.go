package txgate

// TransmitSink is the encoder side of the engine.
type TransmitSink interface {
	// Transmit queues a message; false means the engine refused it.
	Transmit(Request) bool
	// IsTransmitting reports an active transmit session.
	IsTransmitting() bool
	// IsTransmittingAudio reports audio actually being played out.
	IsTransmittingAudio() bool
}

// KeyingSink asserts or releases PTT on the radio.
type KeyingSink interface {
	SetKeying(enabled bool) bool
}

// NoKeying is used when no keying transport is configured (VOX or a
// radio keyed by the audio interface).
type NoKeying struct{}

func (NoKeying) SetKeying(bool) bool { return true }
