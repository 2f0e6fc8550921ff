package config

import (
	"strings"

	"js8msg/js8"
)

// Settings is the operator preference snapshot consulted for each decision.
type Settings struct {
	AutoreplyEnabled bool
	RelayEnabled     bool
	Callsign         string
	Grid             string
	Info             string
	Status           string
	TxSubmode        int
	AudioFrequencyHz float64
}

// MyCall returns the normalized operator callsign, or "" when unset.
func (s Settings) MyCall() string {
	return js8.NormalizeCall(s.Callsign)
}

// MyGrid returns the uppercased full locator.
func (s Settings) MyGrid() string {
	return strings.ToUpper(strings.TrimSpace(s.Grid))
}

// Submode returns the preferred transmit submode.
func (s Settings) Submode() int {
	return SanitizeSubmode(s.TxSubmode)
}

// AudioFrequency returns the transmit audio offset, falling back to the
// default when unset.
func (s Settings) AudioFrequency() float64 {
	if s.AudioFrequencyHz <= 0 {
		return defaultAudioFrequency
	}
	return s.AudioFrequencyHz
}
