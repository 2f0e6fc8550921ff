// Package serialptt keys the transmitter by toggling RTS or DTR on a serial
// port, the way most sound-card interfaces expect.
package serialptt

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Control lines.
const (
	LineRTS = "rts"
	LineDTR = "dtr"
)

// lineSetter is the part of serial.Port the keyer drives.
type lineSetter interface {
	SetRTS(bool) error
	SetDTR(bool) error
	Close() error
}

// Keyer holds the serial port open and drives one control line.
type Keyer struct {
	line string
	log  zerolog.Logger

	mu   sync.Mutex
	port lineSetter
}

// Open opens devicePath and releases PTT.
func Open(devicePath string, baud int, line string, log zerolog.Logger) (*Keyer, error) {
	if devicePath == "" {
		return nil, fmt.Errorf("no device path (e.g., /dev/ttyUSB0 or COM3) provided for serial PTT")
	}
	if line != LineRTS && line != LineDTR {
		return nil, fmt.Errorf("unknown PTT line %q", line)
	}

	mode := &serial.Mode{
		BaudRate: baud,
	}
	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", devicePath, err)
	}

	k := newKeyer(port, line, log)
	if !k.SetKeying(false) {
		port.Close()
		return nil, fmt.Errorf("failed to release PTT on %s", devicePath)
	}
	k.log.Info().Str("device", devicePath).Str("line", line).Msg("serial PTT ready")
	return k, nil
}

func newKeyer(port lineSetter, line string, log zerolog.Logger) *Keyer {
	return &Keyer{
		line: line,
		log:  log.With().Str("component", "serialptt").Logger(),
		port: port,
	}
}

// SetKeying raises or drops the configured control line.
func (k *Keyer) SetKeying(enabled bool) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.port == nil {
		return false
	}

	var err error
	if k.line == LineDTR {
		err = k.port.SetDTR(enabled)
	} else {
		err = k.port.SetRTS(enabled)
	}
	if err != nil {
		k.log.Warn().Err(err).Bool("ptt", enabled).Msg("failed to set control line")
		return false
	}
	return true
}

// Close releases PTT and closes the port.
func (k *Keyer) Close() {
	k.SetKeying(false)
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.port != nil {
		k.port.Close()
		k.port = nil
	}
}
