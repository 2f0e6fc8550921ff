package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"js8msg/js8"
)

// DefaultPath is where LoadConfig looks when no path is given.
const DefaultPath = "config.toml"

// Submodes the transmitter accepts.
const (
	SubmodeNormal = 0
	SubmodeFast   = 1
	SubmodeTurbo  = 2
	SubmodeSlow   = 4
)

// Keying transports.
const (
	KeyingNone   = "none"
	KeyingRigctl = "rigctl"
	KeyingSerial = "serial"
)

const (
	defaultAudioFrequency  = 1500.0
	defaultMonitorInterval = 250 * time.Millisecond
	defaultEngineAddress   = "127.0.0.1:2442"
	defaultRigctlAddress   = "127.0.0.1:4532"
	defaultBaud            = 9600
	defaultJournalPath     = "js8msg.db"
)

// ErrNoCallsign is returned where an operator callsign is required.
var ErrNoCallsign = errors.New("no operator callsign configured")

// Config holds all application configuration
type Config struct {
	Station   StationConfig   `toml:"station"`
	Autoreply AutoreplyConfig `toml:"autoreply"`
	Relay     RelayConfig     `toml:"relay"`
	Transmit  TransmitConfig  `toml:"transmit"`
	Engine    EngineConfig    `toml:"engine"`
	Keying    KeyingConfig    `toml:"keying"`
	Journal   JournalConfig   `toml:"journal"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// StationConfig holds settings specific to the user's station
type StationConfig struct {
	Callsign   string `toml:"callsign"`
	GridSquare string `toml:"gridsquare"`
	Info       string `toml:"info"`
	Status     string `toml:"status"`
}

type AutoreplyConfig struct {
	Enabled bool `toml:"enabled"`
}

type RelayConfig struct {
	Enabled bool `toml:"enabled"`
}

// TransmitConfig controls outgoing messages.
type TransmitConfig struct {
	Submode           int     `toml:"submode"`
	AudioFrequency    float64 `toml:"audio_frequency"` // Hz offset in the passband
	MonitorIntervalMs int     `toml:"monitor_interval_ms"`
}

// EngineConfig points at the decoder/encoder engine's line link.
type EngineConfig struct {
	Address string `toml:"address"`
}

// KeyingConfig selects how PTT is asserted.
type KeyingConfig struct {
	Type   string `toml:"type"`   // none, rigctl or serial
	Device string `toml:"device"` // host:port for rigctl, port path for serial
	Line   string `toml:"line"`   // rts or dtr (serial only)
	Baud   int    `toml:"baud"`
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	NoColor    bool   `toml:"no_color"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// LoadConfig reads the configuration from path (DefaultPath when empty),
// then validates and normalizes it.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var conf Config

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	conf, err = Parse(data)
	if err != nil {
		return conf, fmt.Errorf("%s: %w", path, err)
	}
	return conf, nil
}

// Parse decodes TOML data and validates it.
func Parse(data []byte) (Config, error) {
	var conf Config
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, err
	}
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// Validate fills defaults, normalizes case, and rejects settings the
// station cannot run with. A missing callsign is not an error here: the
// station still decodes, it just never transmits.
func (c *Config) Validate() error {
	c.Station.Callsign = js8.NormalizeCall(c.Station.Callsign)
	c.Station.GridSquare = strings.ToUpper(strings.TrimSpace(c.Station.GridSquare))
	c.Station.Info = strings.TrimSpace(c.Station.Info)
	c.Station.Status = strings.TrimSpace(c.Station.Status)

	if c.Station.GridSquare != "" {
		if _, _, err := js8.ParseGrid(c.Station.GridSquare); err != nil {
			return fmt.Errorf("station.gridsquare: %w", err)
		}
	}

	c.Transmit.Submode = SanitizeSubmode(c.Transmit.Submode)
	if c.Transmit.AudioFrequency <= 0 {
		c.Transmit.AudioFrequency = defaultAudioFrequency
	}
	if c.Transmit.MonitorIntervalMs <= 0 {
		c.Transmit.MonitorIntervalMs = int(defaultMonitorInterval / time.Millisecond)
	}

	if strings.TrimSpace(c.Engine.Address) == "" {
		c.Engine.Address = defaultEngineAddress
	}

	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}

	c.Keying.Type = strings.ToLower(strings.TrimSpace(c.Keying.Type))
	switch c.Keying.Type {
	case "", KeyingNone:
		c.Keying.Type = KeyingNone
	case KeyingRigctl:
		if c.Keying.Device == "" {
			c.Keying.Device = defaultRigctlAddress
		}
	case KeyingSerial:
		if c.Keying.Device == "" {
			return fmt.Errorf("keying.device: serial keying needs a port (e.g. /dev/ttyUSB0 or COM3)")
		}
		c.Keying.Line = strings.ToLower(strings.TrimSpace(c.Keying.Line))
		if c.Keying.Line == "" {
			c.Keying.Line = "rts"
		}
		if c.Keying.Line != "rts" && c.Keying.Line != "dtr" {
			return fmt.Errorf("keying.line: unknown control line %q", c.Keying.Line)
		}
		if c.Keying.Baud <= 0 {
			c.Keying.Baud = defaultBaud
		}
	default:
		return fmt.Errorf("keying.type: unknown keying type %q", c.Keying.Type)
	}

	return nil
}

// MonitorInterval is the transmit monitor's polling period.
func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.Transmit.MonitorIntervalMs) * time.Millisecond
}

// Settings takes the read-only snapshot the message plane decides with.
func (c Config) Settings() Settings {
	return Settings{
		AutoreplyEnabled: c.Autoreply.Enabled,
		RelayEnabled:     c.Relay.Enabled,
		Callsign:         c.Station.Callsign,
		Grid:             c.Station.GridSquare,
		Info:             c.Station.Info,
		Status:           c.Station.Status,
		TxSubmode:        SanitizeSubmode(c.Transmit.Submode),
		AudioFrequencyHz: c.Transmit.AudioFrequency,
	}
}

// SanitizeSubmode maps anything other than a known submode to normal.
func SanitizeSubmode(submode int) int {
	switch submode {
	case SubmodeNormal, SubmodeFast, SubmodeTurbo, SubmodeSlow:
		return submode
	default:
		return SubmodeNormal
	}
}
