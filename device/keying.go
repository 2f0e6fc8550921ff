// Package device connects the station to the radio hardware named in the
// configuration.
package device

import (
	"fmt"

	"github.com/rs/zerolog"

	"js8msg/config"
	"js8msg/device/rigctl"
	"js8msg/device/serialptt"
	"js8msg/txgate"
)

// Keyer is a keying transport that holds a connection open.
type Keyer interface {
	txgate.KeyingSink
	Close()
}

type noKeyer struct{ txgate.NoKeying }

func (noKeyer) Close() {}

// ConnectKeying opens the keying transport selected by conf.Type.
func ConnectKeying(conf config.KeyingConfig, log zerolog.Logger) (Keyer, error) {
	log.Info().Str("type", conf.Type).Msg("connecting keying interface")

	switch conf.Type {
	case "", config.KeyingNone:
		return noKeyer{}, nil

	case config.KeyingRigctl:
		c, err := rigctl.Connect(conf.Device, log)
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.KeyingSerial:
		k, err := serialptt.Open(conf.Device, conf.Baud, conf.Line, log)
		if err != nil {
			return nil, err
		}
		return k, nil

	default:
		return nil, fmt.Errorf("unknown keying type: %s", conf.Type)
	}
}
