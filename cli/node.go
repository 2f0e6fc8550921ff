package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"js8msg/config"
	"js8msg/device"
	"js8msg/device/enginelink"
	"js8msg/event"
	"js8msg/journal"
	"js8msg/observability"
	"js8msg/station"
)

const appName = "js8msg"

// node is a station wired to its engine link, keying, journal and metrics.
type node struct {
	conf config.Config
	log  zerolog.Logger

	station *station.Station
	engine  *enginelink.Client
	keyer   device.Keyer
	events  *event.Fanout

	store     *journal.Store
	journal   *journal.Sink
	logCloser io.Closer
}

// openNode connects everything conf names. console receives human-readable
// logs; the monitor passes io.Discard so the screen stays clean.
func openNode(conf config.Config, console io.Writer) (*node, error) {
	log, logCloser := observability.InitLogger(appName, conf.Log, console)
	n := &node{conf: conf, log: log, logCloser: logCloser, events: event.NewFanout()}

	if conf.Station.Callsign == "" {
		log.Warn().Msg("no callsign configured, the station will only listen")
	}

	engine, err := enginelink.Connect(conf.Engine.Address, log)
	if err != nil {
		n.close()
		return nil, err
	}
	n.engine = engine

	keyer, err := device.ConnectKeying(conf.Keying, log)
	if err != nil {
		n.close()
		return nil, fmt.Errorf("keying: %w", err)
	}
	n.keyer = keyer

	if conf.Journal.Enabled {
		store, err := journal.Open(conf.Journal.Path)
		if err != nil {
			n.close()
			return nil, fmt.Errorf("journal: %w", err)
		}
		n.store = store
		n.journal = journal.NewSink(store, journal.DefaultQueueSize, log)
		n.events.Add(n.journal)
	}

	if conf.Metrics.Listen != "" {
		n.events.Add(observability.NewMetricsSink())
	}

	n.station = station.New(station.Options{
		Settings:        conf.Settings(),
		Transmitter:     engine,
		Keyer:           keyer,
		Events:          n.events,
		Logger:          log,
		MonitorInterval: conf.MonitorInterval(),
	})
	return n, nil
}

// run serves metrics when configured, reloads settings on SIGHUP and runs
// the station until ctx ends or the engine link drops. onReload sees each
// reloaded settings snapshot.
func (n *node) run(ctx context.Context, onReload func(config.Settings)) error {
	if n.conf.Metrics.Listen != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, n.conf.Metrics.Listen, n.log); err != nil {
				n.log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				n.reload(onReload)
			}
		}
	}()

	return n.station.Run(ctx, n.engine)
}

func (n *node) reload(onReload func(config.Settings)) {
	conf, err := loadConfig()
	if err != nil {
		n.log.Error().Err(err).Msg("config reload failed, keeping current settings")
		return
	}
	settings := conf.Settings()
	if err := n.station.UpdateSettings(settings); err != nil {
		n.log.Warn().Err(err).Msg("settings not applied")
		return
	}
	n.log.Info().Str("callsign", settings.MyCall()).Msg("settings reloaded")
	if onReload != nil {
		onReload(settings)
	}
}

func (n *node) close() {
	if n.engine != nil {
		n.engine.Close()
	}
	if n.keyer != nil {
		n.keyer.Close()
	}
	if n.journal != nil {
		n.journal.Close()
	}
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			n.log.Error().Err(err).Msg("failed to close journal")
		}
	}
	if n.logCloser != nil {
		n.logCloser.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
