package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"js8msg/event"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "rx",
			Name:      "frames_total",
			Help:      "Decoded frames received from the engine.",
		},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "rx",
			Name:      "messages_total",
			Help:      "Reassembled messages.",
		},
		[]string{"partial"},
	)
	txStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "tx",
			Name:      "state_changes_total",
			Help:      "Transmit lifecycle transitions.",
		},
		[]string{"state"},
	)
	autoReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "autoreply",
			Name:      "replies_total",
			Help:      "Automatic replies submitted, by command.",
		},
		[]string{"command"},
	)
	relayOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "relay",
			Name:      "outcomes_total",
			Help:      "Relay buffers finalized, by outcome.",
		},
		[]string{"outcome"},
	)
	keyingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "keying",
			Name:      "operations_total",
			Help:      "PTT assert/release requests.",
		},
		[]string{"keyed", "ok"},
	)
	heardStations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Subsystem: "rx",
			Name:      "heard_total",
			Help:      "Callsign observations added to the heard list.",
		},
	)
	errorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "js8msg",
			Name:      "errors_total",
			Help:      "Errors reported by the engine or the station.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesDecoded, messages, txStates, autoReplies, relayOutcomes, keyingOps, heardStations, errorsTotal)
	})
}

// MetricsSink counts station events.
type MetricsSink struct{}

func NewMetricsSink() MetricsSink {
	RegisterMetrics()
	return MetricsSink{}
}

func (MetricsSink) Publish(e event.Event) {
	switch e.Kind {
	case event.KindDecoded:
		framesDecoded.Inc()
	case event.KindMessage:
		partial := e.Message != nil && e.Message.Partial
		messages.WithLabelValues(boolLabel(partial)).Inc()
	case event.KindTxState:
		txStates.WithLabelValues(string(e.TxState)).Inc()
	case event.KindAutoReply:
		autoReplies.WithLabelValues(e.Command).Inc()
	case event.KindRelay:
		relayOutcomes.WithLabelValues(e.Outcome).Inc()
	case event.KindKeying:
		keyingOps.WithLabelValues(boolLabel(e.Keyed), boolLabel(e.OK)).Inc()
	case event.KindHeard:
		heardStations.Inc()
	case event.KindError:
		errorsTotal.Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ServeMetrics exposes /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, log zerolog.Logger) error {
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
