// Package metrics instruments the engine with Prometheus collectors, grounded
// on presbrey-pkg's echoprom package: a package-level Registry plus
// promauto-registered vectors, and a small HTTP exposer mirroring
// echoprom's startMetricsServer/ShutdownMetricsServer pair.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry used by this package, kept separate
// from the default global registry the same way echoprom.Registry is, so
// embedding applications can mount it wherever they like.
var Registry = prometheus.NewRegistry()

var (
	// FloodQueueDepth reports the current number of messages buffered in a
	// connection's flood-prevention queue,.
	FloodQueueDepth = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "irc_flood_queue_depth",
			Help: "Messages currently queued by flood prevention, per connection.",
		},
		[]string{"server_key"},
	)

	// FloodDropsTotal counts messages dropped (rather than queued) by flood
	// prevention, per overflow-drop policy.
	FloodDropsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "irc_flood_drops_total",
			Help: "Messages dropped by flood prevention because the queue was full.",
		},
		[]string{"server_key"},
	)

	// ConnectionState reports a connection's current state-machine state as
	// a gauge (1 for the active state, 0 otherwise), one series per
	// (server_key, state) pair, per state enumeration.
	ConnectionState = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "irc_connection_state",
			Help: "1 if the connection is currently in this state, else 0.",
		},
		[]string{"server_key", "state"},
	)

	// DCCTransferSpeed reports the current measured transfer speed (bytes
	// per second) of a DCC SEND in progress, per speed
	// sampler.
	DCCTransferSpeed = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "irc_dcc_transfer_speed_bytes",
			Help: "Current measured DCC SEND speed in bytes per second.",
		},
		[]string{"transfer_id"},
	)

	// CollectorLatency measures how long a request collector (WHOIS/WHO/
	// DNS/LIST/channel-modes) takes from request to its terminating reply.
	CollectorLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "irc_collector_latency_seconds",
			Help: "Time from a collector request to its terminating reply.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collector"},
	)
)

// ObserveCollectorLatency is a small helper for the common "time.Since(start)"
// call site in each collector package.
func ObserveCollectorLatency(collector string, start time.Time) {
	CollectorLatency.WithLabelValues(collector).Observe(time.Since(start).Seconds())
}

// SetConnectionState zeroes every other known state for server_key and sets
// state to 1, so the gauge vector always reads as a one-hot encoding of the
// connection's current state.
func SetConnectionState(serverKey string, states []string, current string) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		ConnectionState.WithLabelValues(serverKey, s).Set(v)
	}
}

// Server exposes Registry over HTTP at path, mirroring echoprom's
// startMetricsServer/ShutdownMetricsServer split so an embedding application
// can start and gracefully stop it the same way.
type Server struct {
	http *http.Server
}

// NewServer constructs (but does not start) a metrics HTTP server listening
// on addr (e.g. ":9090") and serving Registry at path (e.g. "/metrics").
func NewServer(addr, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return &Server{http: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the metrics server in a background goroutine. Errors other than
// a graceful Shutdown are reported to errs if non-nil.
func (s *Server) Start(errs chan<- error) {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if errs != nil {
				errs <- err
			}
		}
	}()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
