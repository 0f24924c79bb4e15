// Package metrics holds the prometheus collectors of the gateway and the
// optional HTTP endpoint exposing them.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Connection outcomes
const (
	OutcomeScored     = "scored"
	OutcomeNoScore    = "no_score"
	OutcomeProtocol   = "protocol_error"
	OutcomeTimeout    = "timeout"
	OutcomePanic      = "panic"
	OutcomeWriteError = "write_error"
)

// Metrics holds all collectors of the gateway
type Metrics struct {
	registry *prometheus.Registry

	Connections       *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	Lookups           *prometheus.CounterVec
	LookupDuration    *prometheus.HistogramVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Connections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tellows_agi",
				Name:      "connections_total",
				Help:      "FastAGI connections handled, by outcome",
			},
			[]string{"outcome"},
		),
		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tellows_agi",
				Name:      "active_connections",
				Help:      "FastAGI connections currently being handled",
			},
		),
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tellows_agi",
				Name:      "lookups_total",
				Help:      "Cache and remote lookups, by tier and result",
			},
			[]string{"tier", "result"},
		),
		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tellows_agi",
				Name:      "lookup_duration_seconds",
				Help:      "Time spent checking one caller, by deciding tier",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"tier"},
		),
	}
}

// Handler returns the HTTP handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics over HTTP
type Server struct {
	metrics *Metrics
	logger  *zap.Logger
	addr    string
	server  *http.Server
	ln      net.Listener
}

// NewServer creates a metrics server. An empty address disables it.
func NewServer(metrics *Metrics, addr string, logger *zap.Logger) *Server {
	return &Server{
		metrics: metrics,
		logger:  logger,
		addr:    addr,
	}
}

// Start binds the address and serves in the background
func (s *Server) Start() error {
	if s.addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Metrics endpoint starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or nil when not started
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
