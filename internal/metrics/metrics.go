// Package metrics collects and exposes Prometheus metrics for the supervisor.
package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/elcapo/elcapo/internal/events"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all supervisor Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	// Per-process metrics, labelled by executable path.
	ProcessStartTotal     *prometheus.CounterVec
	ProcessExitTotal      *prometheus.CounterVec
	ProcessRestartTotal   *prometheus.CounterVec
	ProcessExhaustedTotal *prometheus.CounterVec
	SpawnFailureTotal     *prometheus.CounterVec

	// Supervisor-level metrics.
	BuildInfo *prometheus.GaugeVec
}

// New creates and registers all supervisor metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	// Register default Go runtime metrics.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		ProcessStartTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elcapo_process_start_total",
				Help: "Total number of successful spawns, restarts included.",
			},
			[]string{"path"},
		),

		ProcessExitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elcapo_process_exit_total",
				Help: "Total number of reaped process terminations.",
			},
			[]string{"path", "failed"},
		),

		ProcessRestartTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elcapo_process_restart_total",
				Help: "Total number of restarts granted by the restart policy.",
			},
			[]string{"path"},
		),

		ProcessExhaustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elcapo_process_exhausted_total",
				Help: "Total number of restartable processes that ran out of retries.",
			},
			[]string{"path"},
		),

		SpawnFailureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elcapo_spawn_failures_total",
				Help: "Total number of spawns that failed to start the executable.",
			},
			[]string{"path"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "elcapo_info",
				Help: "Build information about elcapo.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.ProcessStartTotal,
		c.ProcessExitTotal,
		c.ProcessRestartTotal,
		c.ProcessExhaustedTotal,
		c.SpawnFailureTotal,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RegisterLiveCount exposes the live-process count. fn is called on every
// scrape from the HTTP goroutine and must be safe for concurrent use.
func (c *Collector) RegisterLiveCount(fn func() int64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "elcapo_live_processes",
			Help: "Number of supervised processes currently running.",
		},
		func() float64 { return float64(fn()) },
	))
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Subscribe updates the counters from lifecycle events published on bus.
func (c *Collector) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.ProcessStarted, func(e events.Event) {
		c.ProcessStartTotal.WithLabelValues(e.Data["path"]).Inc()
	})
	bus.Subscribe(events.ProcessRestarted, func(e events.Event) {
		c.ProcessStartTotal.WithLabelValues(e.Data["path"]).Inc()
		c.ProcessRestartTotal.WithLabelValues(e.Data["path"]).Inc()
	})
	bus.Subscribe(events.ProcessFinished, func(e events.Event) {
		failed := "true"
		if e.Data["exited"] == "true" && e.Data["code"] == "0" {
			failed = "false"
		}
		c.ProcessExitTotal.WithLabelValues(e.Data["path"], failed).Inc()
	})
	bus.Subscribe(events.ProcessExhausted, func(e events.Event) {
		c.ProcessExhaustedTotal.WithLabelValues(e.Data["path"]).Inc()
	})
	bus.Subscribe(events.ProcessSpawnFailed, func(e events.Event) {
		c.SpawnFailureTotal.WithLabelValues(e.Data["path"]).Inc()
	})
}

// Router returns the HTTP routes served by Listen: GET /metrics and a
// GET /healthz liveness probe.
func (c *Collector) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// Server serves the metrics endpoint on a TCP address.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
	done   chan struct{}
}

// Listen binds addr and starts serving Router in the background.
func (c *Collector) Listen(addr string, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv:    &http.Server{Handler: c.Router(), ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close shuts the server down, waiting up to five seconds for in-flight
// scrapes.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
