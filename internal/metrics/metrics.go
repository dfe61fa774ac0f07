// Package metrics exposes Prometheus counters for the event loop, commands
// and the control socket.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds every collector, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	EventsTotal     *prometheus.CounterVec
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	IPCRequests     *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec

	ManagedWindows prometheus.Gauge
	Workspaces     prometheus.Gauge
	Restarts       prometheus.Counter
}

// New creates the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxidewm_x_events_total",
				Help: "X events handled, by event type.",
			},
			[]string{"type"},
		),
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxidewm_commands_total",
				Help: "Commands run, by command and outcome.",
			},
			[]string{"command", "status"},
		),
		CommandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oxidewm_command_duration_seconds",
				Help:    "Time spent running a command.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"command"},
		),
		IPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxidewm_ipc_requests_total",
				Help: "Control socket requests, by action and outcome.",
			},
			[]string{"action", "status"},
		),
		RequestErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxidewm_x_request_errors_total",
				Help: "Failed X requests, by request.",
			},
			[]string{"request"},
		),
		ManagedWindows: f.NewGauge(prometheus.GaugeOpts{
			Name: "oxidewm_managed_windows",
			Help: "Windows currently managed.",
		}),
		Workspaces: f.NewGauge(prometheus.GaugeOpts{
			Name: "oxidewm_workspaces",
			Help: "Workspaces that currently exist.",
		}),
		Restarts: f.NewCounter(prometheus.CounterOpts{
			Name: "oxidewm_restarts_total",
			Help: "In-place restarts.",
		}),
	}
}

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCommand records one command run.
func (m *Metrics) ObserveCommand(name string, start time.Time, err error) {
	m.CommandsTotal.WithLabelValues(name, Status(err)).Inc()
	m.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
