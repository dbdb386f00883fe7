// Package metrics exposes Prometheus metrics for the modeswitch node.
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

	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
)

const namespace = "modeswitch"

// Metrics holds the node's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	switchesTotal     *prometheus.CounterVec
	switchDuration    prometheus.Histogram
	switchAttempts    prometheus.Histogram
	activeControllers prometheus.Gauge
	pendingChanges    prometheus.Gauge
	lifecycleState    prometheus.Gauge
	loopTicks         prometheus.Gauge
}

// New creates the collectors and registers them, along with the Go and
// process collectors, on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		switchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "switches_total",
				Help:      "Total number of controller switches by outcome",
			},
			[]string{"outcome"},
		),

		switchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "switch_duration_seconds",
				Help:      "Duration of controller switches including retries",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		switchAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "switch_attempts",
				Help:      "Controller manager calls per switch",
				Buckets:   []float64{0, 1, 2, 3, 5, 8},
			},
		),

		activeControllers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_controllers",
				Help:      "Number of active controllers, fixed controllers excluded",
			},
		),

		pendingChanges: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_changes",
				Help:      "Controllers in unapproved activate or deactivate sets",
			},
		),

		lifecycleState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lifecycle_state",
				Help:      "Node lifecycle state (0=unconfigured, 1=inactive, 2=active, 3=finalized)",
			},
		),

		loopTicks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loop_ticks",
				Help:      "Control loop iterations since the node was last activated",
			},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnSwitch implements app.SwitchEventEmitter.
func (m *Metrics) OnSwitch(result domain.SwitchResult) {
	m.switchesTotal.WithLabelValues(result.Outcome.String()).Inc()
	m.switchDuration.Observe(result.Duration.Seconds())
	m.switchAttempts.Observe(float64(result.Attempts))
}

// OnSnapshot implements app.SnapshotEmitter.
func (m *Metrics) OnSnapshot(snap domain.Snapshot) {
	m.activeControllers.Set(float64(len(snap.Active)))
	m.pendingChanges.Set(float64(len(snap.Pending.Activate) + len(snap.Pending.Deactivate)))
	m.loopTicks.Set(float64(snap.Ticks))
}

// OnStateChange implements app.EventEmitter.
func (m *Metrics) OnStateChange(previous, current app.State, reason string) {
	m.lifecycleState.Set(float64(current))
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
