package provisioning

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/pvecfg/internal/reconcile"
	"github.com/imamik/pvecfg/internal/resource"
)

// Metrics holds the counters of one process. Each Metrics has its own
// registry so that passes in tests do not share state.
type Metrics struct {
	registry *prometheus.Registry

	reconcileTotal    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	passSuccess       prometheus.Gauge
	commandsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers the reconciliation metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pvecfg",
				Name:      "reconcile_total",
				Help:      "Total number of resource reconciliations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pvecfg",
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of resource reconciliation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"kind"},
		),
		passSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pvecfg",
			Name:      "pass_success",
			Help:      "Whether the last pass finished without failed resources (1) or not (0)",
		}),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pvecfg",
				Name:      "remote_commands_total",
				Help:      "Total number of remote commands issued by resource kind and type",
			},
			[]string{"kind", "type"},
		),
	}
	m.registry.MustRegister(m.reconcileTotal, m.reconcileDuration, m.passSuccess, m.commandsTotal)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResult records one resource result.
func (m *Metrics) ObserveResult(res resource.Result) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(string(res.Key.Kind), string(res.Outcome)).Inc()
	if res.Outcome != resource.OutcomeNotAttempted {
		m.reconcileDuration.WithLabelValues(string(res.Key.Kind)).Observe(res.Duration.Seconds())
	}
}

// SetPassSuccess records the overall pass result.
func (m *Metrics) SetPassSuccess(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.passSuccess.Set(1)
	} else {
		m.passSuccess.Set(0)
	}
}

// CommandHook returns a hook counting commands issued by reconcilers.
func (m *Metrics) CommandHook() reconcile.CommandHook {
	if m == nil {
		return nil
	}
	return func(kind resource.Kind, mutating bool) {
		typ := "probe"
		if mutating {
			typ = "mutation"
		}
		m.commandsTotal.WithLabelValues(string(kind), typ).Inc()
	}
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
