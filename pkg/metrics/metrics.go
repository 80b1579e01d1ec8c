// Package metrics provides Prometheus instrumentation for admission guards.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vnykmshr/admit/pkg/admission/guard"
)

const subsystem = "admission"

// Outcome label values for WaitDuration.
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
)

// Registry holds the admission metrics and implements guard.Observer.
type Registry struct {
	Budget     *prometheus.GaugeVec
	Held       *prometheus.GaugeVec
	Waiting    *prometheus.GaugeVec
	Admitted   *prometheus.CounterVec
	Rejected   *prometheus.CounterVec
	Exited     *prometheus.CounterVec
	Violations *prometheus.CounterVec

	WaitDuration *prometheus.HistogramVec
}

var _ guard.Observer = (*Registry)(nil)

// NewRegistry creates the admission metrics in the default namespace and
// registers them with reg. It panics if they are already registered there.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	cfg.Registry = reg
	return newRegistry(cfg)
}

// NewRegistryWithConfig creates the admission metrics described by cfg.
func NewRegistryWithConfig(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newRegistry(cfg), nil
}

// NewObserver returns a Registry for cfg, or a guard.NopObserver when
// metrics are disabled.
func NewObserver(cfg Config) (guard.Observer, error) {
	if !cfg.Enabled {
		return guard.NopObserver{}, nil
	}
	return NewRegistryWithConfig(cfg)
}

func newRegistry(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	labels := []string{"resource"}

	return &Registry{
		Budget: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "budget",
				Help:        "Configured permit budget per resource",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Held: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "held",
				Help:        "Permits currently held per resource",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Waiting: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "waiting",
				Help:        "Callers currently waiting for a permit per resource",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Admitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "admitted_total",
				Help:        "Total number of admitted callers",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "rejected_total",
				Help:        "Total number of rejected callers",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Exited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "exited_total",
				Help:        "Total number of permits returned",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "violations_total",
				Help:        "Total number of exits without a matching admission",
				ConstLabels: cfg.Labels,
			},
			labels,
		),

		WaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   subsystem,
				Name:        "wait_duration_seconds",
				Help:        "Time spent waiting for an admission decision",
				Buckets:     cfg.buckets(),
				ConstLabels: cfg.Labels,
			},
			[]string{"resource", "outcome"},
		),
	}
}

// ObserveRegister records the budget and zeroes the per-resource series so
// they are exported before the first event.
func (r *Registry) ObserveRegister(key string, budget int) {
	r.Budget.WithLabelValues(key).Set(float64(budget))
	r.Held.WithLabelValues(key).Set(0)
	r.Waiting.WithLabelValues(key).Set(0)
	r.Admitted.WithLabelValues(key)
	r.Rejected.WithLabelValues(key)
	r.Exited.WithLabelValues(key)
	r.Violations.WithLabelValues(key)
}

// ObserveAdmit counts an admission and records how long it waited.
func (r *Registry) ObserveAdmit(key string, waited time.Duration) {
	r.Admitted.WithLabelValues(key).Inc()
	r.WaitDuration.WithLabelValues(key, OutcomeAdmitted).Observe(waited.Seconds())
}

// ObserveReject counts a rejection and records how long it waited.
func (r *Registry) ObserveReject(key string, waited time.Duration) {
	r.Rejected.WithLabelValues(key).Inc()
	r.WaitDuration.WithLabelValues(key, OutcomeRejected).Observe(waited.Seconds())
}

// ObserveExit counts a returned permit.
func (r *Registry) ObserveExit(key string) {
	r.Exited.WithLabelValues(key).Inc()
}

// ObserveViolation counts an exit without a matching admission.
func (r *Registry) ObserveViolation(key string) {
	r.Violations.WithLabelValues(key).Inc()
}

// ObserveOccupancy sets the held and waiting gauges.
func (r *Registry) ObserveOccupancy(key string, held, waiting int) {
	r.Held.WithLabelValues(key).Set(float64(held))
	r.Waiting.WithLabelValues(key).Set(float64(waiting))
}
