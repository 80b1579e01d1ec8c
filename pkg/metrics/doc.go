// Package metrics provides Prometheus instrumentation for admission guards.
//
// A *Registry implements guard.Observer, so instrumenting a guard is a single
// option:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//	g := guard.New(guard.WithObserver(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
// Every series carries a resource label holding the guard key:
//
//   - admit_admission_budget: Configured permit budget
//   - admit_admission_held: Permits currently held
//   - admit_admission_waiting: Callers currently waiting for a permit
//   - admit_admission_admitted_total: Admitted callers
//   - admit_admission_rejected_total: Rejected callers
//   - admit_admission_exited_total: Permits returned
//   - admit_admission_violations_total: Exits without a matching admission
//   - admit_admission_wait_duration_seconds: Time to a decision, by outcome
//
// The held and waiting gauges are sampled after each event. Under heavy
// contention a scrape may briefly show a stale value; the guard's own Stats
// are authoritative.
//
// # Configuration
//
//	config := metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.DefaultRegisterer,
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"service": "checkout"},
//	}
//	obs, err := metrics.NewObserver(config)
//
// NewObserver returns a guard.NopObserver when Enabled is false.
package metrics
