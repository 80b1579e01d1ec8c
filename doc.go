/*
Package admit provides per-key admission control for Go services: a bounded
number of concurrent executions per named resource, with a bounded wait for
callers that arrive while the resource is full.

Admission (pkg/admission):
  - guard: Per-key permit budgets with TryEnter, Exit and scoped helpers
  - httpguard: net/http middleware that admits each request through a guard
  - config: YAML configuration for budgets, waits, metrics and reporting

Observability:
  - metrics: Prometheus observer for guard events
  - report: Cron-scheduled stats snapshots to Redis or memory
  - logger: Named zap loggers with per-name levels

Example usage:

	import "github.com/vnykmshr/admit/pkg/admission/guard"

	g := guard.New()
	_ = g.Configure("db.query", 20)

	err := g.Do(ctx, "db.query", 250*time.Millisecond, func(ctx context.Context) error {
		return runQuery(ctx)
	})
	if guard.IsRejected(err) {
		// all 20 permits stayed busy for 250ms
	}
*/
package admit
