// Package report periodically exports guard statistics.
//
// A Reporter snapshots a Source, normally a *guard.Guard, on a cron schedule
// and hands the snapshot to a Sink:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	r, err := report.New(g, report.NewRedisSink(rdb, report.WithPrefix("admit:stats")), report.Config{
//		Schedule: "@every 15s",
//	})
//	if err != nil {
//		return err
//	}
//	r.Start()
//	defer r.Stop()
//
// Schedules accept the standard five cron fields, an optional leading seconds
// field, and descriptors such as "@hourly" or "@every 30s". A run that is
// still writing when the next one fires is skipped.
//
// Reports are write-only. Nothing in this module reads them back into a guard,
// so each process keeps enforcing its own budgets.
//
// # Redis layout
//
// For prefix P and instance id I, each write stores:
//
//	P:instances                 sorted set, member I scored by report time
//	P:I:resources               set of resource keys
//	P:I:resource:<key>          hash with budget, held, waiting, peak,
//	                            admitted, rejected, violations, at
//
// Per-instance keys expire after the sink TTL, so a stopped process ages out.
package report
