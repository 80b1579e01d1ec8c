/*
Package guard provides per-key admission control for Go applications.

A Guard owns one counting slot per resource key. Each slot has a fixed
permit budget; callers take a permit before running the protected operation
and give it back afterwards. When all permits are held, a caller waits at
most a bounded time for one to free up and is otherwise rejected. Rejection
is an ordinary result, not an error.

Basic usage:

	g := guard.New()
	if err := g.Configure("orders.create", 5); err != nil {
		log.Fatal(err)
	}

	d, err := g.TryEnter("orders.create", 200*time.Millisecond)
	if err != nil {
		return err // unknown key
	}
	if d == guard.Rejected {
		return errBusy
	}
	defer g.Exit("orders.create")

Scoped Acquisition:

Do and Enter pair acquisition and release so the permit is returned on every
exit path, including panics:

	err := g.Do(ctx, "orders.create", time.Second, func(ctx context.Context) error {
		return createOrder(ctx, req)
	})
	if guard.IsRejected(err) {
		// all 5 permits stayed busy for a second
	}

	release, ok, err := g.Enter(ctx, "reports.export", 0)
	if err != nil || !ok {
		return
	}
	defer release()

Waiting:

A wait of zero is a non-blocking check. TryEnterContext and the scoped
helpers also stop waiting when the caller's context ends, in which case the
context error is returned alongside Rejected. A permit released while others
wait is handed to the longest waiter; no stronger fairness is promised.

Registration:

Configure registers a key once. Repeating it with the same budget is a no-op
and does not disturb held permits; a different budget returns
ErrBudgetConflict and keeps the original. With WithDefaultBudget, TryEnter
registers unknown keys on first use instead of returning ErrUnknownKey.

Slots live for the lifetime of the Guard. Keys should name operations, not
requests: a key built from request data leaks one slot per distinct value.
WithMaxKeys turns that leak into ErrTooManyKeys.

Contract Violations:

Exit without a matching admission is a programming error. The Guard refuses
to drive the permit count below zero, logs the call site, and returns an
error matching errors.ErrContractViolation.

Observability:

An Observer (see package metrics for the Prometheus one) receives every
admission event. Stats and Snapshot expose budgets, held and waiting counts,
the high-water mark and cumulative counters.

Thread Safety:

All methods are safe for concurrent use. Admission on a known key locks only
that key's slot; the guard-wide mutex is taken only to register an unseen key.
*/
package guard
