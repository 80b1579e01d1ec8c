package guard_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vnykmshr/admit/pkg/admission/guard"
)

// Example shows the basic configure, enter and exit cycle.
func Example() {
	g := guard.New()
	if err := g.Configure("orders.create", 2); err != nil {
		panic(err)
	}

	for i := 0; i < 3; i++ {
		d, err := g.TryEnter("orders.create", 0)
		if err != nil {
			panic(err)
		}
		fmt.Println(d)
	}

	_ = g.Exit("orders.create")
	d, _ := g.TryEnter("orders.create", 0)
	fmt.Println(d)

	// Output:
	// admitted
	// admitted
	// rejected
	// admitted
}

// ExampleGuard_Do runs a bounded number of workers over a shared resource.
func ExampleGuard_Do() {
	g := guard.New()
	_ = g.Configure("reports.export", 2)

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), "reports.export", time.Second, func(context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				done++
				mu.Unlock()
				return nil
			})
			if err != nil {
				fmt.Println("unexpected:", err)
			}
		}()
	}
	wg.Wait()

	st, _ := g.Stats("reports.export")
	fmt.Printf("completed=%d held=%d peak<=budget=%v\n", done, st.Held, st.Peak <= st.Budget)

	// Output: completed=5 held=0 peak<=budget=true
}

// ExampleWithDefaultBudget registers keys on first use.
func ExampleWithDefaultBudget() {
	g := guard.New(guard.WithDefaultBudget(4))

	d, err := g.TryEnter("search", 0)
	fmt.Println(d, err)

	st, _ := g.Stats("search")
	fmt.Println(st.Budget, st.Available())

	// Output:
	// admitted <nil>
	// 4 3
}

// ExampleGuard_Exit shows how an unmatched exit is reported.
func ExampleGuard_Exit() {
	g := guard.New()
	_ = g.Configure("cache.refill", 1)

	err := g.Exit("cache.refill")
	fmt.Println(err)

	// Output: exit "cache.refill": contract violation: no permit held
}
