package guard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Enter takes a permit for key like TryEnterContext and returns a release
// function that gives it back. release is safe to call more than once and is
// a no-op when ok is false, so it can always be deferred.
func (g *Guard) Enter(ctx context.Context, key string, wait time.Duration) (release func(), ok bool, err error) {
	d, err := g.TryEnterContext(ctx, key, wait)
	if d != Admitted {
		return func() {}, false, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Exit logs violations itself; a paired release cannot produce one.
			_ = g.Exit(key)
		})
	}, true, nil
}

// Do runs fn while holding a permit for key. The permit is released on every
// exit path, including a panic in fn. If no permit frees up within wait, fn is
// not called and the returned error wraps ErrRejected.
func (g *Guard) Do(ctx context.Context, key string, wait time.Duration, fn func(ctx context.Context) error) error {
	release, ok, err := g.Enter(ctx, key, wait)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrRejected, key)
	}
	defer release()

	return fn(ctx)
}
