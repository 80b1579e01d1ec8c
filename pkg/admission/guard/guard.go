package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
	"github.com/vnykmshr/admit/pkg/common/validation"
	"github.com/vnykmshr/admit/pkg/logger"
)

var log = logger.NewNamed("admission.guard")

var (
	// ErrUnknownKey is returned for a key that was never configured when the
	// guard has no default budget.
	ErrUnknownKey = fmt.Errorf("unknown resource key: %w", gferrors.ErrInvalidConfiguration)

	// ErrBudgetConflict is returned by Configure when the key is already
	// registered with a different budget. The existing budget is kept.
	ErrBudgetConflict = fmt.Errorf("budget conflict: %w", gferrors.ErrInvalidConfiguration)

	// ErrTooManyKeys is returned when registering a key would exceed WithMaxKeys.
	ErrTooManyKeys = fmt.Errorf("too many resource keys: %w", gferrors.ErrCapacityExceeded)

	// ErrRejected is returned by Do when no permit became free within the wait.
	ErrRejected = fmt.Errorf("admission rejected: %w", gferrors.ErrRateLimited)
)

// Decision is the outcome of an admission attempt.
type Decision int

const (
	// Rejected means no permit is held by the caller.
	Rejected Decision = iota
	// Admitted means the caller holds one permit and must call Exit.
	Admitted
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Guard bounds the number of concurrent executions per resource key.
//
// Slots are created once per key and never removed. The key set should be
// a bounded, statically known set of operation names; keys derived from
// request data grow the registry without limit unless WithMaxKeys is set.
type Guard struct {
	slots sync.Map // string -> *slot

	// mu serializes registration of unseen keys only.
	mu    sync.Mutex
	count int

	defaultBudget int
	maxKeys       int
	observer      Observer
	log           *zap.Logger
	rejectLog     *rate.Sometimes
}

// Option configures a Guard.
type Option func(*Guard)

// WithDefaultBudget makes TryEnter register unknown keys on first use with
// the given budget. Zero disables lazy registration.
func WithDefaultBudget(budget int) Option {
	return func(g *Guard) { g.defaultBudget = budget }
}

// WithMaxKeys caps the number of distinct keys. Zero means unbounded.
func WithMaxKeys(n int) Option {
	return func(g *Guard) { g.maxKeys = n }
}

// WithObserver installs an Observer notified of every admission event.
func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

// WithLogger replaces the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// NewSafe creates a Guard, returning an error for invalid options.
func NewSafe(opts ...Option) (*Guard, error) {
	g := &Guard{
		observer:  NopObserver{},
		log:       log,
		rejectLog: &rate.Sometimes{First: 1, Interval: time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := validation.ValidateNonNegative("guard", "defaultBudget", g.defaultBudget); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("guard", "maxKeys", g.maxKeys); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("guard", "observer", g.observer); err != nil {
		return nil, err
	}
	if g.log == nil {
		return nil, gferrors.NewValidationError("guard", "logger", nil, "cannot be nil")
	}
	return g, nil
}

// New creates a Guard and panics on invalid options.
func New(opts ...Option) *Guard {
	g, err := NewSafe(opts...)
	if err != nil {
		panic("invalid guard configuration: " + err.Error())
	}
	return g
}

// Configure registers budget for key. It is a no-op if key is already
// registered with the same budget, and returns ErrBudgetConflict if it is
// registered with another one. Concurrent calls for an unseen key create
// exactly one slot.
func (g *Guard) Configure(key string, budget int) error {
	if err := validation.ValidateNotEmpty("guard", "key", key); err != nil {
		return err
	}
	if err := validation.ValidatePositive("guard", "budget", budget); err != nil {
		return err
	}

	s, err := g.register(key, budget)
	if err != nil {
		return err
	}
	if s.budget != budget {
		return fmt.Errorf("%w: %q is registered with budget %d, got %d", ErrBudgetConflict, key, s.budget, budget)
	}
	return nil
}

// TryEnter attempts to take one permit for key, waiting up to wait for one
// to free up. A wait of zero or less never blocks. Rejection is reported as
// a Decision; the error is reserved for configuration problems.
func (g *Guard) TryEnter(key string, wait time.Duration) (Decision, error) {
	return g.TryEnterContext(context.Background(), key, wait)
}

// TryEnterContext is TryEnter with a caller context. If ctx ends before a
// permit is granted the result is Rejected with ctx.Err().
func (g *Guard) TryEnterContext(ctx context.Context, key string, wait time.Duration) (Decision, error) {
	s, err := g.slotFor(key)
	if err != nil {
		return Rejected, err
	}

	start := time.Now()
	ok, err := s.acquire(ctx, wait)
	waited := time.Since(start)

	if !ok {
		s.rejected.Inc()
		g.observer.ObserveReject(key, waited)
		g.observeOccupancy(s)
		if err == nil {
			g.rejectLog.Do(func() {
				g.log.Debug("admission rejected",
					zap.String("key", key),
					zap.Int("budget", s.budget),
					zap.Duration("waited", waited))
			})
		}
		return Rejected, err
	}

	s.admitted.Inc()
	g.observer.ObserveAdmit(key, waited)
	g.observeOccupancy(s)
	return Admitted, nil
}

// Exit returns the permit taken by a successful TryEnter for key. Calling it
// without a matching admission is a programming error: the permit count is
// left untouched and an error wrapping errors.ErrContractViolation is
// returned. Only unmatched calls that would drive the count below zero can be
// detected.
func (g *Guard) Exit(key string) error {
	s, ok := g.lookup(key)
	if !ok {
		g.log.Error("exit on unregistered resource", zap.String("key", key))
		return fmt.Errorf("exit %q: %w: %w", key, gferrors.ErrContractViolation, ErrUnknownKey)
	}

	if !s.release() {
		s.violations.Inc()
		g.observer.ObserveViolation(key)
		g.log.Error("exit without matching admission",
			zap.String("key", key),
			zap.Int("budget", s.budget),
			zap.Stack("stack"))
		return fmt.Errorf("exit %q: %w: no permit held", key, gferrors.ErrContractViolation)
	}

	g.observer.ObserveExit(key)
	g.observeOccupancy(s)
	return nil
}

func (g *Guard) lookup(key string) (*slot, bool) {
	v, ok := g.slots.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*slot), true
}

// slotFor returns the slot for key, registering it with the default budget
// when lazy registration is enabled.
func (g *Guard) slotFor(key string) (*slot, error) {
	if s, ok := g.lookup(key); ok {
		return s, nil
	}
	if g.defaultBudget == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := validation.ValidateNotEmpty("guard", "key", key); err != nil {
		return nil, err
	}
	return g.register(key, g.defaultBudget)
}

// register returns the slot for key, creating it with budget if absent.
// Lookups of known keys never take g.mu.
func (g *Guard) register(key string, budget int) (*slot, error) {
	if s, ok := g.lookup(key); ok {
		return s, nil
	}

	g.mu.Lock()
	if s, ok := g.lookup(key); ok {
		g.mu.Unlock()
		return s, nil
	}
	if g.maxKeys > 0 && g.count >= g.maxKeys {
		g.mu.Unlock()
		g.log.Warn("resource key limit reached", zap.String("key", key), zap.Int("maxKeys", g.maxKeys))
		return nil, fmt.Errorf("%w: registering %q would exceed %d keys", ErrTooManyKeys, key, g.maxKeys)
	}
	s := newSlot(key, budget)
	g.slots.Store(key, s)
	g.count++
	g.mu.Unlock()

	g.log.Debug("resource registered", zap.String("key", key), zap.Int("budget", budget))
	g.observer.ObserveRegister(key, budget)
	return s, nil
}

func (g *Guard) observeOccupancy(s *slot) {
	held, waiting := s.occupancy()
	g.observer.ObserveOccupancy(s.key, held, waiting)
}

// IsRejected reports whether err is a rejection returned by Do.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
