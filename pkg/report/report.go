package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/vnykmshr/admit/pkg/admission/guard"
	gfcontext "github.com/vnykmshr/admit/pkg/common/context"
	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
	"github.com/vnykmshr/admit/pkg/common/validation"
	"github.com/vnykmshr/admit/pkg/logger"
)

var log = logger.NewNamed("report")

// DefaultSchedule is used when Config.Schedule is empty.
const DefaultSchedule = "@every 30s"

// DefaultTimeout bounds a single scheduled write.
const DefaultTimeout = 5 * time.Second

// Source provides the statistics to report.
type Source interface {
	Snapshot() []guard.Stats
}

// Sink stores one snapshot taken at the given time.
type Sink interface {
	Write(ctx context.Context, at time.Time, stats []guard.Stats) error
}

// Config configures a Reporter.
type Config struct {
	// Schedule is a cron expression or descriptor. Defaults to DefaultSchedule.
	Schedule string

	// Timeout bounds each scheduled write. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Location is the time zone used to evaluate Schedule. Defaults to time.Local.
	Location *time.Location

	// Logger overrides the package logger.
	Logger *zap.Logger
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is an accepted schedule.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return gferrors.NewValidationError("report", "schedule", expr, err.Error()).
			WithHint(`use five cron fields, six with seconds, or a descriptor such as "@every 15s"`)
	}
	return nil
}

// Reporter writes Source snapshots to a Sink on a schedule.
type Reporter struct {
	src     Source
	sink    Sink
	timeout time.Duration
	log     *zap.Logger

	cron  *cron.Cron
	entry cron.EntryID

	mu      sync.Mutex
	running bool

	runs     atomic.Int64
	failures atomic.Int64
	lastErr  atomic.Error
}

// New creates a stopped Reporter.
func New(src Source, sink Sink, cfg Config) (*Reporter, error) {
	if src == nil {
		return nil, gferrors.NewValidationError("report", "source", nil, "cannot be nil")
	}
	if sink == nil {
		return nil, gferrors.NewValidationError("report", "sink", nil, "cannot be nil")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if err := ValidateSchedule(cfg.Schedule); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("report", "timeout", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = log
	}

	r := &Reporter{
		src:     src,
		sink:    sink,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
	}

	cl := cronLogger{cfg.Logger.Sugar()}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	entry, err := r.cron.AddFunc(cfg.Schedule, r.scheduled)
	if err != nil {
		return nil, gferrors.NewValidationError("report", "schedule", cfg.Schedule, err.Error())
	}
	r.entry = entry
	return r, nil
}

// Start begins scheduled reporting. It is a no-op if already running.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
	r.log.Info("stats reporting started", zap.Time("next", r.cron.Entry(r.entry).Next))
}

// Stop halts scheduling. The returned context is done once an in-flight
// write has finished.
func (r *Reporter) Stop() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	return r.cron.Stop()
}

// ReportNow takes one snapshot and writes it synchronously. A write cut off
// by ctx's deadline also matches errors.ErrTimeout.
func (r *Reporter) ReportNow(ctx context.Context) error {
	at := time.Now()
	stats := r.src.Snapshot()

	r.runs.Inc()
	if err := r.sink.Write(ctx, at, stats); err != nil {
		r.failures.Inc()
		if gfcontext.IsTimedOut(ctx) {
			err = fmt.Errorf("%w: %w", gferrors.ErrTimeout, err)
		}
		err = gferrors.NewOperationError("report", "ReportNow", err)
		r.lastErr.Store(err)
		return err
	}
	r.lastErr.Store(nil)
	return nil
}

// Next returns the next scheduled run, or the zero time when stopped.
func (r *Reporter) Next() time.Time {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return time.Time{}
	}
	return r.cron.Entry(r.entry).Next
}

// Runs returns how many snapshots were attempted and how many failed.
func (r *Reporter) Runs() (total, failed int64) {
	return r.runs.Load(), r.failures.Load()
}

// LastError returns the error of the most recent run, if it failed.
func (r *Reporter) LastError() error {
	return r.lastErr.Load()
}

func (r *Reporter) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.ReportNow(ctx); err != nil {
		r.log.Warn("stats report failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
