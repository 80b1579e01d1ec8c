// Package httpguard bounds concurrent HTTP handler executions with a guard.
package httpguard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/admit/pkg/admission/guard"
	"github.com/vnykmshr/admit/pkg/logger"
)

var log = logger.NewNamed("admission.http")

// KeyFunc maps a request to a guard key. It must return values from a small
// fixed set; keys derived from request data register one slot per value.
type KeyFunc func(r *http.Request) string

// WaitFunc returns how long a request for key may wait for a permit.
type WaitFunc func(key string) time.Duration

// Options configures Middleware. Either Key or KeyFunc must be set.
type Options struct {
	// Key is used for every request when KeyFunc is nil.
	Key     string
	KeyFunc KeyFunc

	// Wait applies when WaitFunc is nil.
	Wait     time.Duration
	WaitFunc WaitFunc

	// RejectStatus defaults to 503 Service Unavailable.
	RejectStatus int
	// RetryAfter is sent on rejection, rounded up to whole seconds. Defaults to 1s.
	RetryAfter time.Duration
	// OnReject replaces the default rejection response.
	OnReject func(w http.ResponseWriter, r *http.Request, key string)

	// AddHeaders sets X-Admission-Key on every response.
	AddHeaders bool

	Logger *zap.Logger
}

// PatternKey keys requests by the ServeMux pattern that matched them, or
// fallback when the request was not routed through a pattern.
func PatternKey(fallback string) KeyFunc {
	return func(r *http.Request) string {
		if r.Pattern != "" {
			return r.Pattern
		}
		return fallback
	}
}

// Middleware admits each request through g before calling next. Requests
// rejected after the wait, or whose context deadline expires while queued,
// get RejectStatus; unknown keys get 500. Nothing is written when the client
// cancels while queued.
func Middleware(g *guard.Guard, opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFunc == nil {
		key := opts.Key
		opts.KeyFunc = func(*http.Request) string { return key }
	}
	if opts.WaitFunc == nil {
		wait := opts.Wait
		opts.WaitFunc = func(string) time.Duration { return wait }
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	retryAfter := strconv.Itoa(int((opts.RetryAfter + time.Second - 1) / time.Second))
	reject := opts.OnReject
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, _ string) {
			w.Header().Set("Retry-After", retryAfter)
			http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFunc(r)
			if opts.AddHeaders {
				w.Header().Set("X-Admission-Key", key)
			}

			release, ok, err := g.Enter(r.Context(), key, opts.WaitFunc(key))
			switch {
			case errors.Is(err, context.Canceled):
				// client went away while queued
				opts.Logger.Debug("request abandoned while waiting", zap.String("key", key), zap.Error(err))
				return
			case errors.Is(err, context.DeadlineExceeded):
				// an upstream deadline ended the wait; the client is still there
				opts.Logger.Debug("request deadline expired while waiting", zap.String("key", key))
				reject(w, r, key)
				return
			case err != nil:
				opts.Logger.Error("admission failed", zap.String("key", key), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			case !ok:
				reject(w, r, key)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
