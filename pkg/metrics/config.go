package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace is set.
const DefaultNamespace = "admit"

var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultWaitBuckets covers non-blocking checks up to multi-second waits.
var DefaultWaitBuckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "admit" namespace for metrics.
	Namespace string

	// Labels are additional labels to add to all metrics.
	Labels prometheus.Labels

	// WaitBuckets overrides DefaultWaitBuckets for the wait histogram.
	WaitBuckets []float64
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Validate checks that the namespace forms legal metric names and that
// Labels do not shadow the variable labels.
func (c Config) Validate() error {
	if c.Namespace != "" && !namespacePattern.MatchString(c.Namespace) {
		return gferrors.NewValidationError("metrics", "namespace", c.Namespace, "not a valid metric name prefix")
	}
	for name := range c.Labels {
		if name == "resource" || name == "outcome" {
			return gferrors.NewValidationError("metrics", "labels", name, "reserved label name")
		}
	}
	for i := 1; i < len(c.WaitBuckets); i++ {
		if c.WaitBuckets[i] <= c.WaitBuckets[i-1] {
			return gferrors.NewValidationError("metrics", "waitBuckets", c.WaitBuckets, "must be strictly increasing")
		}
	}
	return nil
}

func (c Config) buckets() []float64 {
	if len(c.WaitBuckets) > 0 {
		return c.WaitBuckets
	}
	return DefaultWaitBuckets
}
