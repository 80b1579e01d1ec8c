// Package config loads the YAML configuration of an admit process: logging,
// guard defaults, per-resource budgets, metrics and stats reporting.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/admit/pkg/admission/guard"
	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
	"github.com/vnykmshr/admit/pkg/common/validation"
	"github.com/vnykmshr/admit/pkg/logger"
	"github.com/vnykmshr/admit/pkg/metrics"
	"github.com/vnykmshr/admit/pkg/report"
)

// DefaultWait is the wait used for resources without their own.
const DefaultWait = 100 * time.Millisecond

// Config is the top-level admit configuration file.
type Config struct {
	Logging   logger.Config `yaml:"logging"`
	Guard     Guard         `yaml:"guard"`
	Resources []Resource    `yaml:"resources"`
	Metrics   Metrics       `yaml:"metrics"`
	Report    Report        `yaml:"report"`
	Server    Server        `yaml:"server"`
}

// Guard holds guard-wide settings.
type Guard struct {
	// DefaultBudget registers unknown keys on first use. Zero disables it.
	DefaultBudget int           `yaml:"defaultBudget"`
	DefaultWait   time.Duration `yaml:"defaultWait"`
	MaxKeys       int           `yaml:"maxKeys"`
}

// Resource registers one key with its budget.
type Resource struct {
	Key    string `yaml:"key"`
	Budget int    `yaml:"budget"`
	// Wait overrides Guard.DefaultWait; an explicit 0 means never block.
	Wait *time.Duration `yaml:"wait"`
}

// Metrics configures the Prometheus observer and its listener.
type Metrics struct {
	Enabled   bool              `yaml:"enabled"`
	Namespace string            `yaml:"namespace"`
	Labels    map[string]string `yaml:"labels"`
	Addr      string            `yaml:"addr"`
}

// Report configures periodic export of guard statistics to Redis.
type Report struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
	Redis    Redis         `yaml:"redis"`
}

// Redis describes the connection and key layout of the report sink.
type Redis struct {
	Addrs      []string      `yaml:"addrs"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	TTL        time.Duration `yaml:"ttl"`
	InstanceID string        `yaml:"instanceId"`
}

// Server configures the HTTP listener of a service embedding the guard.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Default returns the configuration used for keys absent from a file.
func Default() *Config {
	return &Config{
		Logging: logger.Config{DefaultLevel: "info"},
		Guard:   Guard{DefaultWait: DefaultWait},
		Metrics: Metrics{Enabled: true, Namespace: metrics.DefaultNamespace, Addr: ":9090"},
		Report: Report{
			Schedule: report.DefaultSchedule,
			Timeout:  report.DefaultTimeout,
			Redis: Redis{
				Addrs:  []string{"localhost:6379"},
				Prefix: "admit:stats",
				TTL:    time.Hour,
			},
		},
		Server: Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gferrors.NewOperationError("config", "Load", err).WithContext(path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes data over Default and validates the result. Unknown fields
// are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, gferrors.NewOperationError("config", "Parse", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid value, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(validation.ValidateNonNegative("config", "guard.defaultBudget", c.Guard.DefaultBudget))
	add(validation.ValidateNonNegativeDuration("config", "guard.defaultWait", c.Guard.DefaultWait))
	add(validation.ValidateNonNegative("config", "guard.maxKeys", c.Guard.MaxKeys))
	if c.Guard.MaxKeys > 0 && len(c.Resources) > c.Guard.MaxKeys {
		add(gferrors.NewValidationError("config", "resources", len(c.Resources), "more resources than guard.maxKeys").
			WithHint(fmt.Sprintf("raise maxKeys to at least %d", len(c.Resources))))
	}

	seen := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		add(validation.ValidateNotEmpty("config", field+".key", r.Key))
		add(validation.ValidatePositive("config", field+".budget", r.Budget))
		if r.Wait != nil {
			add(validation.ValidateNonNegativeDuration("config", field+".wait", *r.Wait))
		}
		if r.Key != "" && seen[r.Key] {
			add(gferrors.NewValidationError("config", field+".key", r.Key, "duplicate resource key"))
		}
		seen[r.Key] = true
	}

	if c.Metrics.Enabled {
		add(c.MetricsConfig(nil).Validate())
	}

	if c.Report.Enabled {
		add(report.ValidateSchedule(c.Report.Schedule))
		add(validation.ValidateNonNegativeDuration("config", "report.timeout", c.Report.Timeout))
		add(validation.ValidateNonNegativeDuration("config", "report.redis.ttl", c.Report.Redis.TTL))
		if len(c.Report.Redis.Addrs) == 0 {
			add(gferrors.NewValidationError("config", "report.redis.addrs", nil, "cannot be empty").
				WithHint("list at least one host:port"))
		}
	}

	return errors.Join(errs...)
}

// Wait returns the configured wait for key, falling back to guard.defaultWait.
func (c *Config) Wait(key string) time.Duration {
	for _, r := range c.Resources {
		if r.Key == key && r.Wait != nil {
			return *r.Wait
		}
	}
	return c.Guard.DefaultWait
}

// GuardOptions returns the guard options implied by the guard section.
func (c *Config) GuardOptions() []guard.Option {
	var opts []guard.Option
	if c.Guard.DefaultBudget > 0 {
		opts = append(opts, guard.WithDefaultBudget(c.Guard.DefaultBudget))
	}
	if c.Guard.MaxKeys > 0 {
		opts = append(opts, guard.WithMaxKeys(c.Guard.MaxKeys))
	}
	return opts
}

// Apply configures every listed resource on g.
func (c *Config) Apply(g *guard.Guard) error {
	for _, r := range c.Resources {
		if err := g.Configure(r.Key, r.Budget); err != nil {
			return fmt.Errorf("configure %q: %w", r.Key, err)
		}
	}
	return nil
}

// NewGuard builds a guard from the configuration with extra options appended,
// then applies the resource list.
func (c *Config) NewGuard(extra ...guard.Option) (*guard.Guard, error) {
	g, err := guard.NewSafe(append(c.GuardOptions(), extra...)...)
	if err != nil {
		return nil, err
	}
	if err := c.Apply(g); err != nil {
		return nil, err
	}
	return g, nil
}

// MetricsConfig converts the metrics section for registration with reg.
func (c *Config) MetricsConfig(reg prometheus.Registerer) metrics.Config {
	return metrics.Config{
		Enabled:   c.Metrics.Enabled,
		Registry:  reg,
		Namespace: c.Metrics.Namespace,
		Labels:    prometheus.Labels(c.Metrics.Labels),
	}
}

// ReportConfig converts the report section.
func (c *Config) ReportConfig() report.Config {
	return report.Config{
		Schedule: c.Report.Schedule,
		Timeout:  c.Report.Timeout,
	}
}

// Client opens a client for the configured addresses. A single address gives
// a plain client, several give a cluster client.
func (r Redis) Client() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    r.Addrs,
		Password: r.Password,
		DB:       r.DB,
	})
}

// SinkOptions returns the RedisSink options for this section.
func (r Redis) SinkOptions() []report.RedisOption {
	opts := []report.RedisOption{report.WithPrefix(r.Prefix), report.WithTTL(r.TTL)}
	if r.InstanceID != "" {
		opts = append(opts, report.WithInstanceID(r.InstanceID))
	}
	return opts
}
