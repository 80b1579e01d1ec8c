package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnykmshr/admit/pkg/admission/guard"
	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
	"github.com/vnykmshr/admit/pkg/logger"
)

func TestLoadFile(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "admit.yaml"))
	require.NoError(t, err)

	assert.Equal(t, logger.JSONOutput, c.Logging.Format)
	assert.Equal(t, []logger.NamedLevel{{Name: "admission.*", Level: "debug"}}, c.Logging.Levels)

	assert.Equal(t, 250*time.Millisecond, c.Guard.DefaultWait)
	assert.Equal(t, 16, c.Guard.MaxKeys)

	require.Len(t, c.Resources, 3)
	assert.Equal(t, "orders.create", c.Resources[0].Key)
	assert.Equal(t, 5, c.Resources[0].Budget)

	assert.Equal(t, "checkout", c.Metrics.Namespace)
	assert.Equal(t, map[string]string{"service": "api"}, c.Metrics.Labels)

	assert.True(t, c.Report.Enabled)
	assert.Equal(t, "@every 15s", c.Report.Schedule)
	assert.Equal(t, []string{"redis:6379"}, c.Report.Redis.Addrs)
	assert.Equal(t, 30*time.Minute, c.Report.Redis.TTL)
	assert.Equal(t, "api-1", c.Report.Redis.InstanceID)

	assert.Equal(t, ":8081", c.Server.Addr)
}

func TestWait(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "admit.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, c.Wait("orders.create"))
	assert.Equal(t, time.Duration(0), c.Wait("reports.export"), "explicit zero wait is kept")
	assert.Equal(t, 250*time.Millisecond, c.Wait("search"), "missing wait falls back")
	assert.Equal(t, 250*time.Millisecond, c.Wait("unknown"))
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, DefaultWait, c.Wait("anything"))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("guard:\n  defaultBugdet: 3\n"))
	require.Error(t, err)
	var opErr *gferrors.OperationError
	assert.ErrorAs(t, err, &opErr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero budget", "resources: [{key: a, budget: 0}]"},
		{"empty key", "resources: [{key: '', budget: 1}]"},
		{"negative wait", "resources: [{key: a, budget: 1, wait: -1s}]"},
		{"duplicate key", "resources: [{key: a, budget: 1}, {key: a, budget: 1}]"},
		{"negative default budget", "guard: {defaultBudget: -1}"},
		{"negative default wait", "guard: {defaultWait: -5ms}"},
		{"too many resources", "guard: {maxKeys: 1}\nresources: [{key: a, budget: 1}, {key: b, budget: 1}]"},
		{"bad namespace", "metrics: {enabled: true, namespace: 'my-app'}"},
		{"bad schedule", "report: {enabled: true, schedule: 'sometimes'}"},
		{"no redis addrs", "report: {enabled: true, redis: {addrs: []}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, gferrors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	_, err := Parse([]byte("resources: [{key: '', budget: 0}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resources[0].key")
	assert.Contains(t, err.Error(), "resources[0].budget")
}

func TestDisabledSectionsAreNotValidated(t *testing.T) {
	_, err := Parse([]byte("metrics: {enabled: false, namespace: 'my-app'}\nreport: {enabled: false, schedule: 'x'}"))
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewGuard(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "admit.yaml"))
	require.NoError(t, err)

	g, err := c.NewGuard(guard.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, []string{"orders.create", "reports.export", "search"}, g.Keys())

	st, ok := g.Stats("orders.create")
	require.True(t, ok)
	assert.Equal(t, 5, st.Budget)

	// maxKeys 16 from the file is enforced
	for i := 0; i < 13; i++ {
		require.NoError(t, g.Configure(string(rune('a'+i)), 1))
	}
	assert.ErrorIs(t, g.Configure("overflow", 1), guard.ErrTooManyKeys)
}

func TestApplyConflict(t *testing.T) {
	c, err := Parse([]byte("resources: [{key: a, budget: 2}]"))
	require.NoError(t, err)

	g := guard.New(guard.WithLogger(zap.NewNop()))
	require.NoError(t, g.Configure("a", 3))

	err = c.Apply(g)
	assert.ErrorIs(t, err, guard.ErrBudgetConflict)
}

func TestGuardOptionsDefaultBudget(t *testing.T) {
	c, err := Parse([]byte("guard: {defaultBudget: 2}"))
	require.NoError(t, err)

	g, err := c.NewGuard(guard.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	d, err := g.TryEnter("lazy", 0)
	require.NoError(t, err)
	assert.Equal(t, guard.Admitted, d)
}

func TestConversions(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "admit.yaml"))
	require.NoError(t, err)

	mc := c.MetricsConfig(nil)
	assert.True(t, mc.Enabled)
	assert.Equal(t, "checkout", mc.Namespace)
	assert.Equal(t, "api", mc.Labels["service"])

	rc := c.ReportConfig()
	assert.Equal(t, "@every 15s", rc.Schedule)
	assert.Equal(t, 2*time.Second, rc.Timeout)

	assert.Len(t, c.Report.Redis.SinkOptions(), 3)

	client := c.Report.Redis.Client()
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}
