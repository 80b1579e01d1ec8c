package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestGetLevel(t *testing.T) {
	SetNamedLevels([]NamedLevel{
		{Name: "admission", Level: "debug"},
		{Name: "admission*", Level: "info"},
		{Name: "admission.guard", Level: "warn"},
		{Name: "*", Level: "fatal"},
	})
	defer SetNamedLevels(nil)

	tests := []struct {
		name string
		want zapcore.Level
	}{
		{"admission", zap.DebugLevel},
		{"admission.report", zap.InfoLevel},
		{"admission.guard", zap.InfoLevel}, // glob above wins, first match
		{"metrics", zap.FatalLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			got := getLevel(tt.name).Level()
			mu.Unlock()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewNamedIsCached(t *testing.T) {
	a := NewNamed("test.cached")
	b := NewNamed("test.cached")
	assert.Same(t, a, b)
}

func TestSetNamedLevelsUpdatesExisting(t *testing.T) {
	l := NewNamed("test.existing")
	SetNamedLevels([]NamedLevel{{Name: "test.existing", Level: "error"}})
	defer SetNamedLevels(nil)

	assert.False(t, l.Core().Enabled(zap.WarnLevel))
	assert.True(t, l.Core().Enabled(zap.ErrorLevel))
}

func TestLevelsFromStr(t *testing.T) {
	levels := LevelsFromStr("admission.*=DEBUG; report=warn;ERROR;bogus=loud")
	require.Len(t, levels, 3)
	assert.Equal(t, NamedLevel{Name: "admission.*", Level: "DEBUG"}, levels[0])
	assert.Equal(t, NamedLevel{Name: "report", Level: "warn"}, levels[1])
	assert.Equal(t, NamedLevel{Name: "*", Level: "ERROR"}, levels[2])
}

func TestZapConfig(t *testing.T) {
	conf := Config{
		Production:    true,
		DefaultLevel:  "warn",
		Format:        JSONOutput,
		DisableStdErr: true,
		Levels:        []NamedLevel{{Name: "admission.guard", Level: "debug"}},
	}.ZapConfig()

	assert.Equal(t, "json", conf.Encoding)
	assert.NotContains(t, conf.OutputPaths, "stderr")
	// a named level below the default lowers the root level
	assert.Equal(t, zap.DebugLevel, conf.Level.Level())
}

func TestApplyGlobalKeepsDefaultLevelForUnmatchedNames(t *testing.T) {
	existing := NewNamed("test.unmatched.existing")
	t.Cleanup(func() {
		require.NoError(t, Config{DefaultLevel: "debug"}.ApplyGlobal())
	})

	require.NoError(t, Config{
		DefaultLevel: "info",
		Levels:       []NamedLevel{{Name: "admission.*", Level: "debug"}},
	}.ApplyGlobal())

	matched := NewNamed("test.admission.unused")
	assert.False(t, matched.Core().Enabled(zap.DebugLevel), "pattern is anchored")

	guardLog := NewNamed("admission.guard.test")
	assert.True(t, guardLog.Core().Enabled(zap.DebugLevel))

	for _, l := range []*zap.Logger{existing, NewNamed("test.unmatched.new")} {
		assert.False(t, l.Core().Enabled(zap.DebugLevel))
		assert.True(t, l.Core().Enabled(zap.InfoLevel))
	}
}
