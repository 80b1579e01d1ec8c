// Package logger provides named zap loggers whose levels can be tuned per name.
//
// Packages declare a logger once at package level:
//
//	var log = logger.NewNamed("admission.guard")
//
// and the process configures levels later through Config.ApplyGlobal. Names
// may be matched with glob patterns such as "admission.*".
package logger

import (
	"sync"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.Mutex
	logger       *zap.Logger
	loggerConfig zap.Config
	namedLevels  []namedLevel
	// defaultLevel applies to names no pattern matches. The root core may be
	// more verbose than this so that named levels below it still get through.
	defaultLevel zapcore.Level
	namedGlobs   = make(map[string]glob.Glob)
	namedLoggers = make(map[string]*zap.Logger)
)

type namedLevel struct {
	name  string
	level zap.AtomicLevel
}

func init() {
	loggerConfig = zap.NewDevelopmentConfig()
	logger, _ = loggerConfig.Build()
	defaultLevel = loggerConfig.Level.Level()
}

// SetDefault replaces the root logger. Its level becomes the level of names
// no pattern matches. Named loggers pick up the new core on the next
// SetNamedLevels call.
func SetDefault(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	*logger = *l
	defaultLevel = l.Level()
}

// SetDefaultLevel sets the level of names no pattern matches, independently
// of the root core's level. Named loggers pick it up on the next
// SetNamedLevels call.
func SetDefaultLevel(level zapcore.Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLevel = level
}

// SetNamedLevels sets levels for named loggers. The first entry whose name or
// glob pattern matches wins. Meant to be called once during startup.
func SetNamedLevels(nls []NamedLevel) {
	mu.Lock()
	defer mu.Unlock()
	namedLevels = namedLevels[:0]

	var minLevel = logger.Level()
	for _, nl := range nls {
		l, err := zap.ParseAtomicLevel(nl.Level)
		if err != nil {
			continue
		}
		namedLevels = append(namedLevels, namedLevel{name: nl.Name, level: l})
		if g, err := glob.Compile(nl.Name); err == nil {
			namedGlobs[nl.Name] = g
		}
		if l.Level() < minLevel {
			minLevel = l.Level()
		}
	}

	if minLevel < logger.Level() {
		// the root core filters first, so it must be at least as verbose as any named level
		loggerConfig.Level = zap.NewAtomicLevelAt(minLevel)
		logger, _ = loggerConfig.Build()
	}

	for name, nl := range namedLoggers {
		level := getLevel(name)
		*nl = *zap.New(logger.Core()).Named(name).WithOptions(zap.IncreaseLevel(level))
	}
}

// Default returns the root logger.
func Default() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// getLevel returns the level of the first matching name or glob pattern.
// Must be called with mu held.
func getLevel(name string) zap.AtomicLevel {
	for _, nl := range namedLevels {
		if nl.name == name {
			return nl.level
		}
		if g, ok := namedGlobs[nl.name]; ok && g.Match(name) {
			return nl.level
		}
	}
	return zap.NewAtomicLevelAt(defaultLevel)
}

// NewNamed returns the logger registered under name, creating it on first use.
// The returned pointer stays valid across SetNamedLevels calls.
func NewNamed(name string, fields ...zap.Field) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := namedLoggers[name]; ok {
		return l
	}

	level := getLevel(name)
	l := zap.New(logger.Core()).Named(name).WithOptions(zap.IncreaseLevel(level), zap.Fields(fields...))
	namedLoggers[name] = l
	return l
}
