package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFormat selects the encoder used for log output.
type LogFormat int

const (
	ColorizedOutput LogFormat = iota
	PlaintextOutput
	JSONOutput
)

// NamedLevel sets the level of loggers whose name equals, or glob-matches, Name.
type NamedLevel struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// Config describes the process-wide logging setup. DefaultLevel applies to
// loggers that no entry in Levels matches.
type Config struct {
	Production     bool         `yaml:"production"`
	DefaultLevel   string       `yaml:"defaultLevel"`
	Levels         []NamedLevel `yaml:"levels"` // first match will be used
	AddOutputPaths []string     `yaml:"outputPaths"`
	DisableStdErr  bool         `yaml:"disableStdErr"`
	Format         LogFormat    `yaml:"format"`
}

// ZapConfig builds the zap configuration described by l.
func (l Config) ZapConfig() zap.Config {
	var conf zap.Config
	if l.Production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}
	encConfig := conf.EncoderConfig
	switch l.Format {
	case PlaintextOutput:
		encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		conf.Encoding = "console"
	case JSONOutput:
		encConfig.MessageKey = "msg"
		encConfig.TimeKey = "ts"
		encConfig.LevelKey = "level"
		encConfig.NameKey = "logger"
		encConfig.CallerKey = "caller"
		encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		conf.Encoding = "json"
	default:
		conf.Encoding = "console"
		encConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	conf.EncoderConfig = encConfig

	if len(l.AddOutputPaths) > 0 {
		conf.OutputPaths = append(conf.OutputPaths, l.AddOutputPaths...)
	}
	if l.DisableStdErr {
		paths := conf.OutputPaths[:0]
		for _, p := range conf.OutputPaths {
			if p != "stderr" {
				paths = append(paths, p)
			}
		}
		conf.OutputPaths = paths
	}
	if defaultLevel, err := zap.ParseAtomicLevel(l.DefaultLevel); err == nil {
		conf.Level = defaultLevel
	}
	for _, v := range l.Levels {
		if lev, err := zap.ParseAtomicLevel(v.Level); err == nil && lev.Level() < conf.Level.Level() {
			conf.Level.SetLevel(lev.Level())
		}
	}
	return conf
}

// ApplyGlobal installs the configured root logger and named levels.
func (l Config) ApplyGlobal() error {
	lg, err := l.ZapConfig().Build()
	if err != nil {
		return err
	}
	SetDefault(lg)
	// the root core was lowered to the most verbose named level
	if lvl, err := zapcore.ParseLevel(l.DefaultLevel); err == nil {
		SetDefaultLevel(lvl)
	}
	SetNamedLevels(l.Levels)
	return nil
}

// LevelsFromStr parses "name1=DEBUG;prefix*=WARN;ERROR" into named levels.
// A bare level applies to "*". Unparsable entries are skipped.
func LevelsFromStr(s string) (levels []NamedLevel) {
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		name, value := "*", kv
		if parts := strings.SplitN(kv, "=", 2); len(parts) == 2 {
			name, value = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
		if _, err := zap.ParseAtomicLevel(value); err != nil {
			continue
		}
		levels = append(levels, NamedLevel{Name: name, Level: value})
	}
	return levels
}
