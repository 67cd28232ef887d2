package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Logger Interface
// --------------------------------------------------------------------------

// ILogger is the logging interface used by all components
type ILogger interface {
	SetLevel(level zapcore.Level)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Custom Logger (zap based)
// --------------------------------------------------------------------------

// componentLogger implements ILogger with the "LEVEL | component | message" format
type componentLogger struct {
	name   string
	level  zap.AtomicLevel
	logger *zap.SugaredLogger
}

func (l *componentLogger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *componentLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	registryMu   sync.Mutex
	registry     = make(map[string]*componentLogger)
	defaultLevel = zapcore.InfoLevel
)

// CreateLogger returns the logger for the given component, writing to stdout.
// Calling it twice with the same name returns the same logger.
func CreateLogger(pkgName string) ILogger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[pkgName]; ok {
		return l
	}
	l := newLogger(pkgName, zapcore.Lock(os.Stdout), defaultLevel)
	registry[pkgName] = l
	return l
}

// NewWithWriter creates an unregistered logger writing to w
func NewWithWriter(pkgName string, w io.Writer, level zapcore.Level) ILogger {
	return newLogger(pkgName, zapcore.AddSync(w), level)
}

// NewNop returns a logger that discards everything
func NewNop() ILogger {
	return &componentLogger{
		name:   "nop",
		level:  zap.NewAtomicLevelAt(zapcore.FatalLevel),
		logger: zap.NewNop().Sugar(),
	}
}

func newLogger(name string, out zapcore.WriteSyncer, level zapcore.Level) *componentLogger {
	atomicLevel := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), out, atomicLevel)

	return &componentLogger{
		name:   name,
		level:  atomicLevel,
		logger: zap.New(core).Named(name).Sugar(),
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " | ",
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(fmt.Sprintf("%-5s", levelString(level)))
		},
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(fmt.Sprintf("%-15s", name))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func levelString(level zapcore.Level) string {
	if level == zapcore.WarnLevel {
		return "WARN"
	}
	return level.CapitalString()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to a zapcore.Level
func ParseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warning", "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers applies the level to every logger created so far and to all
// loggers created afterwards
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	defaultLevel = lvl
	for _, l := range registry {
		l.SetLevel(lvl)
	}
	return nil
}
