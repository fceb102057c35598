// Package logging defines the logging contract used by the monitoring core.
//
// The core never logs through a global singleton: every component receives a
// Logger at construction time. Production code typically injects the logrus
// sink from NewLogrusSink; tests inject Nop() or a recording implementation.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Level classifies the importance of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Fields carries structured data attached to a log entry.
type Fields map[string]interface{}

// Logger is the sink contract the monitoring core logs through.
// component identifies the originating subsystem (e.g. "registry", "checker").
type Logger interface {
	Log(level Level, component, message string, fields Fields)
}

// LogrusSink adapts a logrus logger to the Logger interface.
type LogrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink creates a logrus-backed sink writing to out.
// Entries below minLevel are dropped by logrus itself.
func NewLogrusSink(out io.Writer, minLevel Level) *LogrusSink {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrusLevel(minLevel))
	return &LogrusSink{logger: l}
}

// Log implements the Logger interface.
func (s *LogrusSink) Log(level Level, component, message string, fields Fields) {
	entry := s.logger.WithField("component", component)
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}

	switch level {
	case LevelDebug:
		entry.Debug(message)
	case LevelWarn:
		entry.Warn(message)
	case LevelError:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}

func logrusLevel(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// nopLogger discards everything. Used as the default when no sink is injected.
type nopLogger struct{}

func (nopLogger) Log(Level, string, string, Fields) {}

// Nop returns a logger that discards all entries.
func Nop() Logger {
	return nopLogger{}
}
