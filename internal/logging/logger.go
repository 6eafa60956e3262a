package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// ParseLevel accepts debug, info, warn, error and critical. Anything else is info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "critical", "fatal":
		return LevelCritical
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

type Logger struct {
	level  LogLevel
	zl     zerolog.Logger
	writer *AsyncWriter
}

// NewLogger writes JSON lines to path through an AsyncWriter. An empty path
// logs to stdout with the console writer.
func NewLogger(level LogLevel, path string) (*Logger, error) {
	l := &Logger{level: level}

	var out io.Writer
	if path == "" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05.000"}
	} else {
		rotation := NewLogRotation(64<<20, 7*24*time.Hour, 5)
		if rotation.ShouldRotate(path) {
			if _, err := rotation.Rotate(path); err != nil {
				return nil, fmt.Errorf("rotate log file: %w", err)
			}
		}

		w, err := NewAsyncWriter(path, 10000)
		if err != nil {
			return nil, err
		}
		l.writer = w
		out = w
	}

	l.zl = zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()
	return l, nil
}

// NewWithWriter is used by tests and by callers that own the sink.
func NewWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level: level,
		zl:    zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger(),
	}
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.zl.Debug()
	case LevelInfo:
		ev = l.zl.Info()
	case LevelWarn:
		ev = l.zl.Warn()
	case LevelError:
		ev = l.zl.Error()
	default:
		// Critical is logged at error severity with a flag; it never exits.
		ev = l.zl.WithLevel(zerolog.ErrorLevel).Bool("critical", true)
	}
	ev.Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

func (l *Logger) Critical(format string, args ...interface{}) {
	l.log(LevelCritical, format, args...)
}

func (l *Logger) Close() error {
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}

var GlobalLogger *Logger

func InitGlobalLogger(level LogLevel, path string) error {
	logger, err := NewLogger(level, path)
	if err != nil {
		return err
	}
	GlobalLogger = logger
	return nil
}

// Z returns the global zerolog logger, or a disabled one before init.
func Z() *zerolog.Logger {
	if GlobalLogger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return GlobalLogger.Zerolog()
}

func Debug(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Debug(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Info(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Warn(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Error(format, args...)
	}
}

func Critical(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Critical(format, args...)
	}
}

func Close() error {
	if GlobalLogger != nil {
		return GlobalLogger.Close()
	}
	return nil
}
