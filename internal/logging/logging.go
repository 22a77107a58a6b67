// ABOUTME: Leveled logging collaborator passed explicitly to core components
// ABOUTME: Wraps the standard library logger; Nop discards everything
package logging

import (
	"fmt"
	"io"
	"log"
)

// Level classifies log messages.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level tag used in log output.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging collaborator consumed by the playback pipeline.
// Components receive it explicitly so tests can substitute Nop.
type Logger interface {
	Log(level Level, msg string)
	Logf(level Level, format string, args ...any)
}

// stdLogger routes messages through a *log.Logger.
type stdLogger struct {
	l *log.Logger
}

// New creates a Logger writing to out with standard timestamp flags.
func New(out io.Writer) Logger {
	return &stdLogger{l: log.New(out, "", log.LstdFlags)}
}

// Default returns a Logger backed by the process-wide log package, so it
// honors whatever output main has configured with log.SetOutput.
func Default() Logger {
	return &stdLogger{l: log.Default()}
}

func (s *stdLogger) Log(level Level, msg string) {
	s.l.Printf("[%s] %s", level, msg)
}

func (s *stdLogger) Logf(level Level, format string, args ...any) {
	s.l.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// nopLogger discards all messages.
type nopLogger struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Log(level Level, msg string)                  {}
func (nopLogger) Logf(level Level, format string, args ...any) {}
