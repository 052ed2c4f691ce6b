package jc

import "fmt"

// Logger is the injectable logging sink used throughout the engine. Sites,
// the analyzer, and the notification fan-out all log through this interface
// rather than the stdlib log package directly, so a host process can route
// engine diagnostics into its own structured logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NoOpLogger discards everything. It is the default logger for a site built
// without an explicit WithLogger option.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (NoOpLogger) Debugf(string, ...any) {}
func (NoOpLogger) Infof(string, ...any)  {}
func (NoOpLogger) Warnf(string, ...any)  {}
func (NoOpLogger) Errorf(string, ...any) {}

// StdLogger writes every level to fmt.Printf-style output via a supplied
// print function, letting callers plug in log.Printf, fmt.Printf, or a test
// recorder without pulling in a logging framework.
type StdLogger struct {
	Print func(string)
}

func NewStdLogger(print func(string)) *StdLogger {
	return &StdLogger{Print: print}
}

func (l *StdLogger) Debugf(format string, args ...any) { l.Print("DEBUG " + fmt.Sprintf(format, args...)) }
func (l *StdLogger) Infof(format string, args ...any)  { l.Print("INFO  " + fmt.Sprintf(format, args...)) }
func (l *StdLogger) Warnf(format string, args ...any)  { l.Print("WARN  " + fmt.Sprintf(format, args...)) }
func (l *StdLogger) Errorf(format string, args ...any) { l.Print("ERROR " + fmt.Sprintf(format, args...)) }
