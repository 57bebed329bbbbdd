package core

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is the structured logging surface the engines write to.
// Implementations must be safe for concurrent use; worker loops and
// submitter goroutines log through the same instance.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger renders "[LEVEL] msg {k: v, ...}" lines through the
// standard log package. Debug lines are dropped unless Verbose is set.
type DefaultLogger struct {
	// Verbose enables Debug output.
	Verbose bool

	out *log.Logger
}

// NewDefaultLogger creates a DefaultLogger writing to stderr.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{out: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	if !l.Verbose {
		return
	}
	l.write("DEBUG", msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.write("INFO", msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.write("WARN", msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.write("ERROR", msg, fields)
}

func (l *DefaultLogger) write(level, msg string, fields []Field) {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(level)
	b.WriteString("] ")
	b.WriteString(msg)
	if len(fields) > 0 {
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
		}
		b.WriteByte('}')
	}
	out := l.out
	if out == nil {
		out = log.Default()
	}
	out.Println(b.String())
}

// NoOpLogger discards all log messages. Useful for tests or when logging
// is not desired.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
