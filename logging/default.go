package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Format selects the output encoding of the default logger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultLogger is the logrus-backed implementation of Logger.
// Debug/Info go to stdout, Warn and above to stderr.
type DefaultLogger struct {
	out    *logrus.Logger
	errOut *logrus.Logger
	fields Fields
}

// NewDefaultLogger creates a text logger at info level
func NewDefaultLogger() *DefaultLogger {
	return NewLogger(FormatText, InfoLevel, os.Stdout, os.Stderr)
}

// NewLogger creates a logger with the given format and level writing to the
// provided streams.
func NewLogger(format Format, level Level, stdout, stderr io.Writer) *DefaultLogger {
	mk := func(w io.Writer) *logrus.Logger {
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(toLogrus(level))
		// Fatal must not exit from inside a library call.
		l.ExitFunc = func(int) {}
		switch format {
		case FormatJSON:
			l.SetFormatter(&logrus.JSONFormatter{})
		default:
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		return l
	}

	return &DefaultLogger{
		out:    mk(stdout),
		errOut: mk(stderr),
		fields: make(Fields),
	}
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func (d *DefaultLogger) entry(l *logrus.Logger, fields []Fields) *logrus.Entry {
	all := make(logrus.Fields, len(d.fields))
	for k, v := range d.fields {
		all[k] = v
	}
	for _, f := range fields {
		for k, v := range f {
			all[k] = v
		}
	}
	return l.WithFields(all)
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.entry(d.out, fields).Debug(msg)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.entry(d.out, fields).Info(msg)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.entry(d.errOut, fields).Warn(msg)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	e := d.entry(d.errOut, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	e := d.entry(d.errOut, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Fatal(msg)
	os.Exit(1)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(d.fields)+len(fields))
	for k, v := range d.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &DefaultLogger{out: d.out, errOut: d.errOut, fields: merged}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.out.SetLevel(toLogrus(level))
	d.errOut.SetLevel(toLogrus(level))
}

// NoOpLogger discards everything. Used in tests and when logging is disabled.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
