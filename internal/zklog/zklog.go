// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zklog is a small context-carried leveled logger: a component
// logs through a *Logger pulled off its context rather than through the
// bare "log" package. The capture loop and the stats daemon log this
// way; the CLI tools print their final error to stderr directly.
package zklog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// Level selects which messages a Logger emits.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warning
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Trace:
		return "TRACE"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "?"
	}
}

// Logger writes leveled, prefixed lines to an underlying *log.Logger.
type Logger struct {
	level  Level
	logger *log.Logger
}

// NewLogger returns a Logger at the given level writing to w. A nil w
// defaults to os.Stderr.
func NewLogger(level Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{level: level, logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Output(3, fmt.Sprintf("["+level.String()+"] "+format, args...))
	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) Tracef(format string, args ...interface{})   { l.logf(Trace, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{})   { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.logf(Info, format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.logf(Warning, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.logf(Error, format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{})   { l.logf(Fatal, format, args...) }

// Outf always writes regardless of level, for direct user-facing CLI
// output (e.g. dump tool results) that isn't really a "log line".
func (l *Logger) Outf(format string, args ...interface{}) {
	if l == nil {
		fmt.Fprintf(os.Stdout, format, args...)
		return
	}
	fmt.Fprintf(l.logger.Writer(), format, args...)
}

type ctxKey struct{}

// NewContext returns a context carrying l, retrievable with FromContext.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a default
// Info-level logger to stderr if none was attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

var defaultLogger = NewLogger(Info, os.Stderr)

// Debugf logs at Debug level using the Logger attached to ctx.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

// Infof logs at Info level using the Logger attached to ctx.
func Infof(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// Warningf logs at Warning level using the Logger attached to ctx.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warningf(format, args...)
}

// Errorf logs at Error level using the Logger attached to ctx.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}
