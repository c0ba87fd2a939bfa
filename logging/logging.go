// Package logging provides the ambient logr.Logger plumbing shared by the
// utf and afs2 codecs. Callers that don't care about tracing never see it:
// every codec defaults to a discarding logger.
package logging

import (
	"github.com/go-logr/logr"
)

const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

// NewLogger wraps log, defaulting to a discard sink when log has no sink set
// (the zero value of logr.Logger).
func NewLogger(log logr.Logger) *Logger {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Logger{log: log}
}

// Default returns a Logger that discards everything, used when a codec call
// is not given a WithParseLogger or WithBuildLogger option.
func Default() *Logger {
	return &Logger{log: logr.Discard()}
}

// Logger narrows logr.Logger to four leveled verbs (Debug, Info, Trace,
// Error) plus WithValues, keeping call sites short. The codecs themselves
// call Trace and WithValues.
type Logger struct {
	log logr.Logger
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.V(LevelDebug).Info(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l *Logger) Trace(msg string, keysAndValues ...interface{}) {
	l.log.V(LevelTrace).Info(msg, keysAndValues...)
}

func (l *Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(err, msg, keysAndValues...)
}

// WithValues scopes a Logger to a fixed set of key-value pairs, carried on
// every subsequent call. The codecs use this to tag a run of Trace calls
// with the column or entry index they concern (schema walk, offset-table
// assembly) without repeating those pairs at every call site.
func (l *Logger) WithValues(keysAndValues ...interface{}) *Logger {
	return &Logger{log: l.log.WithValues(keysAndValues...)}
}
