// Package logging wraps logrus behind the small interface the rest of
// the node depends on, so call sites never import logrus directly.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logging behavior every subsystem depends on.
// Kept narrow on purpose: dispatcher, transport, routing and friends
// only ever need leveled, formatted messages.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns the default logger, writing to stderr at info level
// unless DTCHAT_DEBUG is set.
func New(component string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DTCHAT_DEBUG") != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return &logrusLogger{entry: l.WithField("component", component)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// Nop is a Logger that discards everything; useful in tests.
type Nop struct{}

func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}
