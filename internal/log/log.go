// Package log provides the small logging seam the rest of this module
// programs against, backed by logrus (matching the structured-logging
// idiom the wider example pack uses for daemon/server processes).
package log

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the interface callers depend on, independent of the backing
// implementation.
type Logger interface {
	Printf(format string, args ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Printf(format string, args ...interface{}) {
	l.entry.Logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	l.entry.Printf(format, args...)
}

// New returns a Logger that writes to w.
func New(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

var (
	mu      sync.Mutex
	current Logger = New(io.Discard)
)

// SetLogger installs the package-level default logger used by Printf.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Printf logs through the package-level default logger, for call sites
// that have no Transfer/Logger of their own to hang off of (flag parsing,
// early startup).
func Printf(format string, args ...interface{}) {
	mu.Lock()
	l := current
	mu.Unlock()
	l.Printf(format, args...)
}
