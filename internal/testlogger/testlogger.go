// Package testlogger adapts testing.T's logging to the io.Writer stderr
// sink this module's components expect, so integration tests can capture
// server-side diagnostic output into the test log instead of the process's
// real stderr.
package testlogger

import (
	"strings"
	"testing"
)

// Writer is an io.Writer that forwards each Write to t.Logf.
type Writer struct {
	t *testing.T
}

// New returns a Writer that logs through t.
func New(t *testing.T) *Writer {
	return &Writer{t: t}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
