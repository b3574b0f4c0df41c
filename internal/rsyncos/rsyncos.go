// Package rsyncos bundles the host-process resources (standard streams,
// a logger) that flow down into the Generator/Sender/Receiver transfer
// types, so those types never reach for os.Stdout/os.Stderr directly and
// stay testable against arbitrary io.Writers.
package rsyncos

import (
	"io"
	"os"

	"github.com/blocksync/rsync/internal/log"
)

// Std is the minimal set of standard streams a transfer needs.
type Std struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Env additionally carries a logger, for the daemon/CLI entry points that
// run before a Transfer (and its own Logger field) exists.
type Env struct {
	Std
	Logger log.Logger

	// DontRestrict disables the landlock sandboxing that maincmd.Main
	// otherwise applies before serving a --server connection. Nothing in
	// this module sets it.
	DontRestrict bool
}

// Logf logs through Env's logger, falling back to the package-level
// default logger if none was set.
func (e *Env) Logf(format string, args ...interface{}) {
	if e == nil || e.Logger == nil {
		log.Printf(format, args...)
		return
	}
	e.Logger.Printf(format, args...)
}

// Restrict reports whether the caller should apply filesystem sandboxing
// before serving a connection.
func (e *Env) Restrict() bool {
	return e == nil || !e.DontRestrict
}

// System returns the process's real standard streams.
func System() Std {
	return Std{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}
