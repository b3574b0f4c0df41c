// Package rsyncclient exposes the client role (sender or receiver) for
// callers that already have a connection to an rsync peer — a subprocess's
// stdio pipes, an in-process io.Pipe, a dialed socket — and just want to run
// the wire protocol over it, without going through the CLI's hostspec/SSH
// dialing in package maincmd.
package rsyncclient

import (
	"context"
	"io"

	"github.com/blocksync/rsync/internal/maincmd"
	"github.com/blocksync/rsync/internal/rsyncopts"
	"github.com/blocksync/rsync/internal/rsyncos"
	"github.com/blocksync/rsync/internal/rsyncstats"
)

// Client runs one side of a transfer over a caller-supplied connection.
type Client struct {
	osenv rsyncos.Std
	opts  *rsyncopts.Options
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithSender forces the client to act as the sender (the role rsync's own
// --sender flag selects), overriding whatever New's flag parsing inferred.
func WithSender() Option {
	return func(c *Client) {
		c.opts.SetSender()
	}
}

// WithStdio routes the client's own diagnostic output (verbose logging,
// progress) to osenv instead of the process's real stdio.
func WithStdio(osenv rsyncos.Std) Option {
	return func(c *Client) {
		c.osenv = osenv
	}
}

// New parses args the way rsync's own CLI would (e.g. "-av", "--delete")
// and returns a Client ready to Run against a connection. args must not
// include source/destination paths; those are supplied to Run.
func New(args []string, opts ...Option) (*Client, error) {
	osenv := rsyncos.System()
	pc, err := rsyncopts.ParseArguments(osenv, args)
	if err != nil {
		return nil, err
	}
	c := &Client{osenv: osenv, opts: pc.Options}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run speaks the client side of the wire protocol over rw, sending or
// receiving paths depending on whether WithSender was used.
//
// ctx is accepted for API symmetry with this module's other entry points;
// cancellation is the caller's responsibility via rw (e.g. closing the
// underlying connection) until the wire loop itself is made
// context-aware.
func (c *Client) Run(ctx context.Context, rw io.ReadWriter, paths []string) (*rsyncstats.TransferStats, error) {
	const negotiate = true
	return maincmd.ClientRun(c.osenv, c.opts, rw, paths, negotiate)
}
