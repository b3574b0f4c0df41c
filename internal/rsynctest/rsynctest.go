// Package rsynctest spins up an in-process rsync daemon for use by
// integration tests, the way the sender and receiver integration suites need
// a live peer to synchronize against without shelling out to a system rsync
// binary.
package rsynctest

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/blocksync/rsync/internal/log"
	"github.com/blocksync/rsync/rsyncd"
)

// Server is a running daemon bound to an ephemeral local port, ready for a
// client to connect to via rsync://localhost:<Port>/<module>/.
type Server struct {
	Port string

	srv *rsyncd.Server
	ln  net.Listener
}

// Option configures the modules a test server exposes.
type Option func(*config)

type config struct {
	modules []rsyncd.Module
}

// InteropModule exposes path as a writable module named "interop", the name
// every test in this package's callers addresses the server by.
func InteropModule(path string) Option {
	return func(c *config) {
		c.modules = append(c.modules, rsyncd.Module{
			Name:     "interop",
			Path:     path,
			Writable: true,
		})
	}
}

// New starts a daemon in the background and arranges for it to be torn down
// when the test completes.
func New(t *testing.T, opts ...Option) *Server {
	t.Helper()

	var c config
	for _, opt := range opts {
		opt(&c)
	}

	srv, err := rsyncd.NewServer(c.modules, rsyncd.WithLogger(log.New(os.Stderr)))
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx, ln); err != nil {
			// Serve returns an error once the listener is closed during
			// teardown; only surface unexpected failures.
			select {
			case <-ctx.Done():
			default:
				t.Errorf("rsynctest daemon: %v", err)
			}
		}
	}()

	t.Cleanup(func() {
		cancel()
		ln.Close()
		<-done
	})

	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	return &Server{Port: port, srv: srv, ln: ln}
}

// WriteLargeDataFile creates a multi-megabyte file under dir/large-data-file
// whose first block, middle blocks, and last block are each filled with a
// distinct repeating byte pattern, so an incremental sync that only rewrites
// the middle can be told apart from one that rewrites everything.
func WriteLargeDataFile(t *testing.T, dir string, head, body, end []byte) {
	t.Helper()

	const (
		blockSize  = 64 * 1024
		numBlocks  = 32
		headBlocks = 1
		endBlocks  = 1
	)

	f, err := os.Create(filepath.Join(dir, "large-data-file"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	writeBlock := func(pattern []byte) {
		buf := bytes.Repeat(pattern, blockSize/len(pattern)+1)[:blockSize]
		if _, err := f.Write(buf); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < headBlocks; i++ {
		writeBlock(head)
	}
	for i := 0; i < numBlocks-headBlocks-endBlocks; i++ {
		writeBlock(body)
	}
	for i := 0; i < endBlocks; i++ {
		writeBlock(end)
	}
}

// DataFileMatches verifies a file written by WriteLargeDataFile landed
// correctly at path.
func DataFileMatches(path string, head, body, end []byte) error {
	got, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	const blockSize = 64 * 1024
	if len(got) == 0 || len(got)%blockSize != 0 {
		return fmt.Errorf("unexpected file size %d, not a multiple of %d", len(got), blockSize)
	}
	numBlocks := len(got) / blockSize

	check := func(idx int, pattern []byte) error {
		block := got[idx*blockSize : (idx+1)*blockSize]
		want := bytes.Repeat(pattern, blockSize/len(pattern)+1)[:blockSize]
		if !bytes.Equal(block, want) {
			return fmt.Errorf("block %d does not match expected pattern %x", idx, pattern)
		}
		return nil
	}

	if err := check(0, head); err != nil {
		return err
	}
	if err := check(numBlocks-1, end); err != nil {
		return err
	}
	for i := 1; i < numBlocks-1; i++ {
		if err := check(i, body); err != nil {
			return err
		}
	}
	return nil
}
