package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/blocksync/rsync"
	"github.com/blocksync/rsync/internal/log"
	"github.com/blocksync/rsync/internal/rsyncopts"
	"github.com/blocksync/rsync/internal/rsyncos"
	"github.com/blocksync/rsync/internal/rsyncstats"
)

// socketClient connects directly to a daemon's rsync:// TCP listener,
// completes the text-based greeting handshake (the client-side mirror
// of rsyncd.Server.HandleDaemonConn), then hands off to the binary
// protocol via clientRun.
func socketClient(ctx context.Context, osenv rsyncos.Std, opts *rsyncopts.Options, host, path string, port int, other string) (*rsyncstats.TransferStats, error) {
	if port == 0 {
		port = 873
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	module := path
	if idx := strings.IndexByte(module, '/'); idx >= 0 {
		module = module[:idx]
	}
	rd := bufio.NewReader(conn)
	if err := daemonGreet(rd, conn, opts, module, path); err != nil {
		return nil, err
	}

	return clientRun(osenv, opts, &bufferedConn{rd: rd, w: conn}, []string{other}, false)
}

// startInbandExchange performs the same text greeting, but over a
// connection already established via a remote shell (e.g. SSH spawning
// "rsync --server --daemon"), rather than a raw socket. It always
// returns done=false: by the time the greeting completes, the binary
// protocol has not yet started, so the caller must still run clientRun
// (with negotiate=false, since the daemon greeting already carried the
// protocol version).
func startInbandExchange(osenv rsyncos.Std, opts *rsyncopts.Options, conn io.ReadWriter, module, path string) (done bool, err error) {
	rd := bufio.NewReader(conn)
	if err := daemonGreet(rd, conn, opts, module, path); err != nil {
		return false, err
	}
	return false, nil
}

// daemonGreet runs the client half of the @RSYNCD greeting: exchange
// protocol banners, request a module, wait for the termination command,
// then send the server-option flags the remote "--server" process
// needs, followed by "." and path, ending with a blank line.
func daemonGreet(rd *bufio.Reader, w io.Writer, opts *rsyncopts.Options, module, path string) error {
	const terminationCommand = "@RSYNCD: OK\n"

	if _, err := fmt.Fprintf(w, "@RSYNCD: %d\n", rsync.ProtocolVersion); err != nil {
		return err
	}
	serverGreeting, err := rd.ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.HasPrefix(serverGreeting, "@RSYNCD: ") {
		return fmt.Errorf("invalid server greeting: got %q", serverGreeting)
	}

	if _, err := fmt.Fprintf(w, "%s\n", module); err != nil {
		return err
	}

	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, "@ERROR") {
			return fmt.Errorf("daemon error: %s", strings.TrimSpace(line))
		}
		if line == terminationCommand {
			break
		}
		log.Printf("daemon: %s", strings.TrimSpace(line))
	}

	for _, flag := range append(rsyncopts.ServerOptions(opts), ".", path) {
		if _, err := fmt.Fprintf(w, "%s\n", flag); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(w, "\n")
	return err
}

// bufferedConn adapts a bufio.Reader (which may already have buffered
// bytes read past the text greeting) and the underlying writer back
// into a single io.ReadWriter for clientRun.
type bufferedConn struct {
	rd *bufio.Reader
	w  io.Writer
}

func (b *bufferedConn) Read(p []byte) (int, error)  { return b.rd.Read(p) }
func (b *bufferedConn) Write(p []byte) (int, error) { return b.w.Write(p) }
