// Package maincmd implements the '$ rsync' CLI surface: a daemon mode
// listening for rsync:// connections, a "--server" mode invoked over a
// remote shell, and a client mode that drives either of those as a peer.
package maincmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/blocksync/rsync/internal/restrict"
	"github.com/blocksync/rsync/internal/rsyncdconfig"
	"github.com/blocksync/rsync/internal/rsyncopts"
	"github.com/blocksync/rsync/internal/rsyncos"
	"github.com/blocksync/rsync/internal/rsyncstats"
	"github.com/blocksync/rsync/rsyncd"

	// For profiling and debugging
	_ "net/http/pprof"
)

type readWriter struct {
	r io.Reader
	w io.Writer
}

func (r *readWriter) Read(p []byte) (n int, err error)  { return r.r.Read(p) }
func (r *readWriter) Write(p []byte) (n int, err error) { return r.w.Write(p) }

// Main dispatches to daemon, server, or client mode depending on the
// parsed flags, the way rsync's own main() does based on --daemon and
// --server.
func Main(ctx context.Context, osenv *rsyncos.Env, args []string, cfg *rsyncdconfig.Config) (*rsyncstats.TransferStats, error) {
	osenv.Logf("Main(args=%q)", args)
	pc, err := rsyncopts.ParseArguments(osenv.Std, args[1:])
	if err != nil {
		return nil, err
	}
	opts := pc.Options
	remaining := pc.RemainingArgs

	// calling convention: daemon mode over remote shell.
	// Example: --server --daemon .
	if opts.Daemon() && opts.Server() {
		if cfg == nil {
			cfg, _, err = loadConfig(opts)
			if err != nil {
				return nil, err
			}
		}
		rsyncdOpts := []rsyncd.Option{rsyncd.WithStderr(osenv.Stderr)}
		srv, err := rsyncd.NewServer(cfg.Modules, rsyncdOpts...)
		if err != nil {
			return nil, err
		}
		conn := &readWriter{r: osenv.Stdin, w: osenv.Stdout}
		return nil, srv.HandleDaemonConn(ctx, osenv.Std, conn, nil)
	}

	// calling convention: command mode (over remote shell or locally).
	// Example: --server --sender -vvvvlogDtpre.iLsfxCIvu . .
	if opts.Server() {
		srv, err := rsyncd.NewServer(nil, rsyncd.WithStderr(osenv.Stderr))
		if err != nil {
			return nil, err
		}

		if len(remaining) < 2 {
			return nil, fmt.Errorf("invalid args: at least one directory required")
		}
		if got, want := remaining[0], "."; got != want {
			return nil, fmt.Errorf("protocol error: got %q, expected %q", got, want)
		}
		paths := remaining[1:]
		if opts.Verbose() {
			osenv.Logf("paths: %q", paths)
		}
		var roDirs, rwDirs []string
		if opts.Sender() {
			roDirs = append(roDirs, paths...)
		} else {
			for _, path := range paths {
				if err := os.MkdirAll(path, 0755); err != nil {
					return nil, err
				}
			}
			rwDirs = append(rwDirs, paths...)
		}
		if osenv.Restrict() {
			if err := restrict.MaybeFileSystem(roDirs, rwDirs); err != nil {
				return nil, err
			}
		}
		conn := srv.NewConnection(osenv.Stdin, osenv.Stdout)
		return nil, srv.HandleConn(nil, conn, paths, opts, true)
	}

	if !opts.Daemon() {
		return dispatchClient(ctx, osenv.Std, opts, remaining)
	}

	// calling convention: start a daemon in TCP listening mode (or with
	// systemd socket activation).
	if cfg == nil {
		var cfgPath string
		cfg, cfgPath, err = loadConfig(opts)
		if err != nil {
			return nil, err
		}
		if cfgPath != "" {
			osenv.Logf("config file %s loaded", cfgPath)
		} else {
			osenv.Logf("no config file found, relying on flags")
		}
	}

	if len(cfg.Listeners) != 1 || cfg.Listeners[0].Rsyncd == "" {
		return nil, fmt.Errorf("not precisely 1 rsyncd listener configured (add a [[listener]] to the config file, or pass --listen)")
	}
	listenAddr := cfg.Listeners[0].Rsyncd

	osenv.Logf("%d rsync modules configured in total", len(cfg.Modules))
	for _, mod := range cfg.Modules {
		osenv.Logf("rsync module %q with path %s configured", mod.Name, mod.Path)
	}

	if monitoringListen := opts.DaemonFlags().MonitoringListen(); monitoringListen != "" {
		go func() {
			osenv.Logf("HTTP server for monitoring listening on http://%s/debug/pprof", monitoringListen)
			if err := http.ListenAndServe(monitoringListen, nil); err != nil {
				osenv.Logf("--monitoring-listen: %v", err)
			}
		}()
	}

	srv, err := rsyncd.NewServer(cfg.Modules, rsyncd.WithStderr(osenv.Stderr))
	if err != nil {
		return nil, err
	}
	ln, err := listen(listenAddr)
	if err != nil {
		return nil, err
	}
	if err := dropPrivileges(osenv); err != nil {
		return nil, err
	}
	osenv.Logf("rsync daemon listening on rsync://%s", ln.Addr())
	return nil, srv.Serve(ctx, ln)
}

// loadConfig loads a daemon config either from the path given via
// --config, or from the default search locations; if neither produces
// one, it falls back to a single listener/module-map built from flags,
// so a daemon can run without ever writing a config file.
func loadConfig(opts *rsyncopts.Options) (*rsyncdconfig.Config, string, error) {
	flags := opts.DaemonFlags()
	if path := flags.ConfigPath(); path != "" {
		cfg, err := rsyncdconfig.FromFile(path)
		return cfg, path, err
	}
	cfg, path, err := rsyncdconfig.FromDefaultFiles()
	if err == nil {
		return cfg, path, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", err
	}

	listen := flags.Listen()
	moduleMap := flags.ModuleMap()
	if listen == "" {
		return nil, "", fmt.Errorf("no config file found and --listen not specified")
	}
	cfg = &rsyncdconfig.Config{
		Listeners: []rsyncdconfig.Listener{{Rsyncd: listen}},
	}
	if moduleMap != "" {
		name, path, err := parseModuleMap(moduleMap)
		if err != nil {
			return nil, "", err
		}
		cfg.Modules = append(cfg.Modules, rsyncd.Module{Name: name, Path: path})
	}
	return cfg, "", nil
}

func parseModuleMap(moduleMap string) (name, path string, err error) {
	for i := 0; i < len(moduleMap); i++ {
		if moduleMap[i] == '=' {
			return moduleMap[:i], moduleMap[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed --module-map parameter %q, expected <modulename>=<path>", moduleMap)
}

func listen(addr string) (net.Listener, error) {
	listeners, err := systemdListeners()
	if err != nil {
		return nil, err
	}
	if len(listeners) > 0 {
		return listeners[0], nil
	}
	return net.Listen("tcp", addr)
}
