package maincmd

import (
	"fmt"
	"strconv"
	"strings"
)

// checkForHostspec parses the rsync "hostspec" forms for a remote
// argument: "rsync://host[:port]/module/path", "host::module/path" (daemon
// via remote shell or raw socket) and "host:path" (remote shell, no
// daemon). It returns a non-nil error when arg doesn't look like any of
// these, meaning the argument is a local path.
func checkForHostspec(arg string) (host, path string, port int, err error) {
	if rest, ok := strings.CutPrefix(arg, "rsync://"); ok {
		hostport := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			hostport = rest[:idx]
			path = rest[idx+1:]
		}
		host, port, err = splitHostPort(hostport, 873)
		return host, path, port, err
	}

	if idx := strings.Index(arg, "::"); idx >= 0 {
		host, port, err = splitHostPort(arg[:idx], 873)
		if err != nil {
			return "", "", 0, err
		}
		return host, arg[idx+2:], port, nil
	}

	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		// A colon preceded by a path separator (e.g. "./a:b") is not a
		// hostspec; require at least one character before the colon and
		// no slash in that prefix.
		prefix := arg[:idx]
		if prefix == "" || strings.ContainsAny(prefix, "/\\") {
			return "", "", 0, fmt.Errorf("not a hostspec: %q", arg)
		}
		return prefix, arg[idx+1:], 0, nil
	}

	return "", "", 0, fmt.Errorf("not a hostspec: %q", arg)
}

func splitHostPort(hostport string, defaultPort int) (host string, port int, err error) {
	if idx := strings.LastIndexByte(hostport, ':'); idx >= 0 {
		p, err := strconv.Atoi(hostport[idx+1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid port in %q: %v", hostport, err)
		}
		return hostport[:idx], p, nil
	}
	return hostport, defaultPort, nil
}
