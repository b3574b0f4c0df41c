//go:build readonly_root

package restrict

var defaultRoDirs = []string{
	// See restrictdefault_writableroot.go for rationale.
	"/etc",
	// On systems with a read-only root filesystem, /etc/resolv.conf is
	// often a symlink into a writable tmpfs, so we also need read-only
	// access to /tmp.
	"/tmp",
}
