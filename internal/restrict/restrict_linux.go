// Package restrict confines the daemon process to the module paths it was
// told to serve, using the landlock LSM where the kernel supports it. A
// session that never needed write access outside its module directories
// before the sandbox went up cannot escape them afterward, even given an
// arbitrary path-traversal bug in the protocol layer above it.
package restrict

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/landlock-lsm/go-landlock/landlock"

	"github.com/blocksync/rsync/internal/log"
)

// ExtraRules is set by tests to widen the rule set beyond what a daemon
// process normally needs (e.g. permitting a scratch directory holding
// fixtures outside any declared module).
var ExtraRules func() []landlock.Rule

// resolverFiles lists the files Go's net resolver reads as of Go 1.24;
// daemon mode still needs DNS/NSS to work for reverse-lookup ACL checks.
var resolverFiles = []string{
	"/etc/resolv.conf",
	"/etc/hosts",
	"/etc/services",
	"/etc/nsswitch.conf",
	"/etc/passwd",
	"/etc/group",
}

// sshConfigDirs, sshBinDirs and sshDevices cover what an -e ssh remote
// shell needs to read/open when the daemon itself shells out to connect
// to a peer (host keys, known_hosts, the ssh(1) binary and its libs).
var sshConfigDirs = []string{
	filepath.Join(os.Getenv("HOME"), ".ssh"),
	"/etc/ssh",
}
var sshBinDirs = []string{
	"/usr",
}
var sshDevices = []string{
	"/dev/null",
}

// MaybeFileSystem locks the running process to roDirs (read-only) and
// rwDirs (read-write) plus the fixed allowances above, best-effort: on a
// kernel without landlock support this is a silent no-op rather than a
// startup failure, since the sandbox is defense-in-depth, not a
// correctness requirement.
func MaybeFileSystem(roDirs, rwDirs []string) error {
	extra := ExtraRules
	if extra == nil {
		extra = func() []landlock.Rule { return nil }
	}
	log.Printf("restricting filesystem access via landlock (%s)", logFields(roDirs, rwDirs))
	rules := append(extra(),
		landlock.ROFiles(resolverFiles...).IgnoreIfMissing(),
		landlock.RODirs(defaultRoDirs...).IgnoreIfMissing(),
		landlock.RODirs(sshConfigDirs...).IgnoreIfMissing(),
		landlock.RODirs(sshBinDirs...).IgnoreIfMissing(),
		landlock.RWFiles(sshDevices...).IgnoreIfMissing(),
		landlock.RODirs(roDirs...).IgnoreIfMissing(),
		landlock.RWDirs(rwDirs...).WithRefer(),
	)
	if err := landlock.V3.BestEffort().RestrictPaths(rules...); err != nil {
		return fmt.Errorf("landlock: %w", err)
	}
	return nil
}

func logFields(roDirs, rwDirs []string) string {
	return fmt.Sprintf("ro=%d rw=%d", len(roDirs), len(rwDirs))
}
