package rsynctest

import (
	"os/exec"
	"testing"
)

// AnyRsync locates a system rsync binary for interop tests that need to
// exec a real peer, skipping the test when none is installed.
func AnyRsync(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("rsync")
	if err != nil {
		t.Skip("system rsync binary not found in PATH")
	}
	return path
}
