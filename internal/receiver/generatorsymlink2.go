//go:build linux || darwin

package receiver

import (
	"os"
	"path/filepath"
)

// generateSymlink implements §4.3 step 2: reuse an already-correct
// symlink in place, otherwise replace whatever is there.
func (rt *Transfer) generateSymlink(f *File) error {
	local := filepath.Join(rt.Dest, f.Name)
	if target, err := os.Readlink(local); err == nil && target == f.LinkTarget {
		return rt.setPerms(f)
	}
	if rt.Opts.DryRun {
		return nil
	}
	_ = os.Remove(local)
	if err := symlink(f.LinkTarget, local); err != nil {
		return err
	}
	return rt.setPerms(f)
}
