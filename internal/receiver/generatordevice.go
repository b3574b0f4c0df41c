//go:build linux || darwin

package receiver

import (
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// generateDevice implements §4.3 step 3: recreate a mismatched or
// missing device node, otherwise fix up metadata only.
func (rt *Transfer) generateDevice(f *File) error {
	local := filepath.Join(rt.Dest, f.Name)
	st, err := os.Lstat(local)
	if err == nil {
		if stt, ok := st.Sys().(*syscall.Stat_t); ok {
			sameMode := st.Mode()&(os.ModeDevice|os.ModeCharDevice) == f.Mode&(os.ModeDevice|os.ModeCharDevice)
			if sameMode && uint64(stt.Rdev) == f.Rdev {
				return rt.setPerms(f)
			}
		}
	}
	if rt.Opts.DryRun {
		return nil
	}
	_ = os.Remove(local)

	mode := uint32(f.Mode.Perm())
	if f.Mode&os.ModeCharDevice != 0 {
		mode |= unix.S_IFCHR
	} else {
		mode |= unix.S_IFBLK
	}
	if err := unix.Mknod(local, mode, int(f.Rdev)); err != nil {
		return err
	}
	return rt.setPerms(f)
}
