//go:build !linux && !darwin

package flist

import "io/fs"

// hardlinkID has no syscall.Stat_t-backed inode on this platform; the
// hard-link-alias check (§4.3 step 4) simply never fires here.
func hardlinkID(info fs.FileInfo) (dev, ino uint64, ok bool) {
	return 0, 0, false
}
