//go:build linux || darwin

package flist

import (
	"io/fs"
	"syscall"
)

// hardlinkID extracts the (device, inode) pair for info, when the
// platform's Stat_t reports more than one link to it. Entries with a
// single link report ok=false: nothing else in this transfer can alias
// them, so there is no need to spend wire bytes or a map slot on them.
func hardlinkID(info fs.FileInfo) (dev, ino uint64, ok bool) {
	stt, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stt.Nlink < 2 {
		return 0, 0, false
	}
	return uint64(stt.Dev), stt.Ino, true
}
