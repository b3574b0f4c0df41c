// Package flist defines the file descriptor record the delta-transfer
// protocol operates on, plus the minimal wire codec used to exchange file
// lists between peers.
//
// Real rsync's file-list wire format is an elaborate byte-saving scheme
// (repeat-the-last-mode flags, inherited filename prefixes, incremental
// directory recursion). That machinery is explicitly out of scope for this
// engine ("file-list enumeration and serialization ... treated as an
// external collaborator with a named interface only") — File and List
// below are that named interface: a complete, simple, round-trippable
// record and codec, not a byte-for-byte reimplementation of rsync's flist.
package flist

import (
	"io/fs"
	"time"
)

// File is one entry in the agreed-upon file list (§3 "File descriptor
// record").
type File struct {
	// Index is this entry's stable position within the list; tokens and
	// index streams refer to files by this number.
	Index int32

	Name   string // path relative to the transfer root
	Mode   fs.FileMode
	Size   int64
	ModTime time.Time
	Uid    int32
	Gid    int32

	// Rdev is the device number, populated only for device-node entries.
	Rdev uint64
	// LinkTarget is the symlink target, populated only for symlink
	// entries.
	LinkTarget string

	// Sum is the whole-file strong checksum (§4.3). Walk does not compute
	// it and nothing else in this module fills it in, so it stays empty:
	// the Generator's always_checksum comparison never matches, and an
	// unchanged file is skipped only on size and mtime.
	Sum []byte

	// Dev and Ino identify the sender's inode for a regular file that has
	// more than one hard link. Zero when the sender couldn't determine
	// link count (non-regular entries, or a platform Walk has no
	// syscall.Stat_t support for) or the file has only one link — the
	// hard-link-alias check (§4.3 step 4) only needs a key for files that
	// actually alias another entry in this same transfer.
	Dev, Ino uint64
}

// HasHardlinkID reports whether the sender reported inode identity for
// this entry, i.e. whether Dev/Ino are meaningful.
func (f *File) HasHardlinkID() bool { return f.Dev != 0 || f.Ino != 0 }

// IsRegular reports whether this entry is a plain file.
func (f *File) IsRegular() bool { return f.Mode.IsRegular() }

// IsDir reports whether this entry is a directory.
func (f *File) IsDir() bool { return f.Mode.IsDir() }

// IsSymlink reports whether this entry is a symbolic link.
func (f *File) IsSymlink() bool { return f.Mode&fs.ModeSymlink != 0 }

// IsDevice reports whether this entry is a device node (char or block).
func (f *File) IsDevice() bool { return f.Mode&(fs.ModeDevice|fs.ModeCharDevice) != 0 }

// List is an ordered, indexed file list, as agreed upon by both peers
// before the delta-transfer phase begins.
type List []*File

// ByName returns the first entry with the given relative name, or nil.
func (l List) ByName(name string) *File {
	for _, f := range l {
		if f.Name == name {
			return f
		}
	}
	return nil
}
