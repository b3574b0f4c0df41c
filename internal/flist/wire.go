package flist

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/blocksync/rsync/internal/rsyncwire"
)

// flags bits for the optional per-entry fields.
const (
	flagSymlink = 1 << iota
	flagDevice
	flagSum
	flagHardlinkID
)

// WriteTo serializes list to c: a count, followed by that many entries,
// each self-contained (name, mode, size, mtime, uid/gid, and whichever
// optional fields its flags byte announces).
func WriteTo(c *rsyncwire.Conn, list List) error {
	if err := c.WriteInt32(int32(len(list))); err != nil {
		return err
	}
	for _, f := range list {
		if err := writeEntry(c, f); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(c *rsyncwire.Conn, f *File) error {
	var flags byte
	if f.IsSymlink() {
		flags |= flagSymlink
	}
	if f.IsDevice() {
		flags |= flagDevice
	}
	if len(f.Sum) > 0 {
		flags |= flagSum
	}
	if f.HasHardlinkID() {
		flags |= flagHardlinkID
	}

	if err := c.WriteByte(flags); err != nil {
		return err
	}
	if err := writeString(c, f.Name); err != nil {
		return err
	}
	if err := c.WriteInt32(int32(f.Mode)); err != nil {
		return err
	}
	if err := c.WriteInt64(f.Size); err != nil {
		return err
	}
	if err := c.WriteInt64(f.ModTime.Unix()); err != nil {
		return err
	}
	if err := c.WriteInt32(f.Uid); err != nil {
		return err
	}
	if err := c.WriteInt32(f.Gid); err != nil {
		return err
	}
	if flags&flagDevice != 0 {
		if err := c.WriteInt64(int64(f.Rdev)); err != nil {
			return err
		}
	}
	if flags&flagSymlink != 0 {
		if err := writeString(c, f.LinkTarget); err != nil {
			return err
		}
	}
	if flags&flagSum != 0 {
		if err := c.WriteByte(byte(len(f.Sum))); err != nil {
			return err
		}
		if err := c.WriteBuf(f.Sum); err != nil {
			return err
		}
	}
	if flags&flagHardlinkID != 0 {
		if err := c.WriteInt64(int64(f.Dev)); err != nil {
			return err
		}
		if err := c.WriteInt64(int64(f.Ino)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes a list written by WriteTo, assigning each entry's
// Index as its position.
func ReadFrom(c *rsyncwire.Conn) (List, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("flist: negative entry count %d", n)
	}
	list := make(List, n)
	for i := int32(0); i < n; i++ {
		f, err := readEntry(c)
		if err != nil {
			return nil, err
		}
		f.Index = i
		list[i] = f
	}
	return list, nil
}

func readEntry(c *rsyncwire.Conn) (*File, error) {
	flags, err := c.ReadByte()
	if err != nil {
		return nil, err
	}
	name, err := readString(c)
	if err != nil {
		return nil, err
	}
	mode, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	size, err := c.ReadInt64()
	if err != nil {
		return nil, err
	}
	mtime, err := c.ReadInt64()
	if err != nil {
		return nil, err
	}
	uid, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	gid, err := c.ReadInt32()
	if err != nil {
		return nil, err
	}
	f := &File{
		Name:    name,
		Mode:    fs.FileMode(mode),
		Size:    size,
		ModTime: time.Unix(mtime, 0).UTC(),
		Uid:     uid,
		Gid:     gid,
	}
	if flags&flagDevice != 0 {
		rdev, err := c.ReadInt64()
		if err != nil {
			return nil, err
		}
		f.Rdev = uint64(rdev)
	}
	if flags&flagSymlink != 0 {
		target, err := readString(c)
		if err != nil {
			return nil, err
		}
		f.LinkTarget = target
	}
	if flags&flagSum != 0 {
		n, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		sum := make([]byte, n)
		if err := c.ReadBuf(sum); err != nil {
			return nil, err
		}
		f.Sum = sum
	}
	if flags&flagHardlinkID != 0 {
		dev, err := c.ReadInt64()
		if err != nil {
			return nil, err
		}
		ino, err := c.ReadInt64()
		if err != nil {
			return nil, err
		}
		f.Dev = uint64(dev)
		f.Ino = uint64(ino)
	}
	return f, nil
}

func writeString(c *rsyncwire.Conn, s string) error {
	if err := c.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	return c.WriteBuf([]byte(s))
}

func readString(c *rsyncwire.Conn) (string, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("flist: negative string length %d", n)
	}
	buf := make([]byte, n)
	if err := c.ReadBuf(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
