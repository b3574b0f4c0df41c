//go:build linux || darwin

package receiver

import (
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

var amRoot = os.Getuid() == 0

var inGroup = func() map[uint32]bool {
	m := make(map[uint32]bool)
	u, err := user.Current()
	if err != nil {
		return m
	}
	gids, err := u.GroupIds()
	if err != nil {
		return m
	}
	for _, gidString := range gids {
		gid64, err := strconv.ParseInt(gidString, 0, 64)
		if err != nil {
			return m
		}
		m[uint32(gid64)] = true
	}
	return m
}()

// setUid applies ownership changes per §4.6 ("chown, passing -1 for
// unchanged axis"). It reports (nil, nil) when nothing needed changing,
// so callers can tell a no-op apart from a real update.
func (rt *Transfer) setUid(f *File, local string, st fs.FileInfo) (fs.FileInfo, error) {
	stt := st.Sys().(*syscall.Stat_t)

	changeUid := rt.Opts.PreserveUid &&
		amRoot &&
		stt.Uid != uint32(f.Uid)

	changeGid := rt.Opts.PreserveGid &&
		(amRoot || inGroup[uint32(f.Gid)]) &&
		stt.Gid != uint32(f.Gid)

	if !changeUid && !changeGid {
		return nil, nil
	}

	uid, gid := -1, -1
	if changeUid {
		uid = int(f.Uid)
	}
	if changeGid {
		gid = int(f.Gid)
	}
	// TODO(go1.25): use os.Root.Lchown
	if err := os.Lchown(local, uid, gid); err != nil {
		return nil, err
	}
	return rt.DestRoot.Lstat(f.Name)
}
