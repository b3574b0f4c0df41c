package receiver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	rsync "github.com/blocksync/rsync"
	"github.com/blocksync/rsync/internal/rsyncchecksum"
	"github.com/blocksync/rsync/internal/signature"
)

// hardlinkKey identifies an inode for the hard-link-alias check (§4.3
// step 4). Populated lazily as regular files are visited.
type hardlinkKey struct {
	dev, ino uint64
}

// GenerateFiles is the Generator half of the session (§4.3): it walks
// fileList, decides what each entry needs, and streams per-file
// signatures (or an empty table, for brand-new files) to the Sender.
func (rt *Transfer) GenerateFiles(fileList []*File) error {
	seen := make(map[hardlinkKey]*File)

	// Preliminary pass: create directories first so that regular files and
	// symlinks nested within them have somewhere to land (§4.3 step 1).
	for _, f := range fileList {
		if f.IsDir() {
			if err := rt.generateDir(f); err != nil {
				return err
			}
		}
	}

	for _, f := range fileList {
		if f.IsDir() {
			continue
		}
		if err := rt.generateOne(f, seen); err != nil {
			return err
		}
	}

	if err := rt.Conn.WriteInt32(-1); err != nil {
		return err
	}

	if rsync.ProtocolVersion < rsync.Phase2MinVersion {
		return nil
	}

	// Phase 2: raise csum_length to the maximum and re-run the per-file
	// path for whichever indices TransferOpts.SuspectFiles selects; nothing
	// is read from the Receiver for this. With no hook installed, nothing
	// is re-requested (§9b).
	var suspects []int32
	if rt.Opts.SuspectFiles != nil {
		suspects = rt.Opts.SuspectFiles(fileList)
	}
	for _, idx := range suspects {
		if idx < 0 || int(idx) >= len(fileList) {
			continue
		}
		if err := rt.generateOneAt(idx, fileList[idx], rsync.SumLength); err != nil {
			return err
		}
	}
	return rt.Conn.WriteInt32(-1)
}

// hardlinkKeyFor extracts the (device, inode) pair the sender reported
// for f, for the hard-link-alias check (§4.3 step 4). It keys off the
// sender's inode rather than anything at the destination: the
// destination copy may not exist yet on a fresh sync, which is exactly
// the case this check exists to handle. ok is false when the sender
// never reported an inode for f (not a regular file, or a single-link
// file with nothing to alias).
func (rt *Transfer) hardlinkKeyFor(f *File) (hardlinkKey, bool) {
	if !f.HasHardlinkID() {
		return hardlinkKey{}, false
	}
	return hardlinkKey{dev: f.Dev, ino: f.Ino}, true
}

func (rt *Transfer) generateDir(f *File) error {
	if rt.Opts.DryRun {
		return nil
	}
	local := filepath.Join(rt.Dest, f.Name)
	if err := os.Mkdir(local, f.Mode.Perm()); err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

func (rt *Transfer) generateOne(f *File, seen map[hardlinkKey]*File) error {
	csumLen := rt.phase1ChecksumLength(f.Size)

	if f.IsSymlink() && rt.Opts.PreserveLinks {
		return rt.generateSymlink(f)
	}
	if f.IsDevice() && rt.Opts.PreserveDevices {
		return rt.generateDevice(f)
	}
	if !f.IsRegular() {
		rt.Logger.Printf("skipping non-regular, unhandled entry %s", f.Name)
		return nil
	}

	if rt.Opts.PreserveHardlinks {
		if key, ok := rt.hardlinkKeyFor(f); ok {
			if primary, dup := seen[key]; dup {
				// A secondary reference to an inode already transferred:
				// queue the alias for relinking once the primary's data has
				// actually landed, instead of asking the Sender to
				// re-transfer identical bytes (§4.3 step 4). The primary may
				// still be in flight on the concurrently-running Receiver,
				// so the link itself happens after both halves finish.
				rt.pendingHardlinks = append(rt.pendingHardlinks, hardlinkAlias{
					primary: primary,
					alias:   f,
				})
				return nil
			}
			seen[key] = f
		}
	}

	return rt.generateOneAt(f.Index, f, csumLen)
}

// hardlinkAlias is one entry the Generator deferred: alias should become
// a hard link to primary once primary's own data transfer has landed.
type hardlinkAlias struct {
	primary, alias *File
}

// applyHardlinkAliases materializes every alias queued during generation
// (§4.3 step 4). Called once both the Generator and Receiver finish, so
// every primary has already been fully written.
func (rt *Transfer) applyHardlinkAliases() error {
	if rt.Opts.DryRun {
		return nil
	}
	for _, a := range rt.pendingHardlinks {
		oldname := filepath.Join(rt.Dest, a.primary.Name)
		newname := filepath.Join(rt.Dest, a.alias.Name)
		if err := os.Remove(newname); err != nil && !os.IsNotExist(err) {
			rt.IOErrors++
			rt.Logger.Printf("removing %s before hard-linking: %v", newname, err)
			continue
		}
		if err := os.Link(oldname, newname); err != nil {
			rt.IOErrors++
			rt.Logger.Printf("hard-linking %s to %s: %v", newname, oldname, err)
			continue
		}
		if err := rt.setPerms(a.alias); err != nil {
			rt.IOErrors++
			rt.Logger.Printf("fixing perms on hard-linked %s: %v", newname, err)
		}
	}
	return nil
}

// blocksumBias mirrors rsync's BLOCKSUM_BIAS: the number of strong-checksum
// bits the protocol spends even on a single-block file, before the
// size/block-count-dependent growth kicks in.
const blocksumBias = 10

// phase1ChecksumLength picks the truncated per-block strong-checksum length
// for a file of the given size (§4.1), following the shape of rsync's
// sum_sizes_sqroot: longer files (more blocks to tell apart) get a longer
// truncated digest, so truncation collisions stay rare without paying
// rsync.SumLength on every file. Phase 2 (generateOneAt invoked from the
// suspect-file loop) always passes rsync.SumLength directly instead of
// calling this.
func (rt *Transfer) phase1ChecksumLength(fileSize int64) int32 {
	blength := rt.blockLength()
	if blength <= 0 {
		blength = rsync.DefaultBlockLength
	}

	b := int32(blocksumBias)
	for l := fileSize / int64(blength); l > 0; l >>= 1 {
		b += 2
	}

	csumLen := int32(1) + b/8
	if csumLen < 2 {
		csumLen = 2
	}
	if csumLen > rsync.SumLength {
		csumLen = rsync.SumLength
	}
	return csumLen
}

func (rt *Transfer) generateOneAt(idx int32, f *File, csumLen int32) error {
	local := filepath.Join(rt.Dest, f.Name)
	st, err := os.Lstat(local)
	if err != nil {
		if os.IsNotExist(err) {
			return rt.sendIndexAndSignature(idx, nil, 0, csumLen)
		}
		rt.IOErrors++
		rt.Logger.Printf("stat %s: %v, skipping", local, err)
		return nil
	}
	if !st.Mode().IsRegular() {
		rt.Logger.Printf("%s exists but is not a regular file, skipping", local)
		return nil
	}

	if rt.Opts.UpdateOnly && !st.ModTime().Before(f.ModTime) {
		return nil
	}

	if rt.skipUnchanged(f, st, local) {
		return rt.fixMetadataOnly(f, local, st)
	}

	in, err := os.Open(local)
	if err != nil {
		rt.IOErrors++
		rt.Logger.Printf("open %s: %v, requesting whole file", local, err)
		return rt.sendIndexAndSignature(idx, nil, 0, csumLen)
	}
	defer in.Close()

	return rt.sendIndexAndSignature(idx, in, st.Size(), csumLen)
}

func (rt *Transfer) skipUnchanged(f *File, st os.FileInfo, local string) bool {
	if st.Size() != f.Size {
		return false
	}
	if !rt.Opts.IgnoreTimes && st.ModTime().Equal(f.ModTime) {
		return true
	}
	if rt.Opts.AlwaysChecksum {
		digest, err := rsyncchecksum.WholeFile(local, rt.Seed)
		if err == nil && len(f.Sum) > 0 && bytesEqual(digest, f.Sum) {
			return true
		}
	}
	return false
}

func (rt *Transfer) sendIndexAndSignature(idx int32, r interface {
	ReadAt([]byte, int64) (int, error)
}, length int64, csumLen int32) error {
	if err := rt.Conn.WriteInt32(idx); err != nil {
		return err
	}
	var table *signature.Table
	if r == nil {
		empty, err := signature.Generate(zeroReaderAt{}, 0, rt.blockLength(), csumLen, rt.Seed)
		if err != nil {
			return err
		}
		table = empty
	} else {
		t, err := signature.Generate(r, length, rt.blockLength(), csumLen, rt.Seed)
		if err != nil {
			return err
		}
		table = t
	}
	return table.WriteTo(rt.Conn)
}

type zeroReaderAt struct{}

func (zeroReaderAt) ReadAt(p []byte, off int64) (int, error) { return 0, nil }

func (rt *Transfer) fixMetadataOnly(f *File, local string, st os.FileInfo) error {
	return rt.setPerms(f)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
