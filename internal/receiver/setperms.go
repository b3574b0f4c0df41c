package receiver

import (
	"os"
	"path/filepath"
	"time"
)

// setPerms applies the metadata-reconciliation rules of §4.6 to the
// already-in-place file f. dry_run is checked first so every other
// branch can assume mutation is allowed.
func (rt *Transfer) setPerms(f *File) error {
	if rt.Opts.DryRun {
		return nil
	}
	local := filepath.Join(rt.Dest, f.Name)
	st, err := os.Lstat(local)
	if err != nil {
		return err
	}
	isSymlink := st.Mode()&os.ModeSymlink != 0
	changed := false

	if rt.Opts.PreserveTimes && !isSymlink && !st.ModTime().Equal(f.ModTime) {
		if err := os.Chtimes(local, time.Now(), f.ModTime); err != nil {
			return err
		}
		changed = true
	}

	if rt.Opts.PreservePerms && !isSymlink && st.Mode().Perm() != f.Mode.Perm() {
		if err := os.Chmod(local, f.Mode.Perm()); err != nil {
			return err
		}
		changed = true
	}

	if (rt.Opts.PreserveUid || rt.Opts.PreserveGid) && !isSymlink {
		if newSt, err := rt.setUid(f, local, st); err != nil {
			return err
		} else if newSt != nil {
			st = newSt
			changed = true
		}
	}

	if rt.Opts.Verbose {
		if changed {
			rt.Logger.Printf("%s updated", f.Name)
		} else {
			rt.Logger.Printf("%s uptodate", f.Name)
		}
	}
	return nil
}
