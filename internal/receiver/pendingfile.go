package receiver

import (
	"os"
	"path/filepath"

	"github.com/blocksync/rsync/internal/sparsefile"
	"github.com/google/renameio/v2"
)

// pendingFile is the temp-file-then-atomic-rename target a regular file
// is reconstructed into (§4.5): writes land in a sibling temp file, and
// only a successful, fully-verified transfer gets renamed over the real
// target.
type pendingFile struct {
	target  string
	pending *renameio.PendingFile
	sparse  *sparsefile.Writer
	done    bool
}

// newPendingFile creates the temp file backing target, named
// target+".XXXXXX" by renameio. No mode is set here: the temp file gets
// renameio's default mode, and setPerms applies the final one later.
func newPendingFile(target string) (*pendingFile, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	pf, err := renameio.NewPendingFile(target, renameio.WithTempDir(filepath.Dir(target)))
	if err != nil {
		return nil, err
	}
	sw, err := sparsefile.New(pf.File)
	if err != nil {
		_ = pf.Cleanup()
		return nil, err
	}
	return &pendingFile{target: target, pending: pf, sparse: sw}, nil
}

// Write implements io.Writer by way of the sparse-file discipline (§8
// property 4): zero runs become seeks, not physical writes.
func (p *pendingFile) Write(b []byte) (int, error) {
	return p.sparse.Write(b)
}

// CloseAtomicallyReplace finalizes the sparse length, then renames the
// temp file over the target.
func (p *pendingFile) CloseAtomicallyReplace() error {
	if err := p.sparse.Close(0); err != nil {
		_ = p.pending.Cleanup()
		return err
	}
	p.done = true
	return p.pending.CloseAtomicallyReplace()
}

// Cleanup removes the temp file if it was never committed. Safe to call
// after a successful CloseAtomicallyReplace (it becomes a no-op).
func (p *pendingFile) Cleanup() {
	if p.done {
		return
	}
	_ = p.pending.Cleanup()
}
