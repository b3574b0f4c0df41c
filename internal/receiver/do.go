package receiver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/blocksync/rsync/internal/rsyncstats"
	"github.com/blocksync/rsync/internal/rsyncwire"
	"golang.org/x/sync/errgroup"
)

func findInFileList(fileList []*File, name string) bool {
	for _, f := range fileList {
		if f.Name == name {
			return true
		}
	}
	return false
}

func isTopDir(f *File) bool {
	// TODO: once we check the f.Flags:
	// if !f.FileMode().IsDir() {
	//    // non-directories can get the top_dir flag set,
	//    // but it must be ignored (only for protocol reasons).
	//   return false
	// }
	// return (f.Flags & TOP_DIR) != 0
	return f.Name == "."
}

func (rt *Transfer) deleteFiles(fileList []*File) error {
	if rt.IOErrors > 0 {
		rt.Logger.Printf("IO error encountered, skipping file deletion")
		return nil
	}

	for _, f := range fileList {
		if !isTopDir(f) {
			continue
		}
		rt.Logger.Printf("deleting in %s", f.Name)
		root := filepath.Clean(rt.Dest)
		strip := root + "/"

		type candidate struct {
			path  string
			name  string
			isDir bool
		}
		var extra []candidate
		// Other rsync implementations generate a local file list and compare it
		// with the remote file list, we re-implement the path→name mapping part
		// of file list generation here. We could change it for consistency.
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := strings.TrimPrefix(path, strip)
			if name == root {
				name = "."
			}
			if findInFileList(fileList, name) {
				return nil
			}
			extra = append(extra, candidate{path: path, name: name, isDir: info.IsDir()})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				return nil // destination does not exist, nothing to do
			}
			return err
		}

		// Walk visits a directory before its descendants (pre-order), so a
		// directory's children always sort after it in extra. Deleting in
		// reverse guarantees every descendant is gone before its own
		// removal is attempted, so ENOTEMPTY can only mean "not everything
		// under here was slated for deletion" (§4.6).
		for i := len(extra) - 1; i >= 0; i-- {
			c := extra[i]
			if rt.Opts.Verbose {
				rt.Logger.Printf("  deleting %s", c.name)
			}
			if rt.Opts.DryRun {
				continue
			}
			var err error
			if c.isDir {
				err = os.Remove(c.path)
				if err != nil && errors.Is(err, syscall.ENOTEMPTY) {
					err = nil
				}
			} else {
				err = os.Remove(c.path)
			}
			if err != nil {
				rt.Logger.Printf("removing %s: %v", c.path, err)
			}
		}
	}
	return nil
}

// Do runs one full session against fileList: optional deletion
// reconciliation, then the Generator and Receiver halves concurrently
// (§5), then the final stats exchange.
func (rt *Transfer) Do(c *rsyncwire.Conn, fileList []*File, noReport bool) (*rsyncstats.TransferStats, error) {
	if rt.DestRoot == nil {
		if !rt.Opts.DryRun {
			if err := os.MkdirAll(rt.Dest, 0o755); err != nil {
				return nil, err
			}
		}
		root, err := os.OpenRoot(rt.Dest)
		if err != nil && !(rt.Opts.DryRun && os.IsNotExist(err)) {
			return nil, err
		}
		if root != nil { // a dry run writes nothing, so needs no root
			rt.DestRoot = root
			defer root.Close()
		}
	}

	if rt.Opts.DeleteMode {
		if err := rt.deleteFiles(fileList); err != nil {
			return nil, err
		}
	}

	ctx := context.Background()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return rt.GenerateFiles(fileList)
	})
	eg.Go(func() error {
		// Ensure we don’t block on the receiver when the generator returns an
		// error.
		errChan := make(chan error)
		go func() {
			errChan <- rt.RecvFiles(fileList)
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			return err
		}
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if rt.Opts.PreserveHardlinks {
		if err := rt.applyHardlinkAliases(); err != nil {
			return nil, err
		}
	}

	var stats *rsyncstats.TransferStats
	if !noReport {
		var err error
		stats, err = rt.report(c)
		if err != nil {
			return nil, err
		}
	}

	// send final goodbye message
	if err := c.WriteInt32(-1); err != nil {
		return nil, err
	}

	return stats, nil
}

// report renders the final read/written/size triplet into stats.
func (rt *Transfer) report(c *rsyncwire.Conn) (*rsyncstats.TransferStats, error) {
	// read statistics:
	// total bytes read (from network connection)
	read, err := c.ReadInt64()
	if err != nil {
		return nil, err
	}
	// total bytes written (to network connection)
	written, err := c.ReadInt64()
	if err != nil {
		return nil, err
	}
	// total size of files
	size, err := c.ReadInt64()
	if err != nil {
		return nil, err
	}
	rt.Logger.Printf("server sent stats: read=%d, written=%d, size=%d", read, written, size)

	return &rsyncstats.TransferStats{
		Read:    read,
		Written: written,
		Size:    size,
	}, nil
}
