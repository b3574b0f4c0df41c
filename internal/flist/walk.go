package flist

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Walk enumerates root as a List, relative to root itself (root's own
// entry is named "."). This is the local stand-in for the real flist
// collaborator's tree-walk: the Sender uses it to describe the
// authoritative tree. Deletion reconciliation on the receiver side (§4.6)
// walks the destination itself and does not call Walk.
func Walk(root string) (List, error) {
	var list List
	root = filepath.Clean(root)
	err := filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, root)
		name = strings.TrimPrefix(name, string(filepath.Separator))
		if name == "" {
			name = "."
		}
		f := &File{
			Name:    name,
			Mode:    info.Mode(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if info.Mode().IsRegular() {
			if dev, ino, ok := hardlinkID(info); ok {
				f.Dev, f.Ino = dev, ino
			}
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			f.LinkTarget = target
		}
		list = append(list, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, f := range list {
		f.Index = int32(i)
	}
	return list, nil
}
