package receiver

import "github.com/blocksync/rsync/internal/flist"

// ReceiveFileList reads the agreed-upon file list off the connection
// (§4.3: both peers must already share this list before signatures and
// tokens start flowing; its enumeration and wire compression are the
// out-of-scope flist collaborator, here just flist.ReadFrom/WriteTo).
func (rt *Transfer) ReceiveFileList() ([]*File, error) {
	list, err := flist.ReadFrom(rt.Conn)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// SendFileList transmits list, for the (local-server or module-listing)
// path where the Receiver peer is also the one that enumerated the tree.
func (rt *Transfer) SendFileList(list []*File) error {
	return flist.WriteTo(rt.Conn, list)
}
