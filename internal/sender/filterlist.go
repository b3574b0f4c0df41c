package sender

import "github.com/blocksync/rsync/internal/rsyncwire"

// FilterList is the named interface standing in for the out-of-scope
// exclude-pattern collaborator: a list of raw filter rule strings, never
// interpreted here.
type FilterList struct {
	Filters []string
}

// RecvFilterList reads the exclusion list the Receiver peer sends ahead
// of the file list: a sequence of length-prefixed rule strings ended by a
// zero-length terminator.
func RecvFilterList(c *rsyncwire.Conn) (*FilterList, error) {
	var fl FilterList
	for {
		n, err := c.ReadInt32()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return &fl, nil
		}
		buf := make([]byte, n)
		if err := c.ReadBuf(buf); err != nil {
			return nil, err
		}
		fl.Filters = append(fl.Filters, string(buf))
	}
}
