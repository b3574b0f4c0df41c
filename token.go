package rsync

import "github.com/blocksync/rsync/internal/rsyncwire"

// Token wire codec (§6): a header integer t followed, for literal runs, by
// the literal bytes themselves.
//
//	t > 0: a literal run of t bytes follows.
//	t < 0: a block reference to index -(t+1).
//	t == 0: terminator for this file's stream.

// WriteLiteralToken writes a literal-run token. An empty run produces no
// token at all (§4.4.1: "a run may be empty, in which case no token is
// produced").
func WriteLiteralToken(c *rsyncwire.Conn, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := c.WriteInt32(int32(len(data))); err != nil {
		return err
	}
	return c.WriteBuf(data)
}

// WriteBlockRefToken writes a block-reference token for block index.
func WriteBlockRefToken(c *rsyncwire.Conn, index int32) error {
	return c.WriteInt32(-(index + 1))
}

// WriteTerminatorToken writes the per-file terminator.
func WriteTerminatorToken(c *rsyncwire.Conn) error {
	return c.WriteInt32(0)
}

// ReadToken reads one token. term is true for the terminator; otherwise
// exactly one of literal (non-nil) or a valid blockIndex describes the
// token.
func ReadToken(c *rsyncwire.Conn) (literal []byte, blockIndex int32, term bool, err error) {
	t, err := c.ReadInt32()
	if err != nil {
		return nil, 0, false, err
	}
	switch {
	case t == 0:
		return nil, 0, true, nil
	case t > 0:
		buf := make([]byte, t)
		if err := c.ReadBuf(buf); err != nil {
			return nil, 0, false, err
		}
		return buf, 0, false, nil
	default:
		return nil, -(t + 1), false, nil
	}
}
