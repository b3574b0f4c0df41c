package receiver

import rsync "github.com/blocksync/rsync"

// recvToken reads one token off the connection, translated to the
// (token, data) shape receiveData expects: token > 0 with data holding
// that many literal bytes, token < 0 encoding a block reference exactly
// as it appeared on the wire, or 0 for the terminator.
func (rt *Transfer) recvToken() (token int32, data []byte, err error) {
	literal, blockIndex, term, err := rsync.ReadToken(rt.Conn)
	if err != nil {
		return 0, nil, err
	}
	if term {
		return 0, nil, nil
	}
	if literal != nil {
		return int32(len(literal)), literal, nil
	}
	return -(blockIndex + 1), nil, nil
}
