// Package signature implements block-signature generation and wire
// transmission for the stale copy a receiver already holds (§4.1, §4.2).
package signature

import (
	"fmt"
	"io"

	"github.com/blocksync/rsync/internal/rsyncchecksum"
	"github.com/blocksync/rsync/internal/rsyncwire"

	rsync "github.com/blocksync/rsync"
)

// Sum is one block's signature (rsync's sum_buf): a weak rolling checksum,
// a strong checksum truncated to the negotiated length, and the block's
// position (derived, not transmitted — see rsync.SumHead.BlockOffset and
// BlockLen).
type Sum struct {
	Weak   uint32
	Strong []byte
}

// Table is one file's signature table (§3, rsync's sum_struct): the
// decomposition parameters plus the per-block signatures.
type Table struct {
	Head rsync.SumHead
	Sums []Sum
}

// BlockOffset and BlockLen derive a block's position deterministically
// from its index, as required by the invariant in §3 ("sums[i].offset =
// i*n for i < count-1").
func (t *Table) BlockOffset(i int32) int64 { return t.Head.BlockOffset(i) }
func (t *Table) BlockLen(i int32) int32    { return t.Head.BlockLen(i) }

// Generate builds the signature table for a stale file of length bytes,
// read through r, at nominal block length blockLen, truncating strong
// checksums to csumLen bytes (§4.1).
//
// A zero-length file yields an empty table (count=0): the legal "send me
// the whole file as literals" signal (§4.1, §8 property 3).
func Generate(r io.ReaderAt, length int64, blockLen int32, csumLen int32, seed int32) (*Table, error) {
	if blockLen <= 0 {
		return nil, fmt.Errorf("signature: block length must be positive, got %d", blockLen)
	}
	if length == 0 {
		return &Table{Head: rsync.SumHead{ChecksumLength: csumLen}}, nil
	}

	count := int32((length + int64(blockLen) - 1) / int64(blockLen))
	remainder := int32(length % int64(blockLen))

	head := rsync.SumHead{
		ChecksumCount:   count,
		BlockLength:     blockLen,
		ChecksumLength:  csumLen,
		RemainderLength: remainder,
	}
	table := &Table{Head: head, Sums: make([]Sum, count)}

	buf := make([]byte, blockLen)
	for i := int32(0); i < count; i++ {
		blen := head.BlockLen(i)
		off := head.BlockOffset(i)
		block := buf[:blen]
		if _, err := r.ReadAt(block, off); err != nil && err != io.EOF {
			return nil, fmt.Errorf("signature: reading block %d at offset %d: %w", i, off, err)
		}
		weak := rsyncchecksum.NewWeak(block, blockLen)
		strong := rsyncchecksum.Strong(seed, block)
		table.Sums[i] = Sum{
			Weak:   weak.Sum1(),
			Strong: append([]byte(nil), rsyncchecksum.Truncate(strong, csumLen)...),
		}
	}
	return table, nil
}

// WriteTo transmits the signature packet (§4.2, §6): the SumHead followed
// by each block's (sum1, truncated sum2).
func (t *Table) WriteTo(c *rsyncwire.Conn) error {
	if err := t.Head.WriteTo(c); err != nil {
		return err
	}
	for _, s := range t.Sums {
		if err := c.WriteInt32(int32(s.Weak)); err != nil {
			return err
		}
		if err := c.WriteBuf(s.Strong); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom receives a signature packet as transmitted by WriteTo. The
// receiver reconstructs each block's offset and length deterministically
// from i, n and remainder (§4.2) rather than transmitting them.
func ReadFrom(c *rsyncwire.Conn) (*Table, error) {
	var head rsync.SumHead
	if err := head.ReadFrom(c); err != nil {
		return nil, err
	}
	if head.ChecksumCount < 0 {
		return nil, fmt.Errorf("signature: negative checksum count %d", head.ChecksumCount)
	}
	sums := make([]Sum, head.ChecksumCount)
	for i := range sums {
		weak, err := c.ReadInt32()
		if err != nil {
			return nil, err
		}
		strong := make([]byte, head.ChecksumLength)
		if err := c.ReadBuf(strong); err != nil {
			return nil, err
		}
		sums[i] = Sum{Weak: uint32(weak), Strong: strong}
	}
	return &Table{Head: head, Sums: sums}, nil
}
