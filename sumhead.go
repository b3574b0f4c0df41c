// Package rsync defines the wire-level types shared by the generator,
// sender and receiver halves of the delta-transfer protocol: the per-file
// signature header (SumHead) and the reconstruction token codec.
package rsync

import "github.com/blocksync/rsync/internal/rsyncwire"

// ProtocolVersion is the wire protocol version this implementation speaks.
// Phase 2 (§4.3, §4.5) runs whenever ProtocolVersion is at least
// Phase2MinVersion, which always holds; the version the remote peer
// announces is not consulted.
const ProtocolVersion = 27

// Phase2MinVersion is the lowest protocol version at which the phase-2
// retry round (§4.3, §4.4, §4.5) runs. It is compared against this
// module's own ProtocolVersion.
const Phase2MinVersion = 13

// SumLength is the width of a full (untruncated) strong checksum in
// bytes — an MD4 digest. Phase 2 always uses this width.
const SumLength = 16

// DefaultBlockLength is used when the caller does not specify a block
// size; the block size is not derived from the file size.
const DefaultBlockLength = 700

// SumHead describes one file's decomposition into blocks (§3, "Signature
// table" / rsync's sum_struct). offset and len for each block are not
// stored here — they're derived deterministically from the block index,
// BlockLength and RemainderLength (§4.2).
type SumHead struct {
	ChecksumCount   int32 // number of blocks; 0 means "send the whole file as literals"
	BlockLength     int32 // nominal block length n
	ChecksumLength  int32 // negotiated strong-checksum length for this phase
	RemainderLength int32 // length of the last block; 0 iff count==0 or an exact multiple of n
}

// FileLength returns the stale-file length this signature describes.
func (s SumHead) FileLength() int64 {
	if s.ChecksumCount == 0 {
		return 0
	}
	if s.RemainderLength != 0 {
		return int64(s.ChecksumCount-1)*int64(s.BlockLength) + int64(s.RemainderLength)
	}
	return int64(s.ChecksumCount) * int64(s.BlockLength)
}

// BlockLen returns the length of block i, honoring a short final block.
func (s SumHead) BlockLen(i int32) int32 {
	if i == s.ChecksumCount-1 && s.RemainderLength != 0 {
		return s.RemainderLength
	}
	return s.BlockLength
}

// BlockOffset returns the byte offset of block i in the stale copy.
func (s SumHead) BlockOffset(i int32) int64 {
	return int64(i) * int64(s.BlockLength)
}

// ReadFrom reads a SumHead per the wire shape in §6: count, n, checksum
// length, remainder.
func (s *SumHead) ReadFrom(c *rsyncwire.Conn) error {
	var err error
	if s.ChecksumCount, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.BlockLength, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.ChecksumLength, err = c.ReadInt32(); err != nil {
		return err
	}
	if s.RemainderLength, err = c.ReadInt32(); err != nil {
		return err
	}
	return nil
}

// WriteTo writes a SumHead in the same order ReadFrom expects it.
func (s SumHead) WriteTo(c *rsyncwire.Conn) error {
	if err := c.WriteInt32(s.ChecksumCount); err != nil {
		return err
	}
	if err := c.WriteInt32(s.BlockLength); err != nil {
		return err
	}
	if err := c.WriteInt32(s.ChecksumLength); err != nil {
		return err
	}
	return c.WriteInt32(s.RemainderLength)
}
