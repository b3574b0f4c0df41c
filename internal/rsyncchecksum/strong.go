package rsyncchecksum

import (
	"encoding/binary"

	"github.com/mmcloughlin/md4"
)

// Strong computes the seeded MD4 digest of data: the session checksum
// seed (negotiated once per connection) is hashed first, then data. Both
// per-block signatures (§4.1) and the whole-file integrity trailer (§4.5)
// use this.
func Strong(seed int32, data []byte) [md4.Size]byte {
	h := md4.New()
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], uint32(seed))
	h.Write(seedBuf[:])
	h.Write(data)
	var sum [md4.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Truncate returns the first n bytes of a strong checksum, as transmitted
// on the wire at the negotiated csum_length (§4.1, §4.2).
func Truncate(sum [md4.Size]byte, n int32) []byte {
	if n > md4.Size {
		n = md4.Size
	}
	return sum[:n]
}
