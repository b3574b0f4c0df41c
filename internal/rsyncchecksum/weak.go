// Package rsyncchecksum implements the two checksums the delta-transfer
// protocol is built on: a 32-bit weak rolling checksum used by the matcher
// to find candidate block boundaries in O(1) per byte, and a strong
// per-block/per-file digest (MD4, seeded per session) used to confirm a
// weak-checksum hit isn't a collision.
//
// The weak checksum's bit layout is wire-visible (§9 of the design notes):
// both peers must compute the identical value for the identical byte
// range, so the polynomial below is fixed, not an implementation detail.
package rsyncchecksum

// modulus is the 16-bit half-checksum modulus used by both components of
// the weak checksum.
const modulus = 1 << 16

// Weak holds the two 16-bit halves of a rolling checksum plus the block
// length it was computed for. The block length is retained (rather than
// re-derived from the window) because rsync always uses the *nominal*
// block length n as the weight in the b component, even for a short final
// block — Signature and the matcher must agree on that or their sum1
// values diverge for the last block.
type Weak struct {
	blockLen uint32
	a, b     uint32
}

// Sum1 returns the combined 32-bit weak checksum (a in the low 16 bits, b
// in the high 16 bits, per rsync's get_checksum1).
func (w Weak) Sum1() uint32 {
	return w.a | (w.b << 16)
}

// NewWeak computes the weak checksum for data from scratch, treating
// blockLen as the nominal block length (data may be shorter, for the final
// block of a file).
func NewWeak(data []byte, blockLen int32) Weak {
	var a, b uint32
	n := uint32(blockLen)
	for i, c := range data {
		a += uint32(c)
		b += (n - uint32(i)) * uint32(c)
	}
	return Weak{
		blockLen: n,
		a:        a % modulus,
		b:        b % modulus,
	}
}

// Roll advances the checksum window by one byte: out leaves the window at
// its start, in enters at its end. This is the O(1) update the matcher's
// scan loop depends on (§4.4.1).
func (w Weak) Roll(out, in byte) Weak {
	a := (w.a - uint32(out) + uint32(in)) % modulus
	b := (w.b - w.blockLen*uint32(out) + a) % modulus
	return Weak{blockLen: w.blockLen, a: a, b: b}
}
