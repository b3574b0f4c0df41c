// Package matcher implements the single-pass rolling-checksum scan that
// decomposes an authoritative file into a stream of LITERAL and BLOCKREF
// tokens against a stale copy's signature table (§4.4.1).
package matcher

import (
	"github.com/blocksync/rsync/internal/rsyncchecksum"
	"github.com/blocksync/rsync/internal/signature"
)

// Sink receives the tokens produced by Match, in order. A Sink
// implementation typically writes them to the wire (rsync.WriteLiteralToken
// / rsync.WriteBlockRefToken) or, in tests, simply records them.
type Sink interface {
	Literal(data []byte) error
	BlockRef(index int32) error
}

// Match scans data left to right against table, feeding the resulting
// token stream to sink. It does not emit the terminator; callers append
// that once the whole file, not just one buffer, is done (matcher has no
// opinion on whether data is the entire file in memory or a single
// chunk — §9 leaves chunking to the caller).
func Match(data []byte, table *signature.Table, seed int32, sink Sink) error {
	n := table.Head.BlockLength
	buckets := buildIndex(table)

	m := int32(len(data))
	if n <= 0 || len(table.Sums) == 0 {
		// No usable blocks in the stale copy: the whole buffer is literal.
		return sink.Literal(data)
	}

	lastMatch := int32(0)
	p := int32(0)
	win := minInt32(n, m-p)
	weak := rsyncchecksum.NewWeak(data[p:p+win], n)

	for p <= m-1 {
		win = minInt32(n, m-p)
		matched := false
		if candidates, ok := buckets[weak.Sum1()]; ok {
			for _, j := range candidates {
				if table.BlockLen(j) != win {
					continue
				}
				window := data[p : p+win]
				strong := rsyncchecksum.Strong(seed, window)
				truncated := rsyncchecksum.Truncate(strong, int32(len(table.Sums[j].Strong)))
				if bytesEqual(truncated, table.Sums[j].Strong) {
					if err := sink.Literal(data[lastMatch:p]); err != nil {
						return err
					}
					if err := sink.BlockRef(j); err != nil {
						return err
					}
					p += win
					lastMatch = p
					matched = true
					if p <= m-1 {
						win = minInt32(n, m-p)
						weak = rsyncchecksum.NewWeak(data[p:p+win], n)
					}
					break
				}
			}
		}
		if matched {
			continue
		}
		// No candidate matched: advance one byte and roll the checksum.
		var in byte
		nextIn := p + n
		if nextIn < m {
			in = data[nextIn]
		}
		weak = weak.Roll(data[p], in)
		p++
	}

	return sink.Literal(data[lastMatch:m])
}

// buildIndex groups block indices by sum1, preserving insertion (i.e.
// block) order within each bucket so that ties resolve to the
// lowest-indexed block, per §4.4.1.
func buildIndex(table *signature.Table) map[uint32][]int32 {
	buckets := make(map[uint32][]int32, len(table.Sums))
	for i, s := range table.Sums {
		buckets[s.Weak] = append(buckets[s.Weak], int32(i))
	}
	return buckets
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
