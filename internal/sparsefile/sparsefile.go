// Package sparsefile implements the sparse-file write discipline used by
// the receiver (§4.5, §8 property 4): runs of zero bytes are translated
// into seeks rather than physical writes, and a final step materializes
// the correct file length even when the file ends on a zero run.
package sparsefile

import (
	"io"
	"os"
)

// Writer wraps an *os.File, deferring writes of all-zero spans into a
// seek so the underlying filesystem can allocate a hole instead of
// physical blocks.
type Writer struct {
	f          *os.File
	offset     int64 // logical offset of the next byte to be written
	pendingEnd int64 // logical offset up to which we've only seeked, not written
}

// New wraps f for sparse writing. f's current offset is taken as the
// starting logical offset.
func New(f *os.File) (*Writer, error) {
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, offset: off, pendingEnd: off}, nil
}

// Write writes p at the writer's current logical position, splitting it
// into alternating zero and non-zero spans. Zero spans advance the
// logical position via Seek without touching disk; non-zero spans flush
// any pending hole first, then write physically.
func (w *Writer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if isZero(p[0]) {
			run := zeroRunLen(p)
			w.offset += int64(run)
			p = p[run:]
			continue
		}
		run := nonZeroRunLen(p)
		if err := w.materialize(); err != nil {
			return 0, err
		}
		if _, err := w.f.Write(p[:run]); err != nil {
			return 0, err
		}
		w.offset += int64(run)
		w.pendingEnd = w.offset
		p = p[run:]
	}
	if w.offset > w.pendingEnd {
		if _, err := w.f.Seek(w.offset, io.SeekStart); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// materialize seeks the underlying file to the writer's logical offset
// before a physical write, so any preceding zero run becomes a hole
// (or, on filesystems without hole support, is implicitly zero-filled by
// the OS when the file is later extended past it).
func (w *Writer) materialize() error {
	if w.offset == w.pendingEnd {
		return nil
	}
	_, err := w.f.Seek(w.offset, io.SeekStart)
	return err
}

// Close finalizes the file length: if the file ends on a zero run (the
// final bytes written were all seeks, never a physical write), truncate
// extends the file to the writer's logical offset so the trailing hole is
// accounted for. length is not used: the final length is always taken
// from that offset.
func (w *Writer) Close(length int64) error {
	if w.offset > w.pendingEnd {
		if err := w.f.Truncate(w.offset); err != nil {
			return err
		}
	}
	_ = length
	return nil
}

func isZero(b byte) bool { return b == 0 }

func zeroRunLen(p []byte) int {
	for i, b := range p {
		if b != 0 {
			return i
		}
	}
	return len(p)
}

func nonZeroRunLen(p []byte) int {
	for i, b := range p {
		if b == 0 {
			return i
		}
	}
	return len(p)
}
