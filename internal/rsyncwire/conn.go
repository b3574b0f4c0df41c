// Package rsyncwire implements the low-level framing the delta-transfer
// protocol is built on: little-endian 32/64-bit integers, raw byte runs,
// byte-counting wrappers (for the end-of-transfer statistics), and the
// out-of-band multiplexing scheme servers use to interleave diagnostic
// messages with protocol data.
package rsyncwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Conn bundles the reader and writer halves of a full-duplex byte channel
// and provides the wire's integer and buffer primitives. The two halves are
// independent: one agent may write to Conn.Writer while another reads from
// Conn.Reader, which is exactly the Generator/Receiver split described in
// §5 of the protocol design.
type Conn struct {
	Reader io.Reader
	Writer io.Writer
}

// ReadInt32 reads a little-endian 32-bit two's-complement integer.
func (c *Conn) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.Reader, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteInt32 writes a little-endian 32-bit two's-complement integer.
func (c *Conn) WriteInt32(v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return c.WriteBuf(buf[:])
}

// ReadInt64 reads a 64-bit integer using rsync's variable-width encoding:
// non-negative values that fit in an int32 are sent as one, everything
// else (negative values included) is preceded by a -1 sentinel and
// followed by the full 8-byte value.
func (c *Conn) ReadInt64() (int64, error) {
	v, err := c.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v != -1 {
		return int64(v), nil
	}
	var buf [8]byte
	if _, err := io.ReadFull(c.Reader, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteInt64 is the inverse of ReadInt64.
func (c *Conn) WriteInt64(v int64) error {
	if v >= 0 && v <= 0x7FFFFFFF {
		return c.WriteInt32(int32(v))
	}
	if err := c.WriteInt32(-1); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return c.WriteBuf(buf[:])
}

// ReadByte reads a single byte off the wire.
func (c *Conn) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(c.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteByte writes a single byte to the wire.
func (c *Conn) WriteByte(b byte) error {
	return c.WriteBuf([]byte{b})
}

// ReadBuf fills buf entirely or returns an error; a short read is always a
// framing violation (§7).
func (c *Conn) ReadBuf(buf []byte) error {
	_, err := io.ReadFull(c.Reader, buf)
	return err
}

// WriteBuf writes buf entirely, retrying on short writes the way
// full_write() in the original C implementation does; io.Writer alone does
// not guarantee this.
func (c *Conn) WriteBuf(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.Writer.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("rsyncwire: short write returned 0 bytes with %d remaining", len(buf))
		}
		buf = buf[n:]
	}
	return nil
}

// CountingReader wraps an io.Reader and tracks the number of bytes read.
type CountingReader struct {
	R       io.Reader
	Counter int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.Counter += int64(n)
	return n, err
}

// CountingWriter wraps an io.Writer and tracks the number of bytes written.
type CountingWriter struct {
	W       io.Writer
	Counter int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.Counter += int64(n)
	return n, err
}

// CounterPair wraps r and w so that the bytes flowing through the
// connection can be reported to the peer as end-of-transfer statistics
// (§4.6, rsyncstats.TransferStats).
func CounterPair(r io.Reader, w io.Writer) (*CountingReader, *CountingWriter) {
	return &CountingReader{R: r}, &CountingWriter{W: w}
}
