package rsyncchecksum

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/mmcloughlin/md4"
)

// WholeFile computes the seeded strong checksum of an entire file, used
// by the always_checksum skip-unchanged test (§4.3). The receiver's
// per-file integrity check (§4.5) computes its digest while writing and
// does not call it.
func WholeFile(path string, seed int32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md4.New()
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], uint32(seed))
	if _, err := h.Write(seedBuf[:]); err != nil {
		return nil, err
	}
	buf := make([]byte, 256*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	return h.Sum(nil), nil
}
