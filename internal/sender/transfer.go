// Package sender implements the Sender component (§4.4): for each index
// the Generator announces, it reads the incoming signature table, opens
// the authoritative local copy, and runs the matcher to produce that
// file's token stream.
package sender

import (
	"os"
	"path/filepath"

	rsync "github.com/blocksync/rsync"
	"github.com/blocksync/rsync/internal/flist"
	"github.com/blocksync/rsync/internal/log"
	"github.com/blocksync/rsync/internal/matcher"
	"github.com/blocksync/rsync/internal/rsyncchecksum"
	"github.com/blocksync/rsync/internal/rsyncstats"
	"github.com/blocksync/rsync/internal/rsyncwire"
	"github.com/blocksync/rsync/internal/signature"
)

// Opts is the subset of negotiated options that change Sender behavior.
type Opts interface {
	Verbose() bool
	DryRun() bool
	Server() bool
}

// Transfer holds the state for one session acting as the Sender peer.
type Transfer struct {
	Logger log.Logger
	Opts   Opts
	Conn   *rsyncwire.Conn
	Seed   int32

	// Root is the local directory names in the file list are relative to.
	Root string
}

// Do builds the file list from root (the sender side owns enumeration,
// per real rsync), transmits it to the Receiver peer, then services
// index/signature requests against it until both phases are done.
// filters is not applied (nor logged here): exclude-pattern matching is
// the out-of-scope named collaborator (§1).
func (st *Transfer) Do(crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, root string, paths []string, filters *FilterList) (*rsyncstats.TransferStats, error) {
	st.Root = root
	_ = paths // multi-source-argument enumeration is the out-of-scope flist collaborator's job

	fileList, err := flist.Walk(root)
	if err != nil {
		return nil, err
	}
	if err := flist.WriteTo(st.Conn, fileList); err != nil {
		return nil, err
	}

	if err := st.transferLoop(fileList, rsyncchecksumLenPhase1); err != nil {
		return nil, err
	}

	if rsync.ProtocolVersion >= rsync.Phase2MinVersion {
		if err := st.transferLoop(fileList, rsync.SumLength); err != nil {
			return nil, err
		}
	}

	stats := &rsyncstats.TransferStats{
		Read:    crd.Counter,
		Written: cwr.Counter,
		Size:    totalSize(fileList),
	}
	if st.Opts != nil && !st.Opts.Server() {
		// A client-side Sender talks to a server-side Receiver, which does
		// not read stats (receiver.Transfer.Do's noReport): only its
		// goodbye follows.
		if _, err := st.Conn.ReadInt32(); err != nil {
			return nil, err
		}
		return stats, nil
	}
	if err := st.Conn.WriteInt64(stats.Read); err != nil {
		return nil, err
	}
	if err := st.Conn.WriteInt64(stats.Written); err != nil {
		return nil, err
	}
	if err := st.Conn.WriteInt64(stats.Size); err != nil {
		return nil, err
	}

	// consume the Receiver's final goodbye (§4.3/§4.4: mirror of the -1
	// terminator exchange).
	if _, err := st.Conn.ReadInt32(); err != nil {
		return nil, err
	}

	return stats, nil
}

const rsyncchecksumLenPhase1 = 2

// transferLoop reads indices until -1, servicing each with its token
// stream. csumLen is not used for truncation: the matcher compares strong
// checksums at the length each received signature table carries.
func (st *Transfer) transferLoop(fileList []*File, csumLen int32) error {
	for {
		idx, err := st.Conn.ReadInt32()
		if err != nil {
			return err
		}
		if idx == -1 {
			// Forward the Generator's round terminator to the Receiver: the
			// Receiver reads its indices off this same connection, and has no
			// other way to learn that this phase's token streams are done.
			return st.Conn.WriteInt32(-1)
		}
		if idx < 0 || int(idx) >= len(fileList) {
			continue
		}
		if err := st.sendFile(idx, fileList[idx], csumLen); err != nil {
			return err
		}
	}
}

func (st *Transfer) sendFile(idx int32, f *File, csumLen int32) error {
	if st.Opts != nil && st.Opts.Verbose() {
		st.Logger.Printf("sending file idx=%d: %s", idx, f.Name)
	}

	table, err := signature.ReadFrom(st.Conn)
	if err != nil {
		return err
	}
	if st.Opts != nil && st.Opts.DryRun() {
		// A dry-run Receiver only reports the name: send the index alone.
		return st.Conn.WriteInt32(idx)
	}

	local := filepath.Join(st.Root, f.Name)
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}

	if err := st.Conn.WriteInt32(idx); err != nil {
		return err
	}
	if err := table.Head.WriteTo(st.Conn); err != nil {
		return err
	}

	sink := &wireSink{conn: st.Conn}
	if err := matcher.Match(data, table, st.Seed, sink); err != nil {
		return err
	}
	if err := rsync.WriteTerminatorToken(st.Conn); err != nil {
		return err
	}

	sum := rsyncchecksum.Strong(st.Seed, data)
	return st.Conn.WriteBuf(sum[:])
}

func totalSize(fileList []*File) int64 {
	var total int64
	for _, f := range fileList {
		if f.IsRegular() {
			total += f.Size
		}
	}
	return total
}

// wireSink implements matcher.Sink by writing each token to the
// connection (§6 token codec).
type wireSink struct {
	conn *rsyncwire.Conn
}

func (s *wireSink) Literal(data []byte) error {
	return rsync.WriteLiteralToken(s.conn, data)
}

func (s *wireSink) BlockRef(index int32) error {
	return rsync.WriteBlockRefToken(s.conn, index)
}

// File is the descriptor type the Sender operates on.
type File = flist.File
