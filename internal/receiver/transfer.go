// Package receiver implements the two components that run together on
// the receiving peer (§4.3, §4.5): the Generator, which walks the local
// (stale) tree and streams signatures out, and the Receiver, which
// consumes the resulting token streams and writes the reconstructed
// files. They share one Transfer because they run concurrently against
// the same connection, coordinated through errgroup (§5).
package receiver

import (
	"os"

	rsync "github.com/blocksync/rsync"
	"github.com/blocksync/rsync/internal/flist"
	"github.com/blocksync/rsync/internal/log"
	"github.com/blocksync/rsync/internal/rsyncos"
	"github.com/blocksync/rsync/internal/rsyncwire"
)

// File is the descriptor type the Generator and Receiver operate on.
type File = flist.File

// TransferOpts mirrors the subset of negotiated options that change how
// the Generator and Receiver behave (§6 "Configuration").
type TransferOpts struct {
	Verbose bool
	DryRun  bool
	Server  bool

	DeleteMode        bool
	PreserveGid       bool
	PreserveUid       bool
	PreserveLinks     bool
	PreservePerms     bool
	PreserveDevices   bool
	PreserveSpecials  bool
	PreserveTimes     bool
	PreserveHardlinks bool

	UpdateOnly     bool
	AlwaysChecksum bool
	IgnoreTimes    bool

	BlockLength int32 // 0 selects the protocol default (rsync.DefaultBlockLength)

	// SuspectFiles, if non-nil, is called by the Generator right after it
	// sends its first-pass -1 terminator (protocol >= rsync.Phase2MinVersion)
	// to select which file indices to re-request at full SUM_LENGTH; it does
	// not wait for the Receiver to finish the first pass. The specification leaves
	// the selection policy undefined (§9b); the default (nil) requests no
	// re-verification.
	SuspectFiles func([]*File) []int32
}

// Transfer holds the state shared by the Generator and Receiver halves of
// one session with a Sender peer.
type Transfer struct {
	Logger log.Logger
	Opts   *TransferOpts

	Dest     string
	DestRoot *os.Root

	Env  rsyncos.Std
	Conn *rsyncwire.Conn
	Seed int32

	// IOErrors counts non-fatal I/O errors encountered while receiving;
	// deleteFiles refuses to run when it is non-zero (§4.6), matching
	// rsync's refusal to delete against a possibly-incomplete local tree.
	IOErrors int

	// pendingHardlinks collects hard-link aliases the Generator discovered
	// (§4.3 step 4); Do applies them once the Receiver has finished
	// writing every primary.
	pendingHardlinks []hardlinkAlias
}

func (rt *Transfer) blockLength() int32 {
	if rt.Opts.BlockLength > 0 {
		return rt.Opts.BlockLength
	}
	return rsync.DefaultBlockLength
}
