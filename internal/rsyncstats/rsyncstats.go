// Package rsyncstats defines the summary counters exchanged at the end of
// a transfer (§4.6 "report").
package rsyncstats

// TransferStats mirrors the three totals the sending side reports once a
// transfer completes: bytes read from and written to the connection, and
// the cumulative size of the files transferred.
type TransferStats struct {
	Read    int64
	Written int64
	Size    int64
}
