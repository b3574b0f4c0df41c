package matcher

import (
	"bytes"
	"testing"

	"github.com/blocksync/rsync/internal/signature"
)

type recordingSink struct {
	literals [][]byte
	refs     []int32
	order    []string
}

func (r *recordingSink) Literal(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	cp := append([]byte(nil), data...)
	r.literals = append(r.literals, cp)
	r.order = append(r.order, "literal")
	return nil
}

func (r *recordingSink) BlockRef(index int32) error {
	r.refs = append(r.refs, index)
	r.order = append(r.order, "blockref")
	return nil
}

func sigFor(t *testing.T, data []byte, blockLen int32) *signature.Table {
	t.Helper()
	table, err := signature.Generate(bytes.NewReader(data), int64(len(data)), blockLen, 8, 0)
	if err != nil {
		t.Fatalf("signature.Generate: %v", err)
	}
	return table
}

func TestMatchIdenticalFileIsAllBlockRefs(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10)
	table := sigFor(t, data, 10)

	var sink recordingSink
	if err := Match(data, table, 0, &sink); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(sink.literals) != 0 {
		t.Fatalf("expected no literal runs for an identical file, got %v", sink.literals)
	}
	if len(sink.refs) != 10 {
		t.Fatalf("expected 10 block refs, got %d: %v", len(sink.refs), sink.refs)
	}
	// Every block of data is identical, so each window's candidates are all
	// ten blocks and the first one, block 0, wins every time.
	for i, ref := range sink.refs {
		if ref != 0 {
			t.Errorf("ref[%d] = %d, want 0", i, ref)
		}
	}
}

func TestMatchInsertedBytesProduceLiteralRun(t *testing.T) {
	stale := bytes.Repeat([]byte("ABCDEFGHIJ"), 4)
	table := sigFor(t, stale, 10)

	authoritative := append(append([]byte{}, stale[:10]...), append([]byte("XXXXX"), stale[10:]...)...)

	var sink recordingSink
	if err := Match(authoritative, table, 0, &sink); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(sink.literals) != 1 || string(sink.literals[0]) != "XXXXX" {
		t.Fatalf("expected a single literal run \"XXXXX\", got %v", sink.literals)
	}
	if len(sink.refs) != 4 {
		t.Fatalf("expected 4 block refs, got %d", len(sink.refs))
	}
}

func TestMatchEmptySignatureIsAllLiteral(t *testing.T) {
	table := sigFor(t, nil, 700)
	var sink recordingSink
	data := []byte("everything is new")
	if err := Match(data, table, 0, &sink); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(sink.refs) != 0 {
		t.Fatalf("expected no block refs against an empty signature, got %v", sink.refs)
	}
	if len(sink.literals) != 1 || string(sink.literals[0]) != string(data) {
		t.Fatalf("expected the whole buffer as one literal run, got %v", sink.literals)
	}
}

func TestMatchShortFinalBlock(t *testing.T) {
	stale := []byte("0123456789ABCDE") // 15 bytes, block length 10 -> blocks of 10 and 5
	table := sigFor(t, stale, 10)

	var sink recordingSink
	if err := Match(stale, table, 0, &sink); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(sink.refs) != 2 || sink.refs[0] != 0 || sink.refs[1] != 1 {
		t.Fatalf("expected block refs [0 1], got %v", sink.refs)
	}
	if len(sink.literals) != 0 {
		t.Fatalf("expected no literal runs, got %v", sink.literals)
	}
}
