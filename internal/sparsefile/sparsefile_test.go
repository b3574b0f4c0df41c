package sparsefile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterRoundTripsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w, err := New(f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := append(append(bytes.Repeat([]byte{0}, 4096), []byte("hello")...), bytes.Repeat([]byte{0}, 4096)...)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(int64(len(data))); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close file: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round-tripped content mismatch: got %d bytes, want %d bytes", len(got), len(data))
	}
}

func TestWriterTrailingZeroRunMaterializesLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w, err := New(f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := append([]byte("abc"), bytes.Repeat([]byte{0}, 1000)...)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(int64(len(data))); err != nil {
		t.Fatalf("Close: %v", err)
	}
	f.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(len(data)) {
		t.Fatalf("file size = %d, want %d", info.Size(), len(data))
	}
}
