package heap

import (
	"encoding/binary"
	"testing"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
)

type memFile []byte

func (m memFile) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:]), nil
}

var cfg = binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}

func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

func TestLocalString(t *testing.T) {
	// Header at 0, data segment at 32.
	var f []byte
	f = append(f, 'H', 'E', 'A', 'P', 0, 0, 0, 0)
	f = append(f, le64(16)...) // data size
	f = append(f, le64(8)...)  // free list
	f = append(f, le64(32)...) // data address
	f = append(f, "\x00\x00\x00\x00\x00\x00\x00\x00zone\x00\x00\x00\x00"...)

	h, err := ReadLocal(binpkg.NewReader(memFile(f), cfg), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.String(8); got != "zone" {
		t.Errorf("String(8) = %q", got)
	}
	if got := h.String(99); got != "" {
		t.Errorf("String past end = %q", got)
	}
}

func TestCollectionsString(t *testing.T) {
	var f []byte
	f = append(f, make([]byte, 8)...) // keep the collection off address 0
	f = append(f, 'G', 'C', 'O', 'L', 1, 0, 0, 0)
	f = append(f, le64(56)...)
	f = append(f, 1, 0, 1, 0, 0, 0, 0, 0)
	f = append(f, le64(5)...)
	f = append(f, "hello\x00\x00\x00"...)
	f = append(f, make([]byte, 16)...) // free space

	r := binpkg.NewReader(memFile(f), cfg)
	ref := append(le64(8), 1, 0, 0, 0)
	id, err := ParseID(ref, r)
	if err != nil {
		t.Fatal(err)
	}
	heaps := NewCollections(r)
	got, err := heaps.String(id)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("got %q", got)
	}
	if _, err := heaps.String(ID{Collection: 8, Index: 2}); err == nil {
		t.Error("expected error for a missing object")
	}
	if s, err := heaps.String(ID{}); s != "" || err != nil {
		t.Errorf("null reference = %q, %v", s, err)
	}
}
