package object

import (
	"encoding/binary"
	"testing"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

var cfg = binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}

type memFile []byte

func (m memFile) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:]), nil
}

func TestEncodeRead(t *testing.T) {
	w := binpkg.NewWriter(nil, cfg)
	links := []*message.Link{message.NewHardLink("xs", 96), message.NewHardLink("flux", 480)}
	buf, err := Encode(w, GroupMessages(links), MinGroupChunk)
	if err != nil {
		t.Fatal(err)
	}
	// prefix(7) + chunk + checksum(4)
	if len(buf) != 7+MinGroupChunk+4 {
		t.Fatalf("header is %d bytes", len(buf))
	}

	// Place the header at a non-zero address.
	file := append(make(memFile, 48), buf...)
	h, err := Read(binpkg.NewReader(file, cfg), 48)
	if err != nil {
		t.Fatal(err)
	}
	if h.Version != 2 {
		t.Errorf("version = %d", h.Version)
	}
	got := h.MessagesOf(message.TypeLink)
	if len(got) != 2 {
		t.Fatalf("got %d links, want 2", len(got))
	}
	for i, m := range got {
		l := m.(*message.Link)
		if l.Name != links[i].Name || l.ObjectAddress != links[i].ObjectAddress {
			t.Errorf("link %d = %+v", i, l)
		}
	}
	if h.Dataspace() != nil {
		t.Error("group header has a dataspace")
	}
}

func TestEncodeChecksum(t *testing.T) {
	w := binpkg.NewWriter(nil, cfg)
	msgs := DatasetMessages(
		message.NewDataspace([]uint64{3, 4}, nil),
		message.NewFloatDatatype(8, message.OrderLE),
		message.NewContiguousLayout(1024, 96),
	)
	buf, err := Encode(w, msgs, 0)
	if err != nil {
		t.Fatal(err)
	}
	n := len(buf) - 4
	if sum := binary.LittleEndian.Uint32(buf[n:]); sum != binpkg.Lookup3Checksum(buf[:n]) {
		t.Errorf("checksum %#x does not match", sum)
	}

	h, err := Read(binpkg.NewReader(memFile(buf), cfg), 0)
	if err != nil {
		t.Fatal(err)
	}
	if ds := h.Dataspace(); ds == nil || ds.NumElements() != 12 {
		t.Errorf("dataspace = %+v", ds)
	}
	if l := h.DataLayout(); l == nil || l.Address != 1024 || l.Size != 96 {
		t.Errorf("layout = %+v", l)
	}
	if dt := h.Datatype(); dt == nil || dt.Class != message.ClassFloatPoint || dt.Size != 8 {
		t.Errorf("datatype = %+v", dt)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := Read(binpkg.NewReader(memFile{9, 9, 9, 9}, cfg), 0); err == nil {
		t.Error("expected error")
	}
}
