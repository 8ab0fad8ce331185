package filter

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

func shuffle(in []byte, size int) []byte {
	n := len(in) / size
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for b := 0; b < size; b++ {
			out[b*n+i] = in[i*size+b]
		}
	}
	copy(out[n*size:], in[n*size:])
	return out
}

func TestPipelineDecode(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

	// Writers apply shuffle, then deflate, then the checksum.
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(shuffle(raw, 4))
	zw.Close()
	stored := z.Bytes()
	stored = binary.LittleEndian.AppendUint32(stored, binpkg.Fletcher32(stored))

	p, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{4}},
		{ID: message.FilterDeflate, ClientData: []uint32{6}},
		{ID: message.FilterFletcher32},
	}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Decode(stored, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("got %v, want %v", got, raw)
	}
}

func TestPipelineMaskSkipsFilter(t *testing.T) {
	p, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{2}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	in := []byte{1, 3, 2, 4}
	got, _ := p.Decode(in, 1)
	if !bytes.Equal(got, in) {
		t.Errorf("masked filter ran: %v", got)
	}
}

func TestFletcher32Mismatch(t *testing.T) {
	if _, err := fletcher32([]byte{1, 2, 3, 4, 0, 0, 0, 0}); err == nil {
		t.Error("expected checksum error")
	}
}

func TestUnknownFilter(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{{ID: 32001}}}
	if _, err := NewPipeline(fp); err == nil {
		t.Error("expected error for a required unknown filter")
	}
	fp.Filters[0].Flags = 1
	if _, err := NewPipeline(fp); err != nil {
		t.Errorf("optional filter: %v", err)
	}
}
