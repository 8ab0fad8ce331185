// Package heap reads local heaps, which hold the member names of old
// style groups, and global heap collections, which hold variable-length
// data.
package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// Local is the data segment of a local heap.
type Local struct {
	data []byte
}

// ReadLocal reads the local heap at addr.
func ReadLocal(r *binary.Reader, addr uint64) (*Local, error) {
	hr := r.At(int64(addr))
	if err := expect(hr, "HEAP", 0); err != nil {
		return nil, err
	}
	size, _ := hr.ReadLength()
	hr.ReadLength() // free list head
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", addr, err)
	}
	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("local heap data at %d: %w", dataAddr, err)
	}
	return &Local{data: data}, nil
}

// String returns the NUL terminated string at off, or "" past the end.
func (h *Local) String(off uint64) string {
	if off >= uint64(len(h.data)) {
		return ""
	}
	return cstring(h.data[off:])
}

// Global is one global heap collection.
type Global struct {
	objects map[uint16][]byte
}

// ReadGlobal reads the collection at addr.
func ReadGlobal(r *binary.Reader, addr uint64) (*Global, error) {
	hr := r.At(int64(addr))
	if err := expect(hr, "GCOL", 1); err != nil {
		return nil, err
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	end := int64(addr + size)

	// Each object is index(2) refcount(2) reserved(4) size(L) and data
	// padded to 8 bytes. Index 0 is the free space at the end.
	h := &Global{objects: make(map[uint16][]byte)}
	prefix := int64(8 + r.LengthSize())
	for hr.Pos()+prefix <= end {
		index, err := hr.ReadUint16()
		if err != nil || index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("global heap object %d: %w", index, err)
		}
		h.objects[index] = data
		hr.Align(8)
	}
	return h, nil
}

// Object returns the data of object index.
func (h *Global) Object(index uint16) ([]byte, error) {
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("global heap object %d not found", index)
	}
	return data, nil
}

// ID references an object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// ParseID decodes a collection address followed by a 4 byte index.
func ParseID(b []byte, r *binary.Reader) (ID, error) {
	n := r.OffsetSize()
	if len(b) < n+4 {
		return ID{}, fmt.Errorf("global heap id needs %d bytes, have %d", n+4, len(b))
	}
	return ID{
		Collection: binary.Uint(b[:n], r.ByteOrder()),
		Index:      uint32(binary.Uint(b[n:n+4], r.ByteOrder())),
	}, nil
}

// Collections reads and caches the global heap collections of a file.
type Collections struct {
	r     *binary.Reader
	cache map[uint64]*Global
}

func NewCollections(r *binary.Reader) *Collections {
	return &Collections{r: r, cache: make(map[uint64]*Global)}
}

// String returns the object behind id up to its first NUL. A zero
// collection address is the empty string.
func (c *Collections) String(id ID) (string, error) {
	if id.Collection == 0 {
		return "", nil
	}
	g, ok := c.cache[id.Collection]
	if !ok {
		var err error
		if g, err = ReadGlobal(c.r, id.Collection); err != nil {
			return "", err
		}
		c.cache[id.Collection] = g
	}
	data, err := g.Object(uint16(id.Index))
	if err != nil {
		return "", err
	}
	return cstring(data), nil
}

// expect checks a 4 byte signature, a version byte and skips 3 reserved
// bytes.
func expect(r *binary.Reader, sig string, version uint8) error {
	head, err := r.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sig, err)
	}
	if string(head[:4]) != sig {
		return fmt.Errorf("bad signature %q, want %q", head[:4], sig)
	}
	if head[4] != version {
		return fmt.Errorf("%s version %d is not supported", sig, head[4])
	}
	return nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
