// Package btree walks version 1 B-trees, the index HDF5 uses for old-style
// groups and for dataset chunks.
package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/heap"
)

const (
	kindGroup = 0
	kindChunk = 1
)

// node is the fixed part of a B-tree node. The reader is left on the
// first key.
type node struct {
	level uint8
	used  int
	r     *binary.Reader
}

func readNode(r *binary.Reader, addr uint64, kind uint8) (*node, error) {
	nr := r.At(int64(addr))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("btree at %#x: %w", addr, err)
	}
	if string(sig) != "TREE" {
		return nil, fmt.Errorf("btree at %#x: bad signature %q", addr, sig)
	}
	hdr, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("btree at %#x: %w", addr, err)
	}
	if hdr[0] != kind {
		return nil, fmt.Errorf("btree at %#x: node type %d, want %d", addr, hdr[0], kind)
	}
	// Sibling pointers are not needed for a full traversal.
	nr.Skip(int64(2 * nr.OffsetSize()))
	return &node{
		level: hdr[1],
		used:  int(nr.ByteOrder().Uint16(hdr[2:4])),
		r:     nr,
	}, nil
}

// GroupEntry is one link found in a symbol table node.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	// SoftLinkValue is the target path of a soft link and empty for hard
	// links.
	SoftLinkValue string
}

// ReadGroupEntries returns every entry reachable from the group B-tree at
// addr. Names are resolved through the group's local heap.
func ReadGroupEntries(r *binary.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	n, err := readNode(r, addr, kindGroup)
	if err != nil {
		return nil, err
	}

	var entries []GroupEntry
	for i := 0; i < n.used; i++ {
		// Group keys are heap offsets of the largest name below them.
		if _, err := n.r.ReadLength(); err != nil {
			return nil, err
		}
		child, err := n.r.ReadOffset()
		if err != nil {
			return nil, err
		}

		var sub []GroupEntry
		if n.level == 0 {
			sub, err = readSymbolNode(r, child, names)
		} else {
			sub, err = ReadGroupEntries(r, child, names)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

// Symbol table entry cache types.
const (
	cacheNone = 0
	cacheSoft = 2
)

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	nr := r.At(int64(addr))
	hdr, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("symbol node at %#x: %w", addr, err)
	}
	if string(hdr[:4]) != "SNOD" {
		return nil, fmt.Errorf("symbol node at %#x: bad signature %q", addr, hdr[:4])
	}
	if hdr[4] != 1 {
		return nil, fmt.Errorf("symbol node at %#x: unsupported version %d", addr, hdr[4])
	}
	count := int(nr.ByteOrder().Uint16(hdr[6:8]))

	entries := make([]GroupEntry, 0, count)
	for i := 0; i < count; i++ {
		nameOff, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		objAddr, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		cache, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		nr.Skip(4)
		scratch, err := nr.ReadBytes(16)
		if err != nil {
			return nil, err
		}

		e := GroupEntry{Name: names.String(nameOff), ObjectAddress: objAddr}
		if e.Name == "" {
			continue
		}
		if cache == cacheSoft {
			e.SoftLinkValue = names.String(uint64(nr.ByteOrder().Uint32(scratch[:4])))
			e.ObjectAddress = 0
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Chunk is one stored chunk of a dataset.
type Chunk struct {
	// Offset is the element coordinate of the chunk's first element.
	Offset []uint64
	// FilterMask has bit i set when filter i was skipped for this chunk.
	FilterMask uint32
	// Size is the stored, possibly filtered, size in bytes.
	Size    uint32
	Address uint64
}

// ReadChunks returns the allocated chunks indexed by the chunk B-tree at
// addr for a dataset of the given rank.
func ReadChunks(r *binary.Reader, addr uint64, rank int) ([]Chunk, error) {
	n, err := readNode(r, addr, kindChunk)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	// There is one more key than children; the last one only bounds the
	// final child.
	for i := 0; i <= n.used; i++ {
		key, err := readChunkKey(n.r, rank)
		if err != nil {
			return nil, err
		}
		if i == n.used {
			break
		}
		child, err := n.r.ReadOffset()
		if err != nil {
			return nil, err
		}

		if n.level > 0 {
			sub, err := ReadChunks(r, child, rank)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, sub...)
			continue
		}
		if r.IsUndefinedOffset(child) || key.Size == 0 {
			continue
		}
		key.Address = child
		chunks = append(chunks, key)
	}
	return chunks, nil
}

// readChunkKey reads a chunk key. Keys carry rank+1 offsets; the last one
// is the element byte offset and always zero.
func readChunkKey(r *binary.Reader, rank int) (Chunk, error) {
	var c Chunk
	var err error
	if c.Size, err = r.ReadUint32(); err != nil {
		return c, err
	}
	if c.FilterMask, err = r.ReadUint32(); err != nil {
		return c, err
	}
	c.Offset = make([]uint64, rank+1)
	for j := range c.Offset {
		if c.Offset[j], err = r.ReadUint64(); err != nil {
			return c, fmt.Errorf("chunk offset %d: %w", j, err)
		}
	}
	c.Offset = c.Offset[:rank]
	return c, nil
}
