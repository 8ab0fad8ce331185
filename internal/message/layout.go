package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType is the chunk index of a version 4 layout. Older layouts
// always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// DataLayout is a data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	// Contiguous storage. Size is zero for version 1 and 2 messages.
	Address uint64
	Size    uint64

	// ChunkDims has one entry per dataset dimension followed by the
	// element size.
	ChunkDims      []uint32
	ChunkIndexAddr uint64
	ChunkIndexType ChunkIndexType

	// A filtered single chunk records its stored size and filter mask.
	FilteredChunkSize uint64
	FilterMask        uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	c := newCursor(data, r)
	m := &DataLayout{Version: c.u8()}

	switch m.Version {
	case 1, 2:
		// version, rank+1, class, 5 reserved bytes
		rank := int(c.u8())
		m.Class = LayoutClass(c.u8())
		c.skip(5)
		if m.Class != LayoutCompact {
			m.Address = c.offset()
		}
		m.ChunkDims = make([]uint32, rank)
		for i := range m.ChunkDims {
			m.ChunkDims[i] = uint32(c.num(4))
		}
		switch m.Class {
		case LayoutChunked:
			m.ChunkIndexAddr, m.Address = m.Address, 0
		case LayoutCompact:
			m.CompactData = c.bytes(int(c.num(4)))
			m.ChunkDims = nil
		default:
			m.ChunkDims = nil
		}
	case 3, 4:
		m.Class = LayoutClass(c.u8())
		switch m.Class {
		case LayoutCompact:
			m.CompactData = c.bytes(int(c.num(2)))
		case LayoutContiguous:
			m.Address = c.offset()
			m.Size = c.length()
		case LayoutChunked:
			if m.Version == 3 {
				m.ChunkDims = make([]uint32, c.u8())
				m.ChunkIndexAddr = c.offset()
				for i := range m.ChunkDims {
					m.ChunkDims[i] = uint32(c.num(4))
				}
			} else {
				parseChunkedV4(c, m)
			}
		case LayoutVirtual:
			return nil, fmt.Errorf("virtual datasets are not supported")
		default:
			return nil, fmt.Errorf("unknown layout class %d", m.Class)
		}
	default:
		return nil, fmt.Errorf("unsupported data layout version %d", m.Version)
	}

	if err := c.done("data layout"); err != nil {
		return nil, err
	}
	return m, nil
}

func parseChunkedV4(c *cursor, m *DataLayout) {
	flags := c.u8()
	m.ChunkDims = make([]uint32, c.u8())
	width := int(c.u8())
	for i := range m.ChunkDims {
		m.ChunkDims[i] = uint32(c.num(width))
	}
	m.ChunkIndexType = ChunkIndexType(c.u8())

	// Index specific fields precede the index address.
	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if flags&0x02 != 0 {
			m.FilteredChunkSize = c.length()
			m.FilterMask = uint32(c.num(4))
		}
	case ChunkIndexFixedArray:
		c.skip(1)
	case ChunkIndexExtensibleArray:
		c.skip(5)
	case ChunkIndexBTreeV2:
		c.skip(6)
	}
	m.ChunkIndexAddr = c.offset()
}
