package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace is a dataspace message (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when the maximum equals Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements is 1 for a scalar, 0 for a null space and the product of
// the dimensions otherwise.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	c := newCursor(data, r)
	m := &Dataspace{Version: c.u8()}
	rank := int(c.u8())
	flags := c.u8()

	switch m.Version {
	case 1:
		// Version 1 has no type byte; rank 0 is a scalar.
		c.skip(5)
		m.SpaceType = DataspaceSimple
		if rank == 0 {
			m.SpaceType = DataspaceScalar
		}
	case 2:
		m.SpaceType = DataspaceType(c.u8())
	default:
		return nil, fmt.Errorf("unsupported dataspace version %d", m.Version)
	}

	if m.SpaceType == DataspaceSimple {
		m.Dimensions = make([]uint64, rank)
		for i := range m.Dimensions {
			m.Dimensions[i] = c.length()
		}
		if flags&0x01 != 0 {
			m.MaxDims = make([]uint64, rank)
			for i := range m.MaxDims {
				m.MaxDims[i] = c.length()
			}
		}
	}
	return m, c.done("dataspace")
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 0x01
	}
	if err := w.WriteBytes([]byte{2, uint8(len(m.Dimensions)), flags, uint8(m.SpaceType)}); err != nil {
		return err
	}
	for _, dims := range [][]uint64{m.Dimensions, m.MaxDims} {
		for _, d := range dims {
			if err := w.WriteLength(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewDataspace returns a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		SpaceType:  DataspaceSimple,
		Dimensions: dims,
		MaxDims:    maxDims,
	}
}
