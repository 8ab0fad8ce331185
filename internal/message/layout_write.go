package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// Serialize writes a version 3 compact or contiguous layout.
func (m *DataLayout) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{3, uint8(m.Class)}); err != nil {
		return err
	}
	switch m.Class {
	case LayoutCompact:
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	default:
		return fmt.Errorf("cannot serialize layout class %d", m.Class)
	}
}

// NewContiguousLayout returns a contiguous layout for size bytes at
// address.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{
		Version: 3,
		Class:   LayoutContiguous,
		Address: address,
		Size:    size,
	}
}
