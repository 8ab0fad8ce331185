package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// Serialize writes a version 1 datatype message. Only the atomic classes
// the writer creates are supported.
func (m *Datatype) Serialize(w *binary.Writer) error {
	hdr := []byte{
		uint8(m.Class) | 1<<4,
		uint8(m.ClassBits), uint8(m.ClassBits >> 8), uint8(m.ClassBits >> 16),
	}
	if err := w.WriteBytes(hdr); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)
	case ClassFloatPoint:
		if len(m.Properties) != 12 {
			return fmt.Errorf("float datatype of size %d has no IEEE properties", m.Size)
		}
		return w.WriteBytes(m.Properties)
	case ClassString:
		return nil
	default:
		return fmt.Errorf("cannot serialize datatype class %d", m.Class)
	}
}

// NewFixedPointDatatype creates an integer datatype.
func NewFixedPointDatatype(size uint32, signed bool, order ByteOrder) *Datatype {
	bits := uint32(order)
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Class:        ClassFixedPoint,
		ClassBits:    bits,
		Size:         size,
		ByteOrder:    order,
		BitPrecision: uint16(size * 8),
		Signed:       signed,
	}
}

// NewFloatDatatype creates an IEEE 754 single or double precision
// datatype.
func NewFloatDatatype(size uint32, order ByteOrder) *Datatype {
	// Properties: bit offset(2) precision(2) exponent location, exponent
	// size, mantissa location, mantissa size (1 each) and exponent bias(4).
	var props []byte
	var sign uint32
	switch size {
	case 4:
		sign = 31
		props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	case 8:
		sign = 63
		props = []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xff, 0x03, 0, 0}
	}
	// Byte order, implied mantissa MSB and the sign bit position.
	bits := uint32(order) | 1<<5 | sign<<8
	return &Datatype{
		Class:      ClassFloatPoint,
		ClassBits:  bits,
		Size:       size,
		ByteOrder:  order,
		Properties: props,
	}
}

// NewStringDatatype creates a fixed-length string datatype.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Class:         ClassString,
		ClassBits:     uint32(padding) | uint32(charset)<<4,
		Size:          size,
		StringPadding: padding,
		CharSet:       charset,
	}
}
