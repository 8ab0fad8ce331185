// Package dtype converts between raw HDF5 element bytes and Go slices.
//
// Only the classes a cross-section library stores are handled: integers,
// floats, and fixed or variable-length strings.
package dtype

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/heap"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

func byteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func checkSize(dt *message.Datatype, data []byte, n uint64) error {
	if need := n * uint64(dt.Size); uint64(len(data)) < need {
		return fmt.Errorf("have %d bytes for %d elements of size %d", len(data), n, dt.Size)
	}
	return nil
}

// integer decodes one fixed-point element.
func integer(dt *message.Datatype, order binary.ByteOrder, b []byte) (int64, error) {
	switch dt.Size {
	case 1:
		if dt.Signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		if dt.Signed {
			return int64(int16(order.Uint16(b))), nil
		}
		return int64(order.Uint16(b)), nil
	case 4:
		if dt.Signed {
			return int64(int32(order.Uint32(b))), nil
		}
		return int64(order.Uint32(b)), nil
	case 8:
		return int64(order.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("unsupported integer size %d", dt.Size)
	}
}

// Ints decodes n fixed-point elements.
func Ints(dt *message.Datatype, data []byte, n uint64) ([]int64, error) {
	if dt.Class != message.ClassFixedPoint {
		return nil, fmt.Errorf("datatype class %d is not an integer", dt.Class)
	}
	if err := checkSize(dt, data, n); err != nil {
		return nil, err
	}
	order, size := byteOrder(dt), int(dt.Size)
	out := make([]int64, n)
	for i := range out {
		v, err := integer(dt, order, data[i*size:])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Floats decodes n floating-point elements. Integer data is widened.
func Floats(dt *message.Datatype, data []byte, n uint64) ([]float64, error) {
	if dt.Class == message.ClassFixedPoint {
		ints, err := Ints(dt, data, n)
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	if dt.Class != message.ClassFloatPoint {
		return nil, fmt.Errorf("datatype class %d is not numeric", dt.Class)
	}
	if err := checkSize(dt, data, n); err != nil {
		return nil, err
	}

	order, size := byteOrder(dt), int(dt.Size)
	out := make([]float64, n)
	for i := range out {
		b := data[i*size:]
		switch size {
		case 4:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case 8:
			out[i] = math.Float64frombits(order.Uint64(b))
		default:
			return nil, fmt.Errorf("unsupported float size %d", size)
		}
	}
	return out, nil
}

// Strings decodes n fixed-length or variable-length strings. Variable
// length strings live in global heap collections read through r.
func Strings(dt *message.Datatype, data []byte, n uint64, r *binpkg.Reader) ([]string, error) {
	switch {
	case dt.Class == message.ClassString:
		if err := checkSize(dt, data, n); err != nil {
			return nil, err
		}
		size := int(dt.Size)
		out := make([]string, n)
		for i := range out {
			s := data[i*size : (i+1)*size]
			if end := bytes.IndexByte(s, 0); end >= 0 {
				s = s[:end]
			}
			out[i] = string(s)
			if dt.StringPadding == message.PadSpacePad {
				out[i] = strings.TrimRight(out[i], " ")
			}
		}
		return out, nil
	case dt.IsString():
		return varStrings(data, n, r)
	default:
		return nil, fmt.Errorf("datatype class %d is not a string", dt.Class)
	}
}

// varStrings resolves variable-length string references: a 4 byte length,
// then a global heap id.
func varStrings(data []byte, n uint64, r *binpkg.Reader) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("variable-length strings need a file reader")
	}
	ref := 4 + r.OffsetSize() + 4
	if uint64(len(data)) < n*uint64(ref) {
		return nil, fmt.Errorf("have %d bytes for %d string references", len(data), n)
	}

	heaps := heap.NewCollections(r)
	out := make([]string, n)
	for i := range out {
		id, err := heap.ParseID(data[i*ref+4:], r)
		if err != nil {
			return nil, err
		}
		if out[i], err = heaps.String(id); err != nil {
			return nil, fmt.Errorf("string %d: %w", i, err)
		}
	}
	return out, nil
}

// Of returns the little-endian datatype matching the element type of a
// numeric slice.
func Of(data interface{}) (*message.Datatype, int, error) {
	switch v := data.(type) {
	case []int8:
		return message.NewFixedPointDatatype(1, true, message.OrderLE), len(v), nil
	case []uint8:
		return message.NewFixedPointDatatype(1, false, message.OrderLE), len(v), nil
	case []int16:
		return message.NewFixedPointDatatype(2, true, message.OrderLE), len(v), nil
	case []int32:
		return message.NewFixedPointDatatype(4, true, message.OrderLE), len(v), nil
	case []uint32:
		return message.NewFixedPointDatatype(4, false, message.OrderLE), len(v), nil
	case []int64:
		return message.NewFixedPointDatatype(8, true, message.OrderLE), len(v), nil
	case []int:
		return message.NewFixedPointDatatype(8, true, message.OrderLE), len(v), nil
	case []float32:
		return message.NewFloatDatatype(4, message.OrderLE), len(v), nil
	case []float64:
		return message.NewFloatDatatype(8, message.OrderLE), len(v), nil
	default:
		return nil, 0, fmt.Errorf("unsupported data type %T", data)
	}
}

// Encode converts a slice to raw bytes of datatype dt. Numeric slices are
// stored at dt's size; strings are padded per dt.
func Encode(dt *message.Datatype, data interface{}) ([]byte, error) {
	if strs, ok := data.([]string); ok {
		return encodeStrings(dt, strs)
	}

	var vals []float64
	var ints []int64
	switch v := data.(type) {
	case []int8:
		ints = widen(v)
	case []uint8:
		ints = widen(v)
	case []int16:
		ints = widen(v)
	case []int32:
		ints = widen(v)
	case []uint32:
		ints = widen(v)
	case []int64:
		ints = v
	case []int:
		ints = widen(v)
	case []float32:
		vals = make([]float64, len(v))
		for i, x := range v {
			vals[i] = float64(x)
		}
	case []float64:
		vals = v
	default:
		return nil, fmt.Errorf("unsupported data type %T", data)
	}

	order, size := byteOrder(dt), int(dt.Size)
	switch dt.Class {
	case message.ClassFixedPoint:
		if ints == nil && vals != nil {
			return nil, fmt.Errorf("cannot store %T as integers", data)
		}
		out := make([]byte, len(ints)*size)
		for i, x := range ints {
			b := out[i*size:]
			switch size {
			case 1:
				b[0] = byte(x)
			case 2:
				order.PutUint16(b, uint16(x))
			case 4:
				order.PutUint32(b, uint32(x))
			case 8:
				order.PutUint64(b, uint64(x))
			default:
				return nil, fmt.Errorf("unsupported integer size %d", size)
			}
		}
		return out, nil
	case message.ClassFloatPoint:
		if vals == nil {
			vals = make([]float64, len(ints))
			for i, x := range ints {
				vals[i] = float64(x)
			}
		}
		out := make([]byte, len(vals)*size)
		for i, x := range vals {
			switch size {
			case 4:
				order.PutUint32(out[i*size:], math.Float32bits(float32(x)))
			case 8:
				order.PutUint64(out[i*size:], math.Float64bits(x))
			default:
				return nil, fmt.Errorf("unsupported float size %d", size)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot encode datatype class %d", dt.Class)
	}
}

func widen[T int8 | uint8 | int16 | int32 | uint32 | int](v []T) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

func encodeStrings(dt *message.Datatype, strs []string) ([]byte, error) {
	if dt.Class != message.ClassString {
		return nil, fmt.Errorf("cannot store strings as datatype class %d", dt.Class)
	}
	size := int(dt.Size)
	out := make([]byte, len(strs)*size)
	for i, s := range strs {
		b := out[i*size : (i+1)*size]
		n := copy(b, s)
		if dt.StringPadding == message.PadSpacePad {
			for j := n; j < size; j++ {
				b[j] = ' '
			}
		}
	}
	return out, nil
}
