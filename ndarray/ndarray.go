// Package ndarray provides a dense, row-major float64 array with a flat
// binary serialization.
//
// The on-disk layout is
//
//	[ndim uint64][shape uint64 × ndim][values float64 × Π shape]
//
// all little-endian, with no magic number or version header.
package ndarray

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"
)

// Common errors
var (
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrMalformed       = errors.New("malformed array data")
)

const elemSize = int(unsafe.Sizeof(float64(0)))

// Array is a dense n-dimensional float64 array stored in row-major order.
// The shape is fixed at construction.
type Array struct {
	shape   []int
	strides []int // in elements
	data    []float64
}

// New allocates a zero-filled array of the given shape. It panics if any
// axis length is negative.
func New(shape ...int) *Array {
	size := 1
	for i, n := range shape {
		if n < 0 {
			panic(fmt.Sprintf("ndarray: negative length %d on axis %d", n, i))
		}
		size *= n
	}
	return &Array{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    make([]float64, size),
	}
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Shape returns a copy of the axis lengths.
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Ndim returns the number of axes.
func (a *Array) Ndim() int {
	return len(a.shape)
}

// Size returns the number of elements.
func (a *Array) Size() int {
	return len(a.data)
}

// Strides returns the row-major element strides.
func (a *Array) Strides() []int {
	return append([]int(nil), a.strides...)
}

// Data returns the underlying buffer. Mutations are visible to the array.
func (a *Array) Data() []float64 {
	return a.data
}

// Offset converts a multi-index into a flat buffer offset.
func (a *Array) Offset(idx ...int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indices for %d axes", ErrShapeMismatch, len(idx), len(a.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			return 0, fmt.Errorf("%w: index %d on axis %d of length %d", ErrIndexOutOfRange, v, i, a.shape[i])
		}
		off += v * a.strides[i]
	}
	return off, nil
}

// At returns the element at the given multi-index.
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.Offset(idx...)
	if err != nil {
		return 0, err
	}
	return a.data[off], nil
}

// Set stores v at the given multi-index.
func (a *Array) Set(v float64, idx ...int) error {
	off, err := a.Offset(idx...)
	if err != nil {
		return err
	}
	a.data[off] = v
	return nil
}

// AtFlat returns the i-th element in row-major order.
func (a *Array) AtFlat(i int) (float64, error) {
	off, err := a.flat(i)
	if err != nil {
		return 0, err
	}
	return a.data[off], nil
}

// SetFlat stores v as the i-th element in row-major order.
func (a *Array) SetFlat(i int, v float64) error {
	off, err := a.flat(i)
	if err != nil {
		return err
	}
	a.data[off] = v
	return nil
}

// flat decodes a row-major ordinal through the shape and re-encodes it
// through the strides.
func (a *Array) flat(i int) (int, error) {
	if i < 0 || i >= len(a.data) {
		return 0, fmt.Errorf("%w: flat index %d of %d", ErrIndexOutOfRange, i, len(a.data))
	}
	off := 0
	rem := i
	for axis := len(a.shape) - 1; axis >= 0; axis-- {
		n := a.shape[axis]
		off += (rem % n) * a.strides[axis]
		rem /= n
	}
	return off, nil
}

// Unravel converts a flat row-major ordinal into a multi-index.
func (a *Array) Unravel(i int) ([]int, error) {
	if i < 0 || i >= len(a.data) {
		return nil, fmt.Errorf("%w: flat index %d of %d", ErrIndexOutOfRange, i, len(a.data))
	}
	idx := make([]int, len(a.shape))
	for axis := len(a.shape) - 1; axis >= 0; axis-- {
		idx[axis] = i % a.shape[axis]
		i /= a.shape[axis]
	}
	return idx, nil
}

// CountNonZero returns the number of elements different from zero.
func (a *Array) CountNonZero() int {
	n := 0
	for _, v := range a.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// String returns a short description of the array.
func (a *Array) String() string {
	var b strings.Builder
	b.WriteString("Array(shape=[")
	for i, n := range a.shape {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", n)
	}
	fmt.Fprintf(&b, "], nonzero=%d)", a.CountNonZero())
	return b.String()
}
