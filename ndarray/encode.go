package ndarray

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// maxNdim bounds the axis count accepted by Decode.
const maxNdim = 64

// decodeChunk is the number of values Decode reads at a time.
const decodeChunk = 1 << 16

// WriteTo serializes the array to w.
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	buf := make([]byte, 8)

	put := func(u uint64) error {
		binary.LittleEndian.PutUint64(buf, u)
		m, err := bw.Write(buf)
		n += int64(m)
		return err
	}

	if err := put(uint64(len(a.shape))); err != nil {
		return n, err
	}
	for _, s := range a.shape {
		if err := put(uint64(s)); err != nil {
			return n, err
		}
	}
	for _, v := range a.data {
		if err := put(math.Float64bits(v)); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Decode reads an array previously written by WriteTo.
func Decode(r io.Reader) (*Array, error) {
	br := bufio.NewReader(r)
	buf := make([]byte, 8)

	next := func(what string) (uint64, error) {
		if _, err := io.ReadFull(br, buf); err != nil {
			return 0, fmt.Errorf("%w: reading %s: %v", ErrMalformed, what, err)
		}
		return binary.LittleEndian.Uint64(buf), nil
	}

	ndim, err := next("ndim")
	if err != nil {
		return nil, err
	}
	if ndim > maxNdim {
		return nil, fmt.Errorf("%w: %d axes", ErrMalformed, ndim)
	}

	shape := make([]int, ndim)
	size := uint64(1)
	for i := range shape {
		s, err := next("shape")
		if err != nil {
			return nil, err
		}
		if s > math.MaxInt32 || (s != 0 && size > math.MaxInt64/8/s) {
			return nil, fmt.Errorf("%w: axis %d length %d too large", ErrMalformed, i, s)
		}
		shape[i] = int(s)
		size *= s
	}

	// The buffer grows only as values arrive.
	data := make([]float64, 0, min(size, decodeChunk))
	raw := make([]byte, min(size, decodeChunk)*uint64(elemSize))
	for left := size; left > 0; {
		n := min(left, decodeChunk)
		chunk := raw[:n*uint64(elemSize)]
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, fmt.Errorf("%w: reading values: %v", ErrMalformed, err)
		}
		for off := 0; off < len(chunk); off += elemSize {
			data = append(data, math.Float64frombits(binary.LittleEndian.Uint64(chunk[off:])))
		}
		left -= n
	}
	return &Array{shape: shape, strides: rowMajorStrides(shape), data: data}, nil
}

// Save writes the array to the named file, replacing it.
func (a *Array) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := a.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Load reads an array from the named file.
func Load(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return a, nil
}
