// Package layout reads the raw bytes of a dataset from its storage.
package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/btree"
	"github.com/robert-malhotra/go-mpo/internal/filter"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

// ErrUnsupportedIndex is returned for chunk indexes other than a version
// 1 B-tree or a single chunk.
var ErrUnsupportedIndex = errors.New("unsupported chunk index")

// Layout reads a whole dataset in row-major order.
type Layout interface {
	Read() ([]byte, error)
}

// New returns the reader for a data layout message.
func New(
	msg *message.DataLayout,
	space *message.Dataspace,
	dt *message.Datatype,
	pipeline *message.FilterPipeline,
	r *binary.Reader,
) (Layout, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil layout message")
	}
	size := space.NumElements() * uint64(dt.Size)

	switch msg.Class {
	case message.LayoutCompact:
		return compact(msg.CompactData), nil
	case message.LayoutContiguous:
		if msg.Size != 0 {
			size = msg.Size
		}
		return &contiguous{addr: msg.Address, size: size, r: r}, nil
	case message.LayoutChunked:
		p, err := filter.NewPipeline(pipeline)
		if err != nil {
			return nil, err
		}
		return &chunked{
			msg:      msg,
			dims:     space.Dimensions,
			elemSize: uint64(dt.Size),
			size:     size,
			pipeline: p,
			r:        r,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported layout class %d", msg.Class)
	}
}

// compact data lives in the object header.
type compact []byte

func (c compact) Read() ([]byte, error) {
	return append([]byte(nil), c...), nil
}

type contiguous struct {
	addr uint64
	size uint64
	r    *binary.Reader
}

func (c *contiguous) Read() ([]byte, error) {
	if c.size == 0 {
		return []byte{}, nil
	}
	// Storage is allocated lazily; unwritten data reads as zeros.
	if c.r.IsUndefinedOffset(c.addr) {
		return make([]byte, c.size), nil
	}
	data, err := c.r.At(int64(c.addr)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}

type chunked struct {
	msg      *message.DataLayout
	dims     []uint64
	elemSize uint64
	size     uint64
	pipeline *filter.Pipeline
	r        *binary.Reader
}

func (c *chunked) Read() ([]byte, error) {
	if c.size == 0 {
		return []byte{}, nil
	}
	dims := c.dims
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	if len(c.msg.ChunkDims) < len(dims) {
		return nil, fmt.Errorf("chunked layout has %d chunk dimensions for rank %d", len(c.msg.ChunkDims), len(dims))
	}
	// The chunk dimensions may carry the element size as an extra entry.
	chunkDims := make([]uint64, len(dims))
	for i := range chunkDims {
		chunkDims[i] = uint64(c.msg.ChunkDims[i])
	}

	addr := c.msg.ChunkIndexAddr
	if addr == 0 || c.r.IsUndefinedOffset(addr) {
		return make([]byte, c.size), nil
	}
	if c.msg.Version >= 4 {
		switch c.msg.ChunkIndexType {
		case message.ChunkIndexBTreeV1:
		case message.ChunkIndexSingleChunk:
			return c.single(addr)
		default:
			return nil, fmt.Errorf("%w: type %d", ErrUnsupportedIndex, c.msg.ChunkIndexType)
		}
	}

	chunks, err := btree.ReadChunks(c.r, addr, len(dims))
	if err != nil {
		return nil, fmt.Errorf("reading chunk index: %w", err)
	}
	out := make([]byte, c.size)
	for _, ch := range chunks {
		raw, err := c.r.At(int64(ch.Address)).ReadBytes(int(ch.Size))
		if err != nil {
			return nil, fmt.Errorf("chunk %v: %w", ch.Offset, err)
		}
		data, err := c.pipeline.Decode(raw, ch.FilterMask)
		if err != nil {
			return nil, fmt.Errorf("chunk %v: %w", ch.Offset, err)
		}
		place(out, data, ch.Offset, dims, chunkDims, c.elemSize)
	}
	return out, nil
}

// single reads a dataset stored as one chunk with no index.
func (c *chunked) single(addr uint64) ([]byte, error) {
	size := c.size
	if c.msg.FilteredChunkSize > 0 {
		size = c.msg.FilteredChunkSize
	}
	raw, err := c.r.At(int64(addr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading single chunk: %w", err)
	}
	return c.pipeline.Decode(raw, c.msg.FilterMask)
}

// place copies one decoded chunk into the row-major output. Edge chunks
// are clipped to the dataset bounds.
func place(out, chunk []byte, origin, dims, chunkDims []uint64, elemSize uint64) {
	rank := len(dims)
	extent := make([]uint64, rank)
	for d := range dims {
		if origin[d] >= dims[d] {
			return
		}
		extent[d] = min(chunkDims[d], dims[d]-origin[d])
	}

	// Byte strides of the output and of the chunk.
	outStride := make([]uint64, rank)
	chunkStride := make([]uint64, rank)
	outStride[rank-1], chunkStride[rank-1] = elemSize, elemSize
	for d := rank - 2; d >= 0; d-- {
		outStride[d] = outStride[d+1] * dims[d+1]
		chunkStride[d] = chunkStride[d+1] * chunkDims[d+1]
	}

	// Walk every row of the chunk with an odometer over the outer
	// dimensions and copy the innermost run in one go.
	row := extent[rank-1] * elemSize
	idx := make([]uint64, rank)
	for {
		var o, s uint64
		for d := range idx {
			o += (origin[d] + idx[d]) * outStride[d]
			s += idx[d] * chunkStride[d]
		}
		if o+row <= uint64(len(out)) && s+row <= uint64(len(chunk)) {
			copy(out[o:o+row], chunk[s:s+row])
		}

		d := rank - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < extent[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
