// Package filter decodes the filter pipeline of chunked datasets.
package filter

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

// decoder undoes one filter stage.
type decoder func(in []byte) ([]byte, error)

var decoders = map[uint16]func(cd []uint32) decoder{
	message.FilterDeflate:    func([]uint32) decoder { return inflate },
	message.FilterShuffle:    unshuffle,
	message.FilterFletcher32: func([]uint32) decoder { return fletcher32 },
}

// Pipeline undoes the filters of a dataset in reverse order.
type Pipeline struct {
	ids   []uint16
	steps []decoder
}

// NewPipeline builds the decoders for a filter pipeline message. Optional
// filters that are not available are left out; any other unknown filter
// is an error.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		mk, ok := decoders[info.ID]
		switch {
		case ok:
			p.ids = append(p.ids, info.ID)
			p.steps = append(p.steps, mk(info.ClientData))
		case !info.IsOptional():
			return nil, fmt.Errorf("filter %d (%s) is not supported", info.ID, info.Name)
		}
	}
	return p, nil
}

// Decode applies the pipeline backwards. Bit i of mask skips filter i.
func (p *Pipeline) Decode(data []byte, mask uint32) ([]byte, error) {
	for i := len(p.steps) - 1; i >= 0; i-- {
		if mask&(1<<i) != 0 {
			continue
		}
		var err error
		if data, err = p.steps[i](data); err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.ids[i], err)
		}
	}
	return data, nil
}

func inflate(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// unshuffle regroups byte planes into elements. Trailing bytes that do
// not fill an element are stored as is.
func unshuffle(cd []uint32) decoder {
	size := 1
	if len(cd) > 0 && cd[0] > 1 {
		size = int(cd[0])
	}
	return func(in []byte) ([]byte, error) {
		n := len(in) / size
		if size == 1 || n == 0 {
			return in, nil
		}
		out := make([]byte, len(in))
		for b := 0; b < size; b++ {
			plane := in[b*n : (b+1)*n]
			for i, v := range plane {
				out[i*size+b] = v
			}
		}
		copy(out[n*size:], in[n*size:])
		return out, nil
	}
}

// fletcher32 checks and strips the trailing checksum.
func fletcher32(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("fletcher32: %d bytes is too short", len(in))
	}
	data := in[:len(in)-4]
	stored := binary.LittleEndian.Uint32(in[len(in)-4:])
	if sum := binpkg.Fletcher32(data); sum != stored {
		return nil, fmt.Errorf("fletcher32: checksum %#08x, stored %#08x", sum, stored)
	}
	return data, nil
}
