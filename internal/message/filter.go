package message

import (
	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// Filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16 // bit 0 marks the filter optional
	Name       string
	ClientData []uint32
}

func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is a filter pipeline message (type 0x000B).
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte, r *binary.Reader) (*FilterPipeline, error) {
	c := newCursor(data, r)
	m := &FilterPipeline{Version: c.u8()}
	m.Filters = make([]FilterInfo, c.u8())
	if m.Version == 1 {
		c.skip(6)
	}

	for i := range m.Filters {
		f := &m.Filters[i]
		f.ID = uint16(c.num(2))
		// Version 2 drops the name for the predefined filters.
		var nameLen int
		if m.Version == 1 || f.ID >= 256 {
			nameLen = int(c.num(2))
		}
		f.Flags = uint16(c.num(2))
		f.ClientData = make([]uint32, c.num(2))

		if nameLen > 0 {
			name := c.take(nameLen)
			for j, b := range name {
				if b == 0 {
					name = name[:j]
					break
				}
			}
			f.Name = string(name)
			if m.Version == 1 && nameLen%8 != 0 {
				c.skip(8 - nameLen%8)
			}
		}
		for j := range f.ClientData {
			f.ClientData[j] = uint32(c.num(4))
		}
		if m.Version == 1 && len(f.ClientData)%2 != 0 && c.left() >= 4 {
			c.skip(4)
		}
	}
	return m, c.done("filter pipeline")
}
