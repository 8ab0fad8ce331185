// Package object reads and writes object headers, the message lists
// that describe groups and datasets.
package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

var ErrInvalidHeader = errors.New("invalid object header")

// Header is the decoded message list of one object.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message

	flags uint8 // version 2 header flags
}

// block is a run of messages; version 2 continuation blocks start with
// "OCHK" and end with a checksum.
type block struct {
	start, end int64
	signed     bool
}

// Read decodes the object header at address, following continuation
// messages. Messages that fail to decode are dropped.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	sig, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}

	h := &Header{Address: address}
	var first block
	switch {
	case string(sig) == "OHDR":
		first, err = h.prefixV2(hr)
	case sig[0] == 1:
		first, err = h.prefixV1(hr)
	default:
		return nil, fmt.Errorf("%w at %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}

	queue := []block{first}
	seen := map[int64]bool{}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if seen[b.start] {
			return nil, fmt.Errorf("%w: continuation loop at %d", ErrInvalidHeader, b.start)
		}
		seen[b.start] = true
		more, err := h.readBlock(r, b)
		if err != nil {
			return nil, fmt.Errorf("object header at %d: %w", address, err)
		}
		queue = append(queue, more...)
	}
	return h, nil
}

// prefixV1 reads version, reserved, message count, reference count and
// header size. Messages start at the next multiple of 8.
func (h *Header) prefixV1(r *binary.Reader) (block, error) {
	h.Version, _ = r.ReadUint8()
	r.Skip(7)
	size, err := r.ReadUint32()
	if err != nil {
		return block{}, err
	}
	r.Align(8)
	return block{start: r.Pos(), end: r.Pos() + int64(size)}, nil
}

// prefixV2 reads the signature, version, flags and optional fields up to
// the size of the first chunk.
func (h *Header) prefixV2(r *binary.Reader) (block, error) {
	r.Skip(4)
	h.Version, _ = r.ReadUint8()
	if h.Version != 2 {
		return block{}, fmt.Errorf("%w: version %d", ErrInvalidHeader, h.Version)
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return block{}, err
	}
	if flags&0x20 != 0 {
		r.Skip(16) // access, modification, change and birth times
	}
	if flags&0x10 != 0 {
		r.Skip(4) // attribute phase change
	}
	size, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return block{}, err
	}
	h.flags = flags
	return block{start: r.Pos(), end: r.Pos() + int64(size)}, nil
}

// readBlock decodes the messages of one block and returns the blocks its
// continuation messages point to.
func (h *Header) readBlock(r *binary.Reader, b block) ([]block, error) {
	br := r.At(b.start)
	if b.signed {
		sig, err := br.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		if string(sig) != "OCHK" {
			return nil, fmt.Errorf("%w: continuation signature %q", ErrInvalidHeader, sig)
		}
	}

	v2 := h.Version == 2
	prefix := int64(8)
	if v2 {
		prefix = 4
		if h.flags&0x04 != 0 {
			prefix += 2
		}
	}

	var next []block
	for br.Pos()+prefix <= b.end {
		typ, data, err := h.nextMessage(br)
		if err != nil {
			return nil, err
		}
		switch typ {
		case message.TypeNIL:
		case message.TypeObjectHeaderContinuation:
			cont, err := message.ParseContinuation(data, br)
			if err != nil {
				return nil, err
			}
			end := int64(cont.Offset + cont.Length)
			if v2 {
				end -= 4
			}
			next = append(next, block{start: int64(cont.Offset), end: end, signed: v2})
		default:
			if msg, err := message.Parse(typ, data, br); err == nil {
				h.Messages = append(h.Messages, msg)
			}
		}
	}
	return next, nil
}

// nextMessage reads one message prefix and body.
func (h *Header) nextMessage(r *binary.Reader) (message.Type, []byte, error) {
	var typ, size uint64
	var err error
	if h.Version == 2 {
		// type(1) size(2) flags(1) [creation order(2)]
		typ, _ = r.ReadUintN(1)
		size, err = r.ReadUintN(2)
		r.Skip(1)
		if h.flags&0x04 != 0 {
			r.Skip(2)
		}
	} else {
		// type(2) size(2) flags(1) reserved(3), body padded to 8
		typ, _ = r.ReadUintN(2)
		size, err = r.ReadUintN(2)
		r.Skip(4)
	}
	if err != nil {
		return 0, nil, err
	}
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return 0, nil, err
	}
	if h.Version == 1 {
		r.Align(8)
	}
	return message.Type(typ), data, nil
}

// Message returns the first message of type typ, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// MessagesOf returns every message of type typ.
func (h *Header) MessagesOf(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}
