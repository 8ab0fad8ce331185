package object

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
)

// MinGroupChunk is the smallest first chunk given to group headers, so
// that a few links can be added in place. h5py uses the same value.
const MinGroupChunk = 120

// Encode builds a version 2 object header holding msgs. The first chunk
// is padded with a NIL message up to minChunk bytes, and the header ends
// with its checksum.
func Encode(w *binary.Writer, msgs []message.Message, minChunk int) ([]byte, error) {
	body := w.Buffer()
	for _, msg := range msgs {
		data, err := message.Encode(msg, w)
		if err != nil {
			return nil, err
		}
		if len(data) > math.MaxUint16 {
			return nil, fmt.Errorf("message type %#x is %d bytes", msg.Type(), len(data))
		}
		if err := writeMessage(body, msg.Type(), data); err != nil {
			return nil, err
		}
	}
	if pad := minChunk - len(body.Bytes()); pad > 0 {
		// A NIL message needs room for its own 4 byte prefix.
		if err := writeMessage(body, message.TypeNIL, make([]byte, max(pad-4, 0))); err != nil {
			return nil, err
		}
	}
	chunk := body.Bytes()

	// Flag bits 0-1 give the width of the chunk size field.
	width, flags := 1, uint8(0)
	for width < 8 && uint64(len(chunk)) >= 1<<(8*width) {
		width *= 2
		flags++
	}

	hdr := w.Buffer()
	if err := hdr.WriteBytes([]byte{'O', 'H', 'D', 'R', 2, flags}); err != nil {
		return nil, err
	}
	if err := hdr.WriteUintN(uint64(len(chunk)), width); err != nil {
		return nil, err
	}
	if err := hdr.WriteBytes(chunk); err != nil {
		return nil, err
	}
	if err := hdr.WriteUint32(binary.Lookup3Checksum(hdr.Bytes())); err != nil {
		return nil, err
	}
	return hdr.Bytes(), nil
}

// writeMessage writes type(1) size(2) flags(1) and the body.
func writeMessage(w *binary.Writer, typ message.Type, data []byte) error {
	if err := w.WriteUint8(uint8(typ)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(data))); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	return w.WriteBytes(data)
}

// GroupMessages returns the messages of a group holding links.
func GroupMessages(links []*message.Link) []message.Message {
	msgs := []message.Message{&message.LinkInfo{}, &message.GroupInfo{}}
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// DatasetMessages returns the messages of a dataset.
func DatasetMessages(space *message.Dataspace, dt *message.Datatype, layout *message.DataLayout) []message.Message {
	return []message.Message{space, dt, layout}
}
