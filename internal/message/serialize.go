package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// Serializable is a message the writer can encode.
type Serializable interface {
	Message
	Serialize(w *binary.Writer) error
}

// Encode returns the body of msg using the sizes of w.
func Encode(msg Message, w *binary.Writer) ([]byte, error) {
	s, ok := msg.(Serializable)
	if !ok {
		return nil, fmt.Errorf("message type %#x cannot be written", msg.Type())
	}
	buf := w.Buffer()
	if err := s.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
