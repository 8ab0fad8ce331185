package message

import (
	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// LinkInfo is a link info message (type 0x0002). Groups written here keep
// their links compact, so the heap and index addresses are undefined.
type LinkInfo struct{}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// Serialize writes version 0 with no creation order tracking.
func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, 0}); err != nil {
		return err
	}
	if err := w.WriteOffset(w.UndefinedOffset()); err != nil {
		return err
	}
	return w.WriteOffset(w.UndefinedOffset())
}

// GroupInfo is a group info message (type 0x000A) with default phase
// change values.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func (m *GroupInfo) Serialize(w *binary.Writer) error {
	return w.WriteBytes([]byte{0, 0})
}
