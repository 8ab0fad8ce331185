package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is a link message (type 0x0006) naming one member of a group.
type Link struct {
	LinkType      LinkType
	Name          string
	ObjectAddress uint64 // hard links
	SoftLinkValue string // soft links
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool     { return m.LinkType == LinkTypeHard }
func (m *Link) IsSoft() bool     { return m.LinkType == LinkTypeSoft }
func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

func parseLink(data []byte, r *binary.Reader) (*Link, error) {
	c := newCursor(data, r)
	if v := c.u8(); v != 1 && c.err == nil {
		return nil, fmt.Errorf("unsupported link version %d", v)
	}
	flags := c.u8()

	m := &Link{}
	if flags&0x08 != 0 {
		m.LinkType = LinkType(c.u8())
	}
	if flags&0x04 != 0 {
		c.skip(8) // creation order
	}
	if flags&0x10 != 0 {
		c.skip(1) // charset
	}
	m.Name = string(c.take(int(c.num(1 << (flags & 0x03)))))

	switch m.LinkType {
	case LinkTypeHard:
		m.ObjectAddress = c.offset()
	case LinkTypeSoft:
		m.SoftLinkValue = string(c.take(int(c.num(2))))
	}
	return m, c.done("link")
}

// Serialize writes a version 1 hard link.
func (m *Link) Serialize(w *binary.Writer) error {
	if m.LinkType != LinkTypeHard {
		return fmt.Errorf("cannot write link type %d", m.LinkType)
	}
	// Flag bits 0-1 hold log2 of the name length width.
	size, bits := 1, uint8(0)
	for size < 8 && uint64(len(m.Name)) >= 1<<(8*size) {
		size *= 2
		bits++
	}
	if err := w.WriteBytes([]byte{1, bits}); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(len(m.Name)), size); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	return w.WriteOffset(m.ObjectAddress)
}

func NewHardLink(name string, address uint64) *Link {
	return &Link{LinkType: LinkTypeHard, Name: name, ObjectAddress: address}
}
