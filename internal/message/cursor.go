package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mpo/internal/binary"
)

// cursor reads fields from a message body. The first short read is kept
// in err and every later read returns zero.
type cursor struct {
	data []byte
	pos  int
	r    *binary.Reader
	err  error
}

func newCursor(data []byte, r *binary.Reader) *cursor {
	return &cursor{data: data, r: r}
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.data) {
		c.err = fmt.Errorf("message truncated at byte %d, need %d more", c.pos, n)
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

// num reads an n byte integer in the file byte order.
func (c *cursor) num(n int) uint64 {
	return binary.Uint(c.take(n), c.r.ByteOrder())
}

func (c *cursor) u8() uint8 { return uint8(c.num(1)) }

func (c *cursor) offset() uint64 { return c.num(c.r.OffsetSize()) }

func (c *cursor) length() uint64 { return c.num(c.r.LengthSize()) }

func (c *cursor) skip(n int) { c.take(n) }

func (c *cursor) left() int { return len(c.data) - c.pos }

// bytes returns a copy of the next n bytes.
func (c *cursor) bytes(n int) []byte {
	return append([]byte(nil), c.take(n)...)
}

// done wraps the sticky error with the message name.
func (c *cursor) done(name string) error {
	if c.err != nil {
		return fmt.Errorf("%s: %w", name, c.err)
	}
	return nil
}
