package binary

import (
	"encoding/binary"
	"io"
)

// Writer encodes HDF5 fields at a position of an io.WriterAt.
type Writer struct {
	w   io.WriterAt
	cfg Config
	pos int64
}

// NewWriter creates a writer at offset 0 of w.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{w: w, cfg: cfg}
}

// At returns a writer on the same target positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, cfg: w.cfg, pos: offset}
}

// Buffer returns a writer with the same sizes that encodes into memory.
// The bytes written so far are available from Bytes.
func (w *Writer) Buffer() *Writer {
	return &Writer{w: &memory{}, cfg: w.cfg}
}

// Bytes returns the contents of a writer created by Buffer.
func (w *Writer) Bytes() []byte {
	if m, ok := w.w.(*memory); ok {
		return m.buf
	}
	return nil
}

func (w *Writer) Pos() int64 { return w.pos }

func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

func (w *Writer) WriteUint8(v uint8) error { return w.WriteBytes([]byte{v}) }

func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }

func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }

func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteUintN writes the low n bytes of v in the configured byte order.
func (w *Writer) WriteUintN(v uint64, n int) error {
	var buf [8]byte
	if w.cfg.ByteOrder == binary.BigEndian {
		binary.BigEndian.PutUint64(buf[:], v)
		return w.WriteBytes(buf[8-n:])
	}
	binary.LittleEndian.PutUint64(buf[:], v)
	return w.WriteBytes(buf[:n])
}

func (w *Writer) WriteOffset(v uint64) error { return w.WriteUintN(v, w.cfg.OffsetSize) }

func (w *Writer) WriteLength(v uint64) error { return w.WriteUintN(v, w.cfg.LengthSize) }

// UndefinedOffset is the all-ones address for the configured offset size.
func (w *Writer) UndefinedOffset() uint64 {
	if w.cfg.OffsetSize >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*w.cfg.OffsetSize) - 1
}

func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

func (w *Writer) LengthSize() int { return w.cfg.LengthSize }

func (w *Writer) ByteOrder() binary.ByteOrder { return w.cfg.ByteOrder }

// Config returns the sizes and byte order of the writer.
func (w *Writer) Config() Config { return w.cfg }

// memory is a growable io.WriterAt.
type memory struct {
	buf []byte
}

func (m *memory) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}
