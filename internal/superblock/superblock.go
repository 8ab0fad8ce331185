// Package superblock reads and writes the HDF5 superblock, which gives
// the field widths of the file and the address of the root group.
package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-mpo/internal/binary"
)

// Signature is the first 8 bytes of every HDF5 superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// The superblock may follow a user block of 512 bytes or a power of two
// beyond that.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	BaseAddress      uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Scratch pad of the root symbol table entry, versions 0 and 1 only.
	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64
}

// New returns a version 3 superblock with 8 byte offsets and lengths.
func New() *Superblock {
	return &Superblock{Version: 3, OffsetSize: 8, LengthSize: 8}
}

// Config returns the reader and writer settings for the file.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Read finds and decodes the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	head := make([]byte, 16)
	for _, at := range searchOffsets {
		if _, err := r.ReadAt(head, at); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(head[:8], Signature) {
			continue
		}

		sb := &Superblock{Version: head[8]}
		switch sb.Version {
		case 0, 1:
			sb.OffsetSize, sb.LengthSize = head[13], head[14]
		case 2, 3:
			sb.OffsetSize, sb.LengthSize = head[9], head[10]
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, sb.Version)
		}
		for _, n := range []uint8{sb.OffsetSize, sb.LengthSize} {
			if n != 2 && n != 4 && n != 8 {
				return nil, fmt.Errorf("%w: field width %d", ErrInvalidSuperblock, n)
			}
		}

		br := binpkg.NewReader(r, sb.Config())
		var err error
		if sb.Version < 2 {
			err = sb.readV0(br.At(at + 24))
		} else {
			err = sb.readV2(br.At(at+12), r, at)
		}
		if err != nil {
			return nil, err
		}
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// readV0 reads the addresses and the root symbol table entry of a
// version 0 or 1 superblock.
func (sb *Superblock) readV0(r *binpkg.Reader) error {
	if sb.Version == 1 {
		r.Skip(4) // indexed storage K and reserved
	}
	o := int64(r.OffsetSize())
	sb.BaseAddress, _ = r.ReadOffset()
	r.Skip(o) // free-space info
	sb.EOFAddress, _ = r.ReadOffset()
	r.Skip(2 * o) // driver info and the root link name offset
	sb.RootGroupAddress, _ = r.ReadOffset()
	r.Skip(8) // cache type and reserved
	sb.RootGroupBTreeAddress, _ = r.ReadOffset()
	var err error
	sb.RootGroupLocalHeapAddress, err = r.ReadOffset()
	return err
}

// readV2 reads the addresses of a version 2 or 3 superblock and checks
// its checksum.
func (sb *Superblock) readV2(r *binpkg.Reader, src io.ReaderAt, at int64) error {
	sb.BaseAddress, _ = r.ReadOffset()
	r.ReadOffset() // superblock extension
	sb.EOFAddress, _ = r.ReadOffset()
	sb.RootGroupAddress, _ = r.ReadOffset()
	end := r.Pos()
	stored, err := r.ReadUint32()
	if err != nil {
		return err
	}

	data := make([]byte, end-at)
	if _, err := src.ReadAt(data, at); err != nil {
		return err
	}
	if binpkg.Lookup3Checksum(data) != stored {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	return nil
}

// Size is the encoded size of a version 2 or 3 superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Write encodes a version 2 or 3 superblock at the position of w. There
// is never a superblock extension.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	n := int(sb.OffsetSize)
	b := append([]byte(nil), Signature...)
	b = append(b, sb.Version, sb.OffsetSize, sb.LengthSize, 0)
	for _, addr := range []uint64{sb.BaseAddress, ^uint64(0), sb.EOFAddress, sb.RootGroupAddress} {
		b = binary.LittleEndian.AppendUint64(b, addr)[:len(b)+n]
	}
	b = binary.LittleEndian.AppendUint32(b, binpkg.Lookup3Checksum(b))
	return w.WriteBytes(b)
}
