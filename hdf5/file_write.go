package hdf5

import (
	"os"

	"github.com/robert-malhotra/go-mpo/internal/alloc"
	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/message"
	"github.com/robert-malhotra/go-mpo/internal/object"
	"github.com/robert-malhotra/go-mpo/internal/superblock"
)

// Create creates a file with a version 3 superblock and an empty root
// group, truncating any existing file.
func Create(path string) (*File, error) {
	osFile, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	sb := superblock.New()
	f := &File{
		path:       path,
		file:       osFile,
		superblock: sb,
		writable:   true,
		writer:     binary.NewWriter(osFile, sb.Config()),
		allocator:  alloc.New(uint64(sb.Size())),
	}
	addr, err := f.writeHeader(object.GroupMessages(nil), object.MinGroupChunk)
	if err == nil {
		sb.RootGroupAddress = addr
		err = f.Flush()
	}
	if err != nil {
		osFile.Close()
		os.Remove(path)
		return nil, err
	}

	f.root = &Group{file: f, path: "/", addr: addr}
	return f, nil
}

// Flush rewrites the superblock with the current end of file and root
// address and syncs the file to disk.
func (f *File) Flush() error {
	if !f.writable {
		return nil
	}
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer.At(0)); err != nil {
		return err
	}
	return f.file.Sync()
}

// writeHeader appends an object header holding msgs and returns its
// address.
func (f *File) writeHeader(msgs []message.Message, minChunk int) (uint64, error) {
	buf, err := object.Encode(f.writer, msgs, minChunk)
	if err != nil {
		return 0, err
	}
	addr := f.allocator.Alloc(uint64(len(buf)))
	return addr, f.writer.At(int64(addr)).WriteBytes(buf)
}
