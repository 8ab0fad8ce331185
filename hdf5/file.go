package hdf5

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robert-malhotra/go-mpo/internal/alloc"
	"github.com/robert-malhotra/go-mpo/internal/binary"
	"github.com/robert-malhotra/go-mpo/internal/object"
	"github.com/robert-malhotra/go-mpo/internal/superblock"
)

// File is an HDF5 file opened for reading with Open or for writing with
// Create.
type File struct {
	path       string
	file       *os.File
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	reader *binary.Reader

	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		if errors.Is(err, superblock.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %s", ErrNotHDF5, path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f := &File{
		path:       path,
		file:       osFile,
		superblock: sb,
		reader:     binary.NewReader(osFile, sb.Config()),
	}
	obj, err := f.openAt(sb.RootGroupAddress, "/")
	if err == nil {
		var ok bool
		if f.root, ok = obj.(*Group); !ok {
			err = fmt.Errorf("%w: root object", ErrNotGroup)
		}
	}
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Close closes the file, flushing a writable file first.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.Flush()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Path returns the name the file was opened or created with.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.superblock.Version) }

// OpenGroup opens a group by path from the root.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path from the root.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// openAt reads the object header at addr. Objects with a dataspace are
// datasets; everything else is a group.
func (f *File) openAt(addr uint64, path string) (interface{}, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if h.Dataspace() != nil {
		return newDataset(f, path, h)
	}
	return &Group{file: f, path: path, header: h}, nil
}

// splitPath splits a path into its non-empty components.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// CleanPath normalizes a path so that it starts with "/" and has no
// trailing or repeated slashes.
func CleanPath(p string) string {
	return "/" + strings.Join(splitPath(p), "/")
}

// JoinPath joins path components and cleans the result.
func JoinPath(elem ...string) string {
	return CleanPath(strings.Join(elem, "/"))
}
