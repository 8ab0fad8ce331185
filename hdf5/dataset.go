package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-mpo/internal/dtype"
	"github.com/robert-malhotra/go-mpo/internal/layout"
	"github.com/robert-malhotra/go-mpo/internal/message"
	"github.com/robert-malhotra/go-mpo/internal/object"
)

// Dataset is an HDF5 dataset. Values are always read whole.
type Dataset struct {
	file     *File
	path     string
	space    *message.Dataspace
	datatype *message.Datatype
	storage  layout.Layout

	// Contiguous storage of a dataset being written.
	dataAddr uint64
	dataSize uint64
}

func newDataset(f *File, p string, h *object.Header) (*Dataset, error) {
	d := &Dataset{file: f, path: p, space: h.Dataspace(), datatype: h.Datatype()}
	msg := h.DataLayout()
	if d.datatype == nil || msg == nil {
		return nil, fmt.Errorf("dataset %s has no datatype or layout", p)
	}
	var err error
	if d.storage, err = layout.New(msg, d.space, d.datatype, h.FilterPipeline(), f.reader); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", p, err)
	}
	return d, nil
}

func (d *Dataset) Name() string { return path.Base(d.path) }

func (d *Dataset) Path() string { return d.path }

// Shape returns the dimensions, nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	if d.space.IsScalar() {
		return nil
	}
	return d.space.Dimensions
}

func (d *Dataset) Rank() int { return len(d.space.Dimensions) }

func (d *Dataset) NumElements() uint64 { return d.space.NumElements() }

func (d *Dataset) DtypeClass() message.DatatypeClass { return d.datatype.Class }

func (d *Dataset) raw() ([]byte, error) {
	if d.storage == nil {
		return nil, fmt.Errorf("dataset %s was not opened for reading", d.path)
	}
	data, err := d.storage.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return data, nil
}

// ReadFloat64 reads the dataset as float64 values, converting integers.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	data, err := d.raw()
	if err != nil {
		return nil, err
	}
	return dtype.Floats(d.datatype, data, d.NumElements())
}

// ReadInt64 reads an integer dataset.
func (d *Dataset) ReadInt64() ([]int64, error) {
	data, err := d.raw()
	if err != nil {
		return nil, err
	}
	return dtype.Ints(d.datatype, data, d.NumElements())
}

// ReadString reads a string dataset. Fixed-length values lose their
// padding.
func (d *Dataset) ReadString() ([]string, error) {
	data, err := d.raw()
	if err != nil {
		return nil, err
	}
	return dtype.Strings(d.datatype, data, d.NumElements(), d.file.reader)
}
