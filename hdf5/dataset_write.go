package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-mpo/internal/dtype"
	"github.com/robert-malhotra/go-mpo/internal/message"
	"github.com/robert-malhotra/go-mpo/internal/object"
)

// CreateDataset creates a contiguous dataset from a flat numeric slice.
// dims gives the row-major shape; when omitted the dataset is 1-D. The
// datatype follows the slice element type.
func (g *Group) CreateDataset(name string, data interface{}, dims ...uint64) (*Dataset, error) {
	dt, n, err := dtype.Of(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	if len(dims) == 0 {
		dims = []uint64{uint64(n)}
	}
	if size := numElements(dims); size != uint64(n) {
		return nil, fmt.Errorf("dataset %q: shape %v holds %d elements, data has %d", name, dims, size, n)
	}

	ds, err := g.CreateDatasetWithType(name, dims, dt)
	if err != nil {
		return nil, err
	}
	if err := ds.Write(data); err != nil {
		return nil, err
	}
	return ds, nil
}

// CreateStringDataset creates a 1-D dataset of null-terminated fixed-length
// ASCII strings, sized to the longest value.
func (g *Group) CreateStringDataset(name string, values []string) (*Dataset, error) {
	maxLen := 0
	for _, s := range values {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	dt := message.NewStringDatatype(uint32(maxLen+1), message.PadNullTerm, message.CharsetASCII)

	ds, err := g.CreateDatasetWithType(name, []uint64{uint64(len(values))}, dt)
	if err != nil {
		return nil, err
	}
	if err := ds.Write(values); err != nil {
		return nil, err
	}
	return ds, nil
}

// CreateDatasetWithType creates a contiguous dataset with explicit
// dimensions and datatype. Its storage is reserved but left unwritten until
// Write is called.
func (g *Group) CreateDatasetWithType(name string, dims []uint64, dt *message.Datatype) (*Dataset, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty dataset name", ErrInvalidPath)
	}

	dataspace := message.NewDataspace(dims, nil)
	dataSize := uint64(dt.Size) * numElements(dims)
	dataAddr := g.file.allocator.Alloc(dataSize)

	layout := message.NewContiguousLayout(dataAddr, dataSize)
	datasetAddr, err := g.file.writeHeader(object.DatasetMessages(dataspace, dt, layout), 0)
	if err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}

	if err := g.link(message.NewHardLink(name, datasetAddr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}

	return &Dataset{
		file:     g.file,
		path:     path.Join(g.path, name),
		space:    dataspace,
		datatype: dt,
		dataAddr: dataAddr,
		dataSize: dataSize,
	}, nil
}

// Write writes data to a dataset that was created with CreateDatasetWithType.
func (d *Dataset) Write(data interface{}) error {
	if !d.file.writable {
		return ErrReadOnly
	}
	if d.dataAddr == 0 {
		return fmt.Errorf("dataset %s was not created for writing", d.path)
	}

	raw, err := dtype.Encode(d.datatype, data)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	if uint64(len(raw)) != d.dataSize {
		return fmt.Errorf("data size mismatch: expected %d, got %d", d.dataSize, len(raw))
	}

	w := d.file.writer.At(int64(d.dataAddr))
	if err := w.WriteBytes(raw); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}
	return nil
}

func numElements(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}
