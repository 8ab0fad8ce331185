package mpo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robert-malhotra/go-mpo/hdf5"
)

// Store is read access to one MPO file. Paths are slash separated and
// relative to the file root. Missing objects are reported with ErrNotFound.
type Store interface {
	// ReadStrings reads a 1-D string dataset. Values are trimmed.
	ReadStrings(path string) ([]string, error)
	// ReadInts reads an integer dataset and its shape.
	ReadInts(path string) ([]int64, []int, error)
	// ReadFloats reads a floating-point dataset as float64.
	ReadFloats(path string) ([]float64, error)
	// List returns the sorted names of the members of the group at path
	// that start with prefix.
	List(path, prefix string) ([]string, error)
	Close() error
}

// Opener opens a Store by file name. Every call returns an independent
// handle.
type Opener func(name string) (Store, error)

// OpenHDF5 opens an MPO file through the in-tree HDF5 reader.
func OpenHDF5(name string) (Store, error) {
	f, err := hdf5.Open(name)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	return &hdf5Store{file: f}, nil
}

type hdf5Store struct {
	file *hdf5.File
}

func (s *hdf5Store) dataset(path string) (*hdf5.Dataset, error) {
	ds, err := s.file.OpenDataset(path)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, path, s.file.Path())
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return ds, nil
}

func (s *hdf5Store) ReadStrings(path string) ([]string, error) {
	ds, err := s.dataset(path)
	if err != nil {
		return nil, err
	}
	values, err := ds.ReadString()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values, nil
}

func (s *hdf5Store) ReadInts(path string) ([]int64, []int, error) {
	ds, err := s.dataset(path)
	if err != nil {
		return nil, nil, err
	}
	values, err := ds.ReadInt64()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	dims := ds.Shape()
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	return values, shape, nil
}

func (s *hdf5Store) ReadFloats(path string) ([]float64, error) {
	ds, err := s.dataset(path)
	if err != nil {
		return nil, err
	}
	values, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

func (s *hdf5Store) List(path, prefix string) ([]string, error) {
	g, err := s.file.OpenGroup(path)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, fmt.Errorf("%w: group %s in %s", ErrNotFound, path, s.file.Path())
		}
		return nil, fmt.Errorf("opening group %s: %w", path, err)
	}
	return g.MembersWithPrefix(prefix)
}

func (s *hdf5Store) Close() error {
	return s.file.Close()
}

type memDataset struct {
	strings []string
	ints    []int64
	floats  []float64
	shape   []int
}

// MemStore is an in-memory Store. Groups exist implicitly as prefixes of
// dataset paths. It is safe for concurrent use, and Close is a no-op so one
// MemStore can back every handle an Opener hands out.
type MemStore struct {
	mu       sync.RWMutex
	datasets map[string]*memDataset
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{datasets: make(map[string]*memDataset)}
}

// PutStrings stores a 1-D string dataset.
func (m *MemStore) PutStrings(path string, values []string) {
	m.put(path, &memDataset{strings: append([]string(nil), values...), shape: []int{len(values)}})
}

// PutInts stores an integer dataset. shape defaults to 1-D.
func (m *MemStore) PutInts(path string, values []int64, shape ...int) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	m.put(path, &memDataset{ints: append([]int64(nil), values...), shape: append([]int(nil), shape...)})
}

// PutFloats stores a floating-point dataset. shape defaults to 1-D.
func (m *MemStore) PutFloats(path string, values []float64, shape ...int) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	m.put(path, &memDataset{floats: append([]float64(nil), values...), shape: append([]int(nil), shape...)})
}

// Paths returns every dataset path, sorted.
func (m *MemStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.datasets)
}

func (m *MemStore) put(path string, ds *memDataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[hdf5.CleanPath(path)] = ds
}

func (m *MemStore) get(path string) (*memDataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[hdf5.CleanPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return ds, nil
}

func (m *MemStore) ReadStrings(path string) ([]string, error) {
	ds, err := m.get(path)
	if err != nil {
		return nil, err
	}
	if ds.strings == nil && len(ds.ints)+len(ds.floats) > 0 {
		return nil, fmt.Errorf("%s is not a string dataset", path)
	}
	out := make([]string, len(ds.strings))
	for i, v := range ds.strings {
		out[i] = strings.TrimSpace(v)
	}
	return out, nil
}

func (m *MemStore) ReadInts(path string) ([]int64, []int, error) {
	ds, err := m.get(path)
	if err != nil {
		return nil, nil, err
	}
	if ds.ints == nil && len(ds.strings)+len(ds.floats) > 0 {
		return nil, nil, fmt.Errorf("%s is not an integer dataset", path)
	}
	return append([]int64(nil), ds.ints...), append([]int(nil), ds.shape...), nil
}

func (m *MemStore) ReadFloats(path string) ([]float64, error) {
	ds, err := m.get(path)
	if err != nil {
		return nil, err
	}
	switch {
	case ds.floats != nil:
		return append([]float64(nil), ds.floats...), nil
	case ds.ints != nil:
		out := make([]float64, len(ds.ints))
		for i, v := range ds.ints {
			out[i] = float64(v)
		}
		return out, nil
	case len(ds.strings) > 0:
		return nil, fmt.Errorf("%s is not a numeric dataset", path)
	}
	return []float64{}, nil
}

func (m *MemStore) List(path, prefix string) ([]string, error) {
	dir := hdf5.CleanPath(path)
	if dir != "/" {
		dir += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for p := range m.datasets {
		if !strings.HasPrefix(p, dir) {
			continue
		}
		child, _, _ := strings.Cut(p[len(dir):], "/")
		if strings.HasPrefix(child, prefix) {
			seen[child] = struct{}{}
		}
	}
	if len(seen) == 0 && !m.hasGroup(dir) {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, path)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemStore) hasGroup(dir string) bool {
	for p := range m.datasets {
		if strings.HasPrefix(p, dir) {
			return true
		}
	}
	return false
}

// Close does nothing.
func (m *MemStore) Close() error {
	return nil
}

// MemOpener returns an Opener that serves the given stores by name.
func MemOpener(stores map[string]*MemStore) Opener {
	return func(name string) (Store, error) {
		s, ok := stores[name]
		if !ok {
			return nil, fmt.Errorf("%w: file %s", ErrNotFound, name)
		}
		return s, nil
	}
}
