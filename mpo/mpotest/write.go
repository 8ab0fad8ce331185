package mpotest

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-mpo/hdf5"
	"github.com/robert-malhotra/go-mpo/mpo"
)

// MemStore renders the fixture into a new in-memory store.
func (f *Fixture) MemStore() (*mpo.MemStore, error) {
	m := mpo.NewMemStore()
	if err := f.write(memSink{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteHDF5 renders the fixture into a new HDF5 file at name. Integers are
// stored as int32 and floats as float64.
func (f *Fixture) WriteHDF5(name string) error {
	file, err := hdf5.Create(name)
	if err != nil {
		return err
	}
	if err := f.write(&h5Sink{root: file.Root()}); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return file.Close()
}

// Opener renders each named fixture in memory and serves it.
func Opener(fixtures map[string]*Fixture) (mpo.Opener, error) {
	stores := make(map[string]*mpo.MemStore, len(fixtures))
	for name, f := range fixtures {
		m, err := f.MemStore()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		stores[name] = m
	}
	return mpo.MemOpener(stores), nil
}

type memSink struct {
	m *mpo.MemStore
}

func (s memSink) strings(p string, values []string) error {
	s.m.PutStrings(p, values)
	return nil
}

func (s memSink) ints(p string, values []int64, shape ...int) error {
	s.m.PutInts(p, values, shape...)
	return nil
}

func (s memSink) floats(p string, values []float64) error {
	s.m.PutFloats(p, values)
	return nil
}

type h5Sink struct {
	root *hdf5.Group
}

func (s *h5Sink) group(p string) (*hdf5.Group, string, error) {
	dir, name := path.Split(p)
	if dir == "" {
		return s.root, name, nil
	}
	g, err := s.root.RequireGroup(dir)
	return g, name, err
}

func (s *h5Sink) strings(p string, values []string) error {
	g, name, err := s.group(p)
	if err != nil {
		return err
	}
	_, err = g.CreateStringDataset(name, values)
	return err
}

func (s *h5Sink) ints(p string, values []int64, shape ...int) error {
	g, name, err := s.group(p)
	if err != nil {
		return err
	}
	data := make([]int32, len(values))
	for i, v := range values {
		data[i] = int32(v)
	}
	dims := make([]uint64, len(shape))
	for i, d := range shape {
		dims[i] = uint64(d)
	}
	_, err = g.CreateDataset(name, data, dims...)
	return err
}

func (s *h5Sink) floats(p string, values []float64) error {
	g, name, err := s.group(p)
	if err != nil {
		return err
	}
	_, err = g.CreateDataset(name, values)
	return err
}
