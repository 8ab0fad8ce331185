package mpo

import (
	"errors"
	"fmt"
)

// addrTable is an output's ADDRXS table, shaped
// [zone block, isotope, reaction slot]. The three slots after the named
// reactions hold the diffusion order count, the scattering order count and
// the transfer profile base.
type addrTable struct {
	data      []int64
	blocks    int
	isotopes  int
	slots     int
	reactions int
}

func (s *Source) readAddrTable(st Store) (*addrTable, error) {
	path := joinPath(s.outputPath, "info/ADDRXS")
	data, shape, err := st.ReadInts(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 || shape[2] != len(s.reactions)+3 {
		return nil, fmt.Errorf("%w: %s has shape %v for %d reactions", ErrShapeMismatch, path, shape, len(s.reactions))
	}
	return &addrTable{
		data:      data,
		blocks:    shape[0],
		isotopes:  shape[1],
		slots:     shape[2],
		reactions: len(s.reactions),
	}, nil
}

func (t *addrTable) at(block, iso, slot int) (int64, error) {
	if block < 0 || block >= t.blocks || iso < 0 || iso >= t.isotopes || slot < 0 || slot >= t.slots {
		return 0, fmt.Errorf("%w: ADDRXS[%d,%d,%d] outside [%d,%d,%d]",
			ErrShapeMismatch, block, iso, slot, t.blocks, t.isotopes, t.slots)
	}
	return t.data[(block*t.isotopes+iso)*t.slots+slot], nil
}

func (t *addrTable) orders(block, iso int) (diffusion, scattering int64, err error) {
	if diffusion, err = t.at(block, iso, t.reactions); err != nil {
		return 0, 0, err
	}
	scattering, err = t.at(block, iso, t.reactions+1)
	return diffusion, scattering, err
}

func (t *addrTable) profileBase(block, iso int) (int64, error) {
	return t.at(block, iso, t.reactions+2)
}

// zoneData holds the datasets of one zone at one state point.
type zoneData struct {
	zone    int
	xsBlock int // ADDRZX
	isoSet  int // ADDRZI
	conc    []float64
	flux    []float64
	xs      []float64
	profile []int64
}

type zoneNeeds struct {
	values  bool
	profile bool
}

func (s *Source) readZone(st Store, statePath string, z int, need zoneNeeds) (*zoneData, error) {
	dir := joinPath(statePath, zoneName(z))
	zd := &zoneData{zone: z}

	var err error
	if zd.xsBlock, err = readScalar(st, joinPath(dir, "ADDRZX")); err != nil {
		return nil, err
	}
	if zd.isoSet, err = readScalar(st, joinPath(dir, "ADDRZI")); err != nil {
		if !errors.Is(err, ErrNotFound) || len(s.blocks) != 1 {
			return nil, err
		}
		zd.isoSet = 0
	}
	if zd.isoSet < 0 || zd.isoSet >= len(s.blocks) {
		return nil, fmt.Errorf("%w: %s ADDRZI=%d with %d isotope blocks", ErrShapeMismatch, dir, zd.isoSet, len(s.blocks))
	}

	if need.values {
		if zd.conc, err = st.ReadFloats(joinPath(dir, "CONCENTRATION")); err != nil {
			return nil, err
		}
		if zd.flux, err = st.ReadFloats(joinPath(dir, "ZONEFLUX")); err != nil {
			return nil, err
		}
		if len(zd.flux) < s.groups {
			return nil, fmt.Errorf("%w: %s ZONEFLUX has %d groups, want %d", ErrShapeMismatch, dir, len(zd.flux), s.groups)
		}
		if zd.xs, err = st.ReadFloats(joinPath(dir, "CROSSECTION")); err != nil {
			return nil, err
		}
	}
	if need.profile {
		zd.profile, _, err = st.ReadInts(joinPath(dir, "TRANSPROFILE"))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return zd, nil
}

// block returns the isotope table of the zone.
func (s *Source) block(zd *zoneData) map[string]int {
	return s.blocks[zd.isoSet]
}

// statePoints lists the state point groups of the output, sorted.
func (s *Source) statePoints(st Store) ([]string, error) {
	names, err := st.List(s.outputPath, "statept_")
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = joinPath(s.outputPath, n)
	}
	return paths, nil
}

// localCoords reads the local value slot of every parameter at a state
// point.
func (s *Source) localCoords(st Store, statePath string) ([]int, error) {
	path := joinPath(statePath, "PARAMVALUEORD")
	ord, _, err := st.ReadInts(path)
	if err != nil {
		return nil, err
	}
	if len(ord) != len(s.params) {
		return nil, fmt.Errorf("%w: %s has %d entries for %d parameters", ErrShapeMismatch, path, len(ord), len(s.params))
	}
	local := make([]int, len(ord))
	for i, v := range ord {
		local[i] = int(v)
	}
	return local, nil
}
