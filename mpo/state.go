package mpo

import (
	"context"
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"
)

// State is the persisted result of Open: enough to rebuild a Master
// without rescanning the files.
type State struct {
	Geometry   string               `json:"geometry"`
	EnergyMesh string               `json:"energyMesh"`
	Zones      int                  `json:"zones"`
	Groups     int                  `json:"groups"`
	Files      []string             `json:"files"`
	Parameters map[string][]float64 `json:"parameters"`
	Isotopes   []string             `json:"isotopes"`
	Reactions  []string             `json:"reactions"`
	ValidSets  ValidSets            `json:"validSets"`
}

// State returns a snapshot of the merged state.
func (m *Master) State() *State {
	st := &State{
		Geometry:   m.geometry,
		EnergyMesh: m.mesh,
		Zones:      m.zones,
		Groups:     m.groups,
		Files:      m.Files(),
		Parameters: make(map[string][]float64, m.space.Len()),
		Isotopes:   m.Isotopes(),
		Reactions:  m.Reactions(),
		ValidSets:  make(ValidSets, len(m.valid)),
	}
	for _, name := range m.space.Names() {
		st.Parameters[name] = m.space.Values(name)
	}
	for iso, v := range m.valid {
		v.Pairs = append([]Pair(nil), v.Pairs...)
		st.ValidSets[iso] = v
	}
	return st
}

// SaveState writes the merged state as YAML.
func (m *Master) SaveState(path string) error {
	data, err := yaml.Marshal(m.State())
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadState rebuilds a Master from a file written by SaveState. The
// sources are reopened for their metadata and bound to the saved space;
// the valid-set scan is not repeated.
func LoadState(ctx context.Context, path string, opts Options) (*Master, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := yaml.UnmarshalStrict(data, &st); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidInput, path, err)
	}
	return FromState(ctx, &st, opts)
}

// FromState rebuilds a Master from a State.
func FromState(ctx context.Context, st *State, opts Options) (*Master, error) {
	if err := checkSelection(st.Files, st.Geometry, st.EnergyMesh); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	space, err := newParamSpace(st.Parameters)
	if err != nil {
		return nil, err
	}
	sources, err := openSources(ctx, st.Files, st.Geometry, st.EnergyMesh, opts)
	if err != nil {
		return nil, err
	}

	m := &Master{
		geometry:  st.Geometry,
		mesh:      st.EnergyMesh,
		sources:   sources,
		space:     space,
		isotopes:  append([]string(nil), st.Isotopes...),
		reactions: append([]string(nil), st.Reactions...),
		valid:     make(ValidSets, len(st.ValidSets)),
		opts:      opts,
	}
	if err := m.checkConsistency(); err != nil {
		return nil, err
	}
	if m.zones != st.Zones || m.groups != st.Groups {
		return nil, fmt.Errorf("%w: files have %d zones and %d groups, state has %d and %d",
			ErrShapeMismatch, m.zones, m.groups, st.Zones, st.Groups)
	}
	for _, s := range sources {
		if err := s.Bind(space); err != nil {
			return nil, err
		}
	}
	sort.Strings(m.isotopes)
	sort.Strings(m.reactions)
	for iso, v := range st.ValidSets {
		b := NewValidSetBuilder()
		b.ObserveOrders(iso, v.DiffusionOrders, v.ScatteringOrders)
		for _, p := range v.Pairs {
			b.AddPair(iso, p)
		}
		m.valid[iso] = b.Build()[iso]
	}
	m.opts.Logger.Info("reloaded state", "files", len(sources), "shape", space.Shape())
	return m, nil
}
