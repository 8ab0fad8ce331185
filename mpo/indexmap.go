package mpo

import "fmt"

// IndexMap translates coordinates between one source's local parameter
// axes and the global ParamSpace axes.
//
// A local coordinate holds, per local axis, the slot of the sampled value in
// the source's own value list. A global coordinate holds, per global axis,
// the index of that value in the ParamSpace.
type IndexMap struct {
	names    []string // local axis order
	slots    [][]int  // local axis -> local slot -> global value index
	toGlobal []int    // local axis -> global axis
	toLocal  []int    // global axis -> local axis
}

// NewIndexMap builds the map for a source whose parameters, in local
// enumeration order, are names with the given values.
func NewIndexMap(space *ParamSpace, names []string, values [][]float64) (*IndexMap, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d parameter names for %d value lists", ErrShapeMismatch, len(names), len(values))
	}
	if len(names) != space.Len() {
		return nil, fmt.Errorf("%w: source has %d parameters, space has %d", ErrShapeMismatch, len(names), space.Len())
	}

	m := &IndexMap{
		names:    make([]string, len(names)),
		slots:    make([][]int, len(names)),
		toGlobal: make([]int, len(names)),
		toLocal:  make([]int, len(names)),
	}
	for i := range m.toLocal {
		m.toLocal[i] = -1
	}

	for local, name := range names {
		name = NormalizeName(name)
		global, ok := space.Axis(name)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q", ErrNotFound, name)
		}
		if m.toLocal[global] >= 0 {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidInput, name)
		}
		m.names[local] = name
		m.toGlobal[local] = global
		m.toLocal[global] = local

		m.slots[local] = make([]int, len(values[local]))
		for slot, v := range values[local] {
			idx, err := space.Index(name, v)
			if err != nil {
				return nil, err
			}
			m.slots[local][slot] = idx
		}
	}
	return m, nil
}

// Len returns the number of axes.
func (m *IndexMap) Len() int {
	return len(m.names)
}

// GlobalAxis returns the global axis of a local axis.
func (m *IndexMap) GlobalAxis(local int) int {
	return m.toGlobal[local]
}

// LocalAxis returns the local axis of a global axis.
func (m *IndexMap) LocalAxis(global int) int {
	return m.toLocal[global]
}

// Globalize converts a local coordinate into a global one.
func (m *IndexMap) Globalize(local []int) ([]int, error) {
	if len(local) != len(m.names) {
		return nil, fmt.Errorf("%w: %d local indices for %d axes", ErrShapeMismatch, len(local), len(m.names))
	}
	global := make([]int, len(local))
	for axis, slot := range local {
		if slot < 0 || slot >= len(m.slots[axis]) {
			return nil, fmt.Errorf("%w: slot %d of %q (has %d values)", ErrParameterNotFound, slot, m.names[axis], len(m.slots[axis]))
		}
		global[m.toGlobal[axis]] = m.slots[axis][slot]
	}
	return global, nil
}

// Localize converts a global coordinate into a local one. It fails with
// ErrParameterNotFound when the source did not sample one of the values.
func (m *IndexMap) Localize(global []int) ([]int, error) {
	if len(global) != len(m.names) {
		return nil, fmt.Errorf("%w: %d global indices for %d axes", ErrShapeMismatch, len(global), len(m.names))
	}
	local := make([]int, len(global))
	for axis, idx := range global {
		l := m.toLocal[axis]
		slot := -1
		for s, g := range m.slots[l] {
			if g == idx {
				slot = s
				break
			}
		}
		if slot < 0 {
			return nil, fmt.Errorf("%w: global index %d of %q", ErrParameterNotFound, idx, m.names[l])
		}
		local[l] = slot
	}
	return local, nil
}
