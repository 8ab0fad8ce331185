package mpo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParamSpace is the merged parameter grid: for each parameter name a
// strictly increasing list of values. Names are kept in lexicographic order
// and that order is the axis order of every output array.
//
// A ParamSpace is immutable once built and safe for concurrent use.
type ParamSpace struct {
	names  []string
	values map[string][]float64
}

// NormalizeName returns the canonical form of a parameter name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the parameter names in axis order.
func (p *ParamSpace) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of parameters.
func (p *ParamSpace) Len() int {
	return len(p.names)
}

// Values returns the merged values of a parameter, or nil if the name is
// not part of the space.
func (p *ParamSpace) Values(name string) []float64 {
	return append([]float64(nil), p.values[NormalizeName(name)]...)
}

// Axis returns the axis position of a parameter.
func (p *ParamSpace) Axis(name string) (int, bool) {
	name = NormalizeName(name)
	i := sort.SearchStrings(p.names, name)
	if i < len(p.names) && p.names[i] == name {
		return i, true
	}
	return 0, false
}

// Index returns the position of v among the values of the named parameter.
func (p *ParamSpace) Index(name string, v float64) (int, error) {
	values, ok := p.values[NormalizeName(name)]
	if !ok {
		return 0, fmt.Errorf("%w: parameter %q", ErrNotFound, name)
	}
	i, ok := nearestIndex(values, v)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%g", ErrParameterNotFound, name, v)
	}
	return i, nil
}

// Shape returns the number of values on each axis.
func (p *ParamSpace) Shape() []int {
	shape := make([]int, len(p.names))
	for i, name := range p.names {
		shape[i] = len(p.values[name])
	}
	return shape
}

// String renders one "name(n): values" line per parameter.
func (p *ParamSpace) String() string {
	var b strings.Builder
	for _, name := range p.names {
		fmt.Fprintf(&b, "%s(%d): %v\n", name, len(p.values[name]), p.values[name])
	}
	return b.String()
}

// SpaceBuilder accumulates per-source parameter samplings. Sources must be
// added in file-list order; every source must carry the same parameter names.
type SpaceBuilder struct {
	names  map[string]struct{}
	values map[string][]float64
}

// NewSpaceBuilder returns an empty builder.
func NewSpaceBuilder() *SpaceBuilder {
	return &SpaceBuilder{values: make(map[string][]float64)}
}

// Add merges one source's parameter sampling. Names are normalized.
func (b *SpaceBuilder) Add(params map[string][]float64) error {
	names := make(map[string]struct{}, len(params))
	for name, values := range params {
		name = NormalizeName(name)
		if name == "" {
			return fmt.Errorf("%w: empty parameter name", ErrInvalidInput)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidInput, name)
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: parameter %q has non-finite value %g", ErrInvalidInput, name, v)
			}
		}
		names[name] = struct{}{}
	}

	if b.names == nil {
		b.names = names
	} else if !sameNames(b.names, names) {
		return fmt.Errorf("%w: parameter names %v differ from %v", ErrShapeMismatch, sortedKeys(names), sortedKeys(b.names))
	}

	for name, values := range params {
		name = NormalizeName(name)
		b.values[name] = mergeValues(b.values[name], values)
	}
	return nil
}

// Build freezes the accumulated values into a ParamSpace.
func (b *SpaceBuilder) Build() *ParamSpace {
	p := &ParamSpace{
		names:  sortedKeys(b.names),
		values: make(map[string][]float64, len(b.values)),
	}
	for _, name := range p.names {
		p.values[name] = append([]float64(nil), b.values[name]...)
	}
	return p
}

// mergeValues appends extra to acc, sorts, and collapses runs of nearly
// equal values to their first element.
func mergeValues(acc, extra []float64) []float64 {
	all := append(append([]float64(nil), acc...), extra...)
	sort.Float64s(all)

	out := all[:0]
	for _, v := range all {
		if len(out) > 0 && NearlyEqual(out[len(out)-1], v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sameNames(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newParamSpace rebuilds a space from persisted values, re-checking the
// ordering invariants.
func newParamSpace(values map[string][]float64) (*ParamSpace, error) {
	p := &ParamSpace{
		names:  sortedKeys(values),
		values: make(map[string][]float64, len(values)),
	}
	for _, name := range p.names {
		vs := values[name]
		for i := 1; i < len(vs); i++ {
			if vs[i] <= vs[i-1] || NearlyEqual(vs[i], vs[i-1]) {
				return nil, fmt.Errorf("%w: values of %q are not strictly increasing", ErrInvalidInput, name)
			}
		}
		p.values[name] = append([]float64(nil), vs...)
	}
	return p, nil
}
