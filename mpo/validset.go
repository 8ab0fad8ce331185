package mpo

import (
	"fmt"
	"sort"
)

// Pair is a scattering transfer from a departure to an arrival energy group.
type Pair struct {
	Departure int `json:"departure"`
	Arrival   int `json:"arrival"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%d-%d", p.Departure, p.Arrival)
}

func (p Pair) less(q Pair) bool {
	if p.Departure != q.Departure {
		return p.Departure < q.Departure
	}
	return p.Arrival < q.Arrival
}

// ValidSet records, for one isotope, how many diffusion and scattering
// anisotropy orders were seen and which transfer pairs are legal. Pairs are
// sorted by departure then arrival group.
type ValidSet struct {
	DiffusionOrders  int    `json:"diffusionOrders"`
	ScatteringOrders int    `json:"scatteringOrders"`
	Pairs            []Pair `json:"pairs,omitempty"`
}

// HasPair reports whether p is a legal transfer.
func (v ValidSet) HasPair(p Pair) bool {
	i := sort.Search(len(v.Pairs), func(i int) bool { return !v.Pairs[i].less(p) })
	return i < len(v.Pairs) && v.Pairs[i] == p
}

// ValidSets maps isotope names to their valid sets.
type ValidSets map[string]ValidSet

type validAcc struct {
	diffusion  int
	scattering int
	pairs      map[Pair]struct{}
}

// ValidSetBuilder folds per-zone observations into valid sets: orders by
// maximum, pairs by union. The result does not depend on the order in which
// observations arrive. A builder is not safe for concurrent use; give each
// worker its own and Merge them.
type ValidSetBuilder struct {
	sets map[string]*validAcc
}

// NewValidSetBuilder returns an empty builder.
func NewValidSetBuilder() *ValidSetBuilder {
	return &ValidSetBuilder{sets: make(map[string]*validAcc)}
}

func (b *ValidSetBuilder) acc(isotope string) *validAcc {
	a, ok := b.sets[isotope]
	if !ok {
		a = &validAcc{pairs: make(map[Pair]struct{})}
		b.sets[isotope] = a
	}
	return a
}

// Declare makes sure isotope has an entry, even if nothing is observed.
func (b *ValidSetBuilder) Declare(isotope string) {
	b.acc(isotope)
}

// ObserveOrders folds the order counts found for isotope in one zone.
func (b *ValidSetBuilder) ObserveOrders(isotope string, diffusion, scattering int) {
	a := b.acc(isotope)
	if diffusion > a.diffusion {
		a.diffusion = diffusion
	}
	if scattering > a.scattering {
		a.scattering = scattering
	}
}

// AddPair records a legal transfer for isotope.
func (b *ValidSetBuilder) AddPair(isotope string, p Pair) {
	b.acc(isotope).pairs[p] = struct{}{}
}

// Merge folds everything other has seen into b.
func (b *ValidSetBuilder) Merge(other *ValidSetBuilder) {
	for iso, o := range other.sets {
		b.ObserveOrders(iso, o.diffusion, o.scattering)
		a := b.sets[iso]
		for p := range o.pairs {
			a.pairs[p] = struct{}{}
		}
	}
}

// Build freezes the builder.
func (b *ValidSetBuilder) Build() ValidSets {
	out := make(ValidSets, len(b.sets))
	for iso, a := range b.sets {
		v := ValidSet{DiffusionOrders: a.diffusion, ScatteringOrders: a.scattering}
		for p := range a.pairs {
			v.Pairs = append(v.Pairs, p)
		}
		sort.Slice(v.Pairs, func(i, j int) bool { return v.Pairs[i].less(v.Pairs[j]) })
		out[iso] = v
	}
	return out
}

// TransferProfile is one isotope's scattering layout in a zone: for each
// departure group its first arrival group and the offsets of its arrival
// runs. Offsets has one more entry than FirstArrival.
type TransferProfile struct {
	FirstArrival []int
	Offsets      []int
}

// DecodeTransferProfile reads the block of a transfer profile starting at
// base for a mesh of groups energy groups.
func DecodeTransferProfile(data []int64, base, groups int) (TransferProfile, error) {
	end := base + 2*groups + 1
	if base < 0 || end > len(data) {
		return TransferProfile{}, fmt.Errorf("%w: transfer profile [%d, %d) outside %d entries", ErrShapeMismatch, base, end, len(data))
	}
	tp := TransferProfile{
		FirstArrival: make([]int, groups),
		Offsets:      make([]int, groups+1),
	}
	for g := 0; g < groups; g++ {
		tp.FirstArrival[g] = int(data[base+g])
	}
	for g := 0; g <= groups; g++ {
		tp.Offsets[g] = int(data[base+groups+g])
	}
	for g := 1; g <= groups; g++ {
		if tp.Offsets[g] < tp.Offsets[g-1] {
			return TransferProfile{}, fmt.Errorf("%w: transfer profile offsets decrease at group %d", ErrShapeMismatch, g)
		}
	}
	return tp, nil
}

// Valid reports whether arrival is reachable from departure.
func (tp TransferProfile) Valid(p Pair) bool {
	d := p.Departure
	if d < 0 || d >= len(tp.FirstArrival) {
		return false
	}
	rel := p.Arrival - tp.FirstArrival[d]
	return rel >= 0 && rel < tp.Offsets[d+1]-tp.Offsets[d]
}

// Pairs lists every valid pair, sorted.
func (tp TransferProfile) Pairs() []Pair {
	groups := len(tp.FirstArrival)
	var pairs []Pair
	for d := 0; d < groups; d++ {
		for a := 0; a < groups; a++ {
			if p := (Pair{Departure: d, Arrival: a}); tp.Valid(p) {
				pairs = append(pairs, p)
			}
		}
	}
	return pairs
}

// Stride returns the number of cross-section entries of one order.
func (tp TransferProfile) Stride() int {
	return tp.Offsets[len(tp.Offsets)-1] - tp.Offsets[0]
}

// Offset returns the position of p within one order.
func (tp TransferProfile) Offset(p Pair) int {
	return tp.Offsets[p.Departure] - tp.Offsets[0] + p.Arrival - tp.FirstArrival[p.Departure]
}
