// Package mpotest builds synthetic MPO files for tests and demos, either in
// memory or on disk through the hdf5 writer.
package mpotest

import (
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-mpo/mpo"
)

// Orders are the anisotropy order counts of one isotope.
type Orders struct {
	Diffusion  int
	Scattering int
}

// Profile is a transfer layout: departure group d reaches Counts[d]
// consecutive arrival groups starting at FirstArrival[d].
type Profile struct {
	FirstArrival []int
	Counts       []int
}

// FullProfile lets every group scatter into every group.
func FullProfile(groups int) *Profile {
	p := &Profile{FirstArrival: make([]int, groups), Counts: make([]int, groups)}
	for d := range p.Counts {
		p.Counts[d] = groups
	}
	return p
}

// Pairs lists the transfers of the profile, sorted.
func (p *Profile) Pairs() []mpo.Pair {
	var pairs []mpo.Pair
	for d, n := range p.Counts {
		for a := p.FirstArrival[d]; a < p.FirstArrival[d]+n; a++ {
			pairs = append(pairs, mpo.Pair{Departure: d, Arrival: a})
		}
	}
	return pairs
}

// encode returns the profile block: the first arrivals, then the offsets
// of each departure run counted from start.
func (p *Profile) encode(start int) []int64 {
	groups := len(p.Counts)
	out := make([]int64, 0, 2*groups+1)
	for _, a := range p.FirstArrival {
		out = append(out, int64(a))
	}
	off := start
	out = append(out, int64(off))
	for _, c := range p.Counts {
		off += c
		out = append(out, int64(off))
	}
	return out
}

// Point addresses one generated cross-section value.
type Point struct {
	State    int
	Zone     int
	Isotope  string
	Reaction string
	Order    int
	Group    int
	Pair     mpo.Pair
}

// Fixture describes a synthetic MPO file. Values are generated from the
// state point, zone, isotope and reaction, so a test can recompute any
// expected cell.
type Fixture struct {
	Geometry   string
	EnergyMesh string
	Zones      int
	Groups     int
	// Params are the state parameters in local order.
	Params []mpo.Param
	// States holds the PARAMVALUEORD slots of each state point.
	States [][]int
	// Isotopes is the isotope name table.
	Isotopes []string
	// Reactions are the recorded reactions, in output order.
	Reactions []string
	// Blocks are the isotope blocks. Nil means one block of every isotope.
	Blocks [][]string
	// ZoneBlocks gives the block of each zone. Nil means block 0 everywhere.
	ZoneBlocks []int
	// Orders per isotope. Isotopes not listed have no anisotropy orders.
	Orders map[string]Orders
	// Profile is the transfer layout of every isotope with scattering
	// orders. Nil disables scattering data.
	Profile *Profile
	// Missing lists, per isotope, reactions recorded without data.
	Missing map[string][]string
	// Offset is added to every generated value to tell sources apart.
	Offset float64
}

// New returns a two-zone, two-group fixture sampling the full grid of the
// given parameters, with U235 and U238 and a full transfer profile.
func New(params ...mpo.Param) *Fixture {
	return &Fixture{
		Geometry:   "GEOM",
		EnergyMesh: "MESH2",
		Zones:      2,
		Groups:     2,
		Params:     params,
		States:     Grid(params),
		Isotopes:   []string{"U235", "U238"},
		Reactions:  []string{"Total", "Absorption", mpo.DiffusionReaction, mpo.ScatteringReaction},
		Orders: map[string]Orders{
			"U235": {Diffusion: 2, Scattering: 2},
			"U238": {Diffusion: 1, Scattering: 1},
		},
		Profile: FullProfile(2),
	}
}

// Grid returns the slots of every combination of parameter values, the
// last parameter varying fastest.
func Grid(params []mpo.Param) [][]int {
	states := [][]int{{}}
	for _, p := range params {
		var next [][]int
		for _, s := range states {
			for slot := range p.Values {
				next = append(next, append(append([]int(nil), s...), slot))
			}
		}
		states = next
	}
	return states
}

func (f *Fixture) blocks() [][]string {
	if f.Blocks == nil {
		return [][]string{f.Isotopes}
	}
	return f.Blocks
}

// Block returns the isotopes of the block a zone uses.
func (f *Fixture) Block(zone int) []string {
	return f.blocks()[f.zoneBlock(zone)]
}

func (f *Fixture) zoneBlock(zone int) int {
	if f.ZoneBlocks == nil {
		return 0
	}
	return f.ZoneBlocks[zone]
}

func (f *Fixture) index(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func (f *Fixture) missing(isotope, reaction string) bool {
	return f.index(f.Missing[isotope], reaction) >= 0
}

// Value is the cross section generated at p.
func (f *Fixture) Value(p Point) float64 {
	v := p.State
	for _, x := range []int{p.Zone, f.index(f.Isotopes, p.Isotope), f.index(f.Reactions, p.Reaction), p.Order, p.Group, p.Pair.Departure, p.Pair.Arrival} {
		v = v*16 + x
	}
	return float64(v+1) + f.Offset
}

// Concentration is the concentration generated for an isotope.
func (f *Fixture) Concentration(state, zone int, isotope string) float64 {
	return 1e-3*float64(f.index(f.Isotopes, isotope)+1) + 1e-4*float64(state) + 1e-5*float64(zone) + f.Offset
}

// Flux is the zone flux generated for a group.
func (f *Fixture) Flux(state, zone, group int) float64 {
	return 1 + float64(group) + 0.25*float64(zone) + 0.125*float64(state) + f.Offset
}

// validate checks the fixture is self-consistent.
func (f *Fixture) validate() error {
	if f.Zones <= 0 || f.Groups <= 0 {
		return fmt.Errorf("fixture needs zones and groups, have %d and %d", f.Zones, f.Groups)
	}
	if f.ZoneBlocks != nil && len(f.ZoneBlocks) != f.Zones {
		return fmt.Errorf("%d zone blocks for %d zones", len(f.ZoneBlocks), f.Zones)
	}
	for _, b := range f.ZoneBlocks {
		if b < 0 || b >= len(f.blocks()) {
			return fmt.Errorf("zone block %d outside %d blocks", b, len(f.blocks()))
		}
	}
	for _, block := range f.blocks() {
		for _, iso := range block {
			if f.index(f.Isotopes, iso) < 0 {
				return fmt.Errorf("block isotope %s not in the isotope table", iso)
			}
		}
	}
	for _, s := range f.States {
		if len(s) != len(f.Params) {
			return fmt.Errorf("state %v for %d parameters", s, len(f.Params))
		}
	}
	if f.Profile != nil && (len(f.Profile.Counts) != f.Groups || len(f.Profile.FirstArrival) != f.Groups) {
		return fmt.Errorf("profile does not cover %d groups", f.Groups)
	}
	return nil
}

// blockLayout is the cross-section layout shared by every zone of a block.
type blockLayout struct {
	addr    []int64 // [isotope, reaction slot], padded later
	profile []int64
	entries []Point // one per CROSSECTION entry, State and Zone unset
}

func (f *Fixture) layout(block []string) blockLayout {
	var l blockLayout
	nReac := len(f.Reactions)
	for _, iso := range block {
		orders := f.Orders[iso]
		row := make([]int64, nReac+3)
		for r, reaction := range f.Reactions {
			row[r] = -1
			if f.missing(iso, reaction) {
				continue
			}
			base := int64(len(l.entries))
			switch mpo.KindOf(reaction) {
			case mpo.Plain:
				for g := 0; g < f.Groups; g++ {
					l.entries = append(l.entries, Point{Isotope: iso, Reaction: reaction, Group: g})
				}
			case mpo.Diffusion:
				if orders.Diffusion <= 0 {
					continue
				}
				for o := 0; o < orders.Diffusion; o++ {
					for g := 0; g < f.Groups; g++ {
						l.entries = append(l.entries, Point{Isotope: iso, Reaction: reaction, Order: o, Group: g})
					}
				}
			case mpo.Scattering:
				if orders.Scattering <= 0 || f.Profile == nil {
					continue
				}
				for o := 0; o < orders.Scattering; o++ {
					for _, p := range f.Profile.Pairs() {
						l.entries = append(l.entries, Point{Isotope: iso, Reaction: reaction, Order: o, Pair: p})
					}
				}
			}
			row[r] = base
		}
		row[nReac] = int64(orders.Diffusion)
		row[nReac+1] = int64(orders.Scattering)
		row[nReac+2] = -1
		if f.Profile != nil && orders.Scattering > 0 {
			row[nReac+2] = int64(len(l.profile))
			l.profile = append(l.profile, f.Profile.encode(len(l.profile))...)
		}
		l.addr = append(l.addr, row...)
	}
	return l
}

// sink receives the datasets of a fixture.
type sink interface {
	strings(path string, values []string) error
	ints(path string, values []int64, shape ...int) error
	floats(path string, values []float64) error
}

func (f *Fixture) write(s sink) error {
	if err := f.validate(); err != nil {
		return err
	}

	// The selected geometry sits second so name lookup is exercised.
	if err := s.strings("geometry/GEOMETRY_NAME", []string{"OTHER", f.Geometry}); err != nil {
		return err
	}
	if err := s.ints("geometry/geometry_0/NZONE", []int64{1}); err != nil {
		return err
	}
	if err := s.ints("geometry/geometry_1/NZONE", []int64{int64(f.Zones)}); err != nil {
		return err
	}
	if err := s.strings("energymesh/ENERGYMESH_NAME", []string{f.EnergyMesh}); err != nil {
		return err
	}
	if err := s.ints("energymesh/energymesh_0/NG", []int64{int64(f.Groups)}); err != nil {
		return err
	}
	energies := make([]float64, f.Groups+1)
	for i := range energies {
		energies[i] = 2e7 / float64(int(1)<<(4*i))
	}
	if err := s.floats("energymesh/energymesh_0/ENERGIES", energies); err != nil {
		return err
	}

	if err := s.strings("contents/isotopes/ISOTOPENAME", f.Isotopes); err != nil {
		return err
	}
	// Reaction names are stored reversed and reached through info/REACTION.
	names := make([]string, len(f.Reactions))
	reacIdx := make([]int64, len(f.Reactions))
	for i, r := range f.Reactions {
		j := len(f.Reactions) - 1 - i
		names[j] = r
		reacIdx[i] = int64(j)
	}
	if err := s.strings("contents/reactions/REACTIONAME", names); err != nil {
		return err
	}

	paramNames := make([]string, len(f.Params))
	for i, p := range f.Params {
		paramNames[i] = p.Name
		if err := s.floats(fmt.Sprintf("parameters/values/PARAM_%d", i), p.Values); err != nil {
			return err
		}
	}
	if err := s.strings("parameters/info/PARAMNAME", paramNames); err != nil {
		return err
	}

	if err := s.ints("output/OUPUTID", []int64{-1, 0}, 2, 1); err != nil {
		return err
	}
	return f.writeOutput(s, "output/output_0", reacIdx)
}

func (f *Fixture) writeOutput(s sink, out string, reacIdx []int64) error {
	blocks := f.blocks()
	var isoIdx []int64
	addrIso := []int64{0}
	maxIso := 0
	for _, block := range blocks {
		for _, iso := range block {
			isoIdx = append(isoIdx, int64(f.index(f.Isotopes, iso)))
		}
		addrIso = append(addrIso, int64(len(isoIdx)))
		maxIso = max(maxIso, len(block))
	}
	if err := s.ints(out+"/info/ISOTOPE", isoIdx); err != nil {
		return err
	}
	if err := s.ints(out+"/info/ADDRISO", addrIso); err != nil {
		return err
	}
	if err := s.ints(out+"/info/REACTION", reacIdx); err != nil {
		return err
	}

	slots := len(f.Reactions) + 3
	layouts := make([]blockLayout, len(blocks))
	addrXS := make([]int64, 0, len(blocks)*maxIso*slots)
	for b, block := range blocks {
		layouts[b] = f.layout(block)
		addrXS = append(addrXS, layouts[b].addr...)
		for i := len(block); i < maxIso; i++ {
			for j := 0; j < slots; j++ {
				addrXS = append(addrXS, -1)
			}
		}
	}
	if err := s.ints(out+"/info/ADDRXS", addrXS, len(blocks), maxIso, slots); err != nil {
		return err
	}

	for k, slotsOf := range f.States {
		state := fmt.Sprintf("%s/statept_%d", out, k)
		ord := make([]int64, len(slotsOf))
		for i, v := range slotsOf {
			ord[i] = int64(v)
		}
		if err := s.ints(state+"/PARAMVALUEORD", ord); err != nil {
			return err
		}
		for z := 0; z < f.Zones; z++ {
			if err := f.writeZone(s, fmt.Sprintf("%s/zone_%d", state, z), k, z, layouts[f.zoneBlock(z)]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Fixture) writeZone(s sink, dir string, state, zone int, l blockLayout) error {
	b := int64(f.zoneBlock(zone))
	if err := s.ints(dir+"/ADDRZX", []int64{b}); err != nil {
		return err
	}
	if err := s.ints(dir+"/ADDRZI", []int64{b}); err != nil {
		return err
	}

	block := f.Block(zone)
	conc := make([]float64, len(block))
	for i, iso := range block {
		conc[i] = f.Concentration(state, zone, iso)
	}
	if err := s.floats(dir+"/CONCENTRATION", conc); err != nil {
		return err
	}
	flux := make([]float64, f.Groups)
	for g := range flux {
		flux[g] = f.Flux(state, zone, g)
	}
	if err := s.floats(dir+"/ZONEFLUX", flux); err != nil {
		return err
	}

	xs := make([]float64, len(l.entries))
	for i, p := range l.entries {
		p.State, p.Zone = state, zone
		xs[i] = f.Value(p)
	}
	if len(xs) == 0 {
		xs = []float64{0}
	}
	if err := s.floats(dir+"/CROSSECTION", xs); err != nil {
		return err
	}
	if len(l.profile) > 0 {
		return s.ints(dir+"/TRANSPROFILE", l.profile)
	}
	return nil
}

// BlockIsotopes lists every isotope that appears in a block, sorted.
func (f *Fixture) BlockIsotopes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, block := range f.blocks() {
		for _, iso := range block {
			if !seen[iso] {
				seen[iso] = true
				out = append(out, iso)
			}
		}
	}
	sort.Strings(out)
	return out
}
