package mpo

import (
	"fmt"
	"strings"
)

// MPO dataset paths.
const (
	geometryNamesPath = "geometry/GEOMETRY_NAME"
	meshNamesPath     = "energymesh/ENERGYMESH_NAME"
	isotopeNamesPath  = "contents/isotopes/ISOTOPENAME"
	reactionNamesPath = "contents/reactions/REACTIONAME"
	paramNamesPath    = "parameters/info/PARAMNAME"
	outputIDPath      = "output/OUPUTID"
)

func geometryPath(id int) string    { return fmt.Sprintf("geometry/geometry_%d", id) }
func meshPath(id int) string        { return fmt.Sprintf("energymesh/energymesh_%d", id) }
func paramValuesPath(i int) string  { return fmt.Sprintf("parameters/values/PARAM_%d", i) }
func outputPath(id int) string      { return fmt.Sprintf("output/output_%d", id) }
func zoneName(z int) string         { return fmt.Sprintf("zone_%d", z) }
func joinPath(elem ...string) string { return strings.Join(elem, "/") }

// Param is one state parameter of a source, in local enumeration order.
type Param struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Source is the metadata of one MPO file restricted to a geometry and an
// energy mesh. It holds no open handle: every scan or extraction opens its
// own Store through the Opener.
type Source struct {
	name   string
	opener Opener

	geometry   string
	mesh       string
	zones      int
	groups     int
	energies   []float64
	outputPath string

	params []Param

	// Isotope tables are scoped to isotope blocks: a zone's ADDRZI selects
	// the block, and an isotope's position inside the block is its index in
	// ADDRXS and CONCENTRATION.
	blocks   []map[string]int
	isotopes []string

	reactions     map[string]int
	reactionNames []string

	index *IndexMap
}

// OpenSource reads the metadata of an MPO file for the given geometry and
// energy mesh.
func OpenSource(name, geometry, mesh string, opener Opener) (*Source, error) {
	if opener == nil {
		opener = OpenHDF5
	}
	st, err := opener(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer st.Close()

	s := &Source{
		name:     name,
		opener:   opener,
		geometry: strings.TrimSpace(geometry),
		mesh:     strings.TrimSpace(mesh),
	}
	if err := s.load(st); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (s *Source) load(st Store) error {
	geomID, err := lookupName(st, geometryNamesPath, s.geometry, "geometry")
	if err != nil {
		return err
	}
	if s.zones, err = readScalar(st, joinPath(geometryPath(geomID), "NZONE")); err != nil {
		return err
	}

	meshID, err := lookupName(st, meshNamesPath, s.mesh, "energy mesh")
	if err != nil {
		return err
	}
	if s.groups, err = readScalar(st, joinPath(meshPath(meshID), "NG")); err != nil {
		return err
	}
	if energies, err := st.ReadFloats(joinPath(meshPath(meshID), "ENERGIES")); err == nil {
		s.energies = energies
	}

	ids, shape, err := st.ReadInts(outputIDPath)
	if err != nil {
		return err
	}
	if len(shape) != 2 || geomID >= shape[0] || meshID >= shape[1] {
		return fmt.Errorf("%w: %s has shape %v", ErrShapeMismatch, outputIDPath, shape)
	}
	outID := ids[geomID*shape[1]+meshID]
	if outID < 0 {
		return fmt.Errorf("%w: no output recorded for geometry %q and energy mesh %q", ErrNotFound, s.geometry, s.mesh)
	}
	s.outputPath = outputPath(int(outID))

	if err := s.loadParams(st); err != nil {
		return err
	}
	if err := s.loadIsotopes(st); err != nil {
		return err
	}
	return s.loadReactions(st)
}

func (s *Source) loadParams(st Store) error {
	names, err := st.ReadStrings(paramNamesPath)
	if err != nil {
		return err
	}
	s.params = make([]Param, len(names))
	for i, name := range names {
		values, err := st.ReadFloats(paramValuesPath(i))
		if err != nil {
			return err
		}
		s.params[i] = Param{Name: NormalizeName(name), Values: values}
	}
	return nil
}

func (s *Source) loadIsotopes(st Store) error {
	names, err := st.ReadStrings(isotopeNamesPath)
	if err != nil {
		return err
	}
	idx, _, err := st.ReadInts(joinPath(s.outputPath, "info/ISOTOPE"))
	if err != nil {
		return err
	}
	addr, _, err := st.ReadInts(joinPath(s.outputPath, "info/ADDRISO"))
	if err != nil {
		// Files without isotope blocks share one table across zones.
		addr = []int64{0, int64(len(idx))}
	}
	if len(addr) < 2 {
		return fmt.Errorf("%w: ADDRISO has %d entries", ErrShapeMismatch, len(addr))
	}

	seen := make(map[string]struct{})
	s.blocks = make([]map[string]int, len(addr)-1)
	for b := range s.blocks {
		lo, hi := int(addr[b]), int(addr[b+1])
		if lo < 0 || hi < lo || hi > len(idx) {
			return fmt.Errorf("%w: isotope block %d spans [%d, %d) of %d", ErrShapeMismatch, b, lo, hi, len(idx))
		}
		block := make(map[string]int, hi-lo)
		for i := lo; i < hi; i++ {
			n := int(idx[i])
			if n < 0 || n >= len(names) {
				return fmt.Errorf("%w: isotope index %d of %d", ErrShapeMismatch, n, len(names))
			}
			block[names[n]] = i - lo
			seen[names[n]] = struct{}{}
		}
		s.blocks[b] = block
	}
	s.isotopes = sortedKeys(seen)
	return nil
}

func (s *Source) loadReactions(st Store) error {
	names, err := st.ReadStrings(reactionNamesPath)
	if err != nil {
		return err
	}
	idx, _, err := st.ReadInts(joinPath(s.outputPath, "info/REACTION"))
	if err != nil {
		return err
	}
	s.reactions = make(map[string]int, len(idx))
	for i, n := range idx {
		if n < 0 || int(n) >= len(names) {
			return fmt.Errorf("%w: reaction index %d of %d", ErrShapeMismatch, n, len(names))
		}
		s.reactions[names[n]] = i
	}
	s.reactionNames = sortedKeys(s.reactions)
	return nil
}

func lookupName(st Store, path, want, what string) (int, error) {
	if want == "" {
		return 0, fmt.Errorf("%w: empty %s name", ErrInvalidInput, what)
	}
	names, err := st.ReadStrings(path)
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if name == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q (have %v)", ErrNotFound, what, want, names)
}

func readScalar(st Store, path string) (int, error) {
	values, _, err := st.ReadInts(path)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrShapeMismatch, path)
	}
	return int(values[0]), nil
}

// Name returns the file name of the source.
func (s *Source) Name() string { return s.name }

// Zones returns the number of zones of the selected geometry.
func (s *Source) Zones() int { return s.zones }

// Groups returns the number of energy groups of the selected mesh.
func (s *Source) Groups() int { return s.groups }

// Energies returns the group boundaries of the selected mesh, if recorded.
func (s *Source) Energies() []float64 { return append([]float64(nil), s.energies...) }

// Params returns the state parameters in local order.
func (s *Source) Params() []Param {
	out := make([]Param, len(s.params))
	for i, p := range s.params {
		out[i] = Param{Name: p.Name, Values: append([]float64(nil), p.Values...)}
	}
	return out
}

// ParamMap returns the state parameters keyed by name.
func (s *Source) ParamMap() map[string][]float64 {
	m := make(map[string][]float64, len(s.params))
	for _, p := range s.params {
		m[p.Name] = append([]float64(nil), p.Values...)
	}
	return m
}

// Isotopes returns the sorted names of isotopes present in any block.
func (s *Source) Isotopes() []string { return append([]string(nil), s.isotopes...) }

// Reactions returns the sorted names of the recorded reactions.
func (s *Source) Reactions() []string { return append([]string(nil), s.reactionNames...) }

// HasIsotope reports whether the isotope appears in any block.
func (s *Source) HasIsotope(isotope string) bool {
	for _, b := range s.blocks {
		if _, ok := b[isotope]; ok {
			return true
		}
	}
	return false
}

// HasReaction reports whether the reaction is recorded.
func (s *Source) HasReaction(reaction string) bool {
	_, ok := s.reactions[reaction]
	return ok
}

// IndexMap returns the map built by Bind, or nil.
func (s *Source) IndexMap() *IndexMap { return s.index }

// Bind builds the source's IndexMap against the merged space.
func (s *Source) Bind(space *ParamSpace) error {
	names := make([]string, len(s.params))
	values := make([][]float64, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
		values[i] = p.Values
	}
	m, err := NewIndexMap(space, names, values)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	s.index = m
	return nil
}

// String summarizes the source.
func (s *Source) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Source %s:\n", s.name)
	fmt.Fprintf(&b, "  geometry: %s (%d zones)\n", s.geometry, s.zones)
	fmt.Fprintf(&b, "  energy mesh: %s (%d groups)\n", s.mesh, s.groups)
	fmt.Fprintf(&b, "  output: %s\n", s.outputPath)
	for _, p := range s.params {
		fmt.Fprintf(&b, "  %s(%d): %v\n", p.Name, len(p.Values), p.Values)
	}
	fmt.Fprintf(&b, "  isotopes (%d): %v\n", len(s.isotopes), s.isotopes)
	fmt.Fprintf(&b, "  reactions (%d): %v\n", len(s.reactionNames), s.reactionNames)
	b.WriteString(">")
	return b.String()
}
