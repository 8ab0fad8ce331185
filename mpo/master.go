package mpo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-mpo/ndarray"
)

// Master is the merged view of a set of MPO files sharing one geometry and
// one energy mesh. It is immutable after Open and safe for concurrent use.
type Master struct {
	geometry string
	mesh     string
	zones    int
	groups   int

	sources   []*Source
	space     *ParamSpace
	isotopes  []string
	reactions []string
	valid     ValidSets

	opts Options
}

// Open reads every file, merges their parameter spaces and scans the valid
// sets of all isotopes. Files are merged in the given order.
func Open(ctx context.Context, files []string, geometry, mesh string, opts Options) (*Master, error) {
	if err := checkSelection(files, geometry, mesh); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	log := opts.Logger.WithValues("geometry", geometry, "energyMesh", mesh)

	sources, err := openSources(ctx, files, geometry, mesh, opts)
	if err != nil {
		return nil, err
	}
	m := &Master{
		geometry: strings.TrimSpace(geometry),
		mesh:     strings.TrimSpace(mesh),
		sources:  sources,
		opts:     opts,
	}
	if err := m.checkConsistency(); err != nil {
		return nil, err
	}

	builder := NewSpaceBuilder()
	for _, s := range sources {
		if err := builder.Add(s.ParamMap()); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	m.space = builder.Build()
	for _, s := range sources {
		if err := s.Bind(m.space); err != nil {
			return nil, err
		}
	}
	m.collectNames()
	log.Info("merged parameter space", "files", len(files), "shape", m.space.Shape(), "isotopes", len(m.isotopes))

	if m.valid, err = m.scan(ctx, log); err != nil {
		return nil, err
	}
	return m, nil
}

func checkSelection(files []string, geometry, mesh string) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: empty file list", ErrInvalidInput)
	}
	if strings.TrimSpace(geometry) == "" {
		return fmt.Errorf("%w: empty geometry", ErrInvalidInput)
	}
	if strings.TrimSpace(mesh) == "" {
		return fmt.Errorf("%w: empty energy mesh", ErrInvalidInput)
	}
	return nil
}

func openSources(ctx context.Context, files []string, geometry, mesh string, opts Options) ([]*Source, error) {
	sources := make([]*Source, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := OpenSource(name, geometry, mesh, opts.Opener)
			if err != nil {
				return err
			}
			sources[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func (m *Master) checkConsistency() error {
	first := m.sources[0]
	m.zones, m.groups = first.Zones(), first.Groups()
	for _, s := range m.sources[1:] {
		if s.Zones() != m.zones {
			return fmt.Errorf("%w: %s has %d zones, %s has %d", ErrShapeMismatch, s.Name(), s.Zones(), first.Name(), m.zones)
		}
		if s.Groups() != m.groups {
			return fmt.Errorf("%w: %s has %d groups, %s has %d", ErrShapeMismatch, s.Name(), s.Groups(), first.Name(), m.groups)
		}
	}
	return nil
}

func (m *Master) collectNames() {
	isotopes := make(map[string]struct{})
	reactions := make(map[string]struct{})
	for _, s := range m.sources {
		for _, iso := range s.Isotopes() {
			isotopes[iso] = struct{}{}
		}
		for _, r := range s.Reactions() {
			reactions[r] = struct{}{}
		}
	}
	m.isotopes = sortedKeys(isotopes)
	m.reactions = sortedKeys(reactions)
}

// scan runs the valid-set scan over every source. It completes before any
// output is allocated.
func (m *Master) scan(ctx context.Context, log logr.Logger) (ValidSets, error) {
	builders := make([]*ValidSetBuilder, len(m.sources))
	err := m.forEachSource(ctx, func(ctx context.Context, i int, s *Source) error {
		b := NewValidSetBuilder()
		if err := s.ScanValidSets(ctx, b, log); err != nil {
			return err
		}
		builders[i] = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	merged := NewValidSetBuilder()
	for _, b := range builders {
		merged.Merge(b)
	}
	valid := merged.Build()
	for _, iso := range m.isotopes {
		v := valid[iso]
		log.V(1).Info("valid set", "isotope", iso, "diffusionOrders", v.DiffusionOrders,
			"scatteringOrders", v.ScatteringOrders, "pairs", len(v.Pairs))
	}
	return valid, nil
}

// forEachSource runs fn for every source on at most Options.Workers
// goroutines and returns the first error.
func (m *Master) forEachSource(ctx context.Context, fn func(ctx context.Context, i int, s *Source) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i, s := range m.sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i, s)
		})
	}
	return g.Wait()
}

// Library maps isotope names to label strings to output arrays.
type Library map[string]map[string]*ndarray.Array

// BuildLibrary allocates one array per (isotope, label) of the request and
// fills it from every source. Axis 0 of each array is the energy group
// (length 1 for scattering transfers), axis 1 the zone, and the remaining
// axes the parameters not skipped, in ParamSpace order.
func (m *Master) BuildLibrary(ctx context.Context, req BuildRequest) (Library, *Report, error) {
	if err := m.checkRequest(req); err != nil {
		return nil, nil, err
	}
	retained, err := m.retainedAxes(req.SkipDims)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.NewString()
	log := m.opts.Logger.WithValues("run", runID)

	job := &extractJob{
		quantity: req.Quantity,
		retained: retained,
		targets:  make(map[string][]*target),
		stats:    &counters{},
		log:      log,
	}
	lib := m.allocate(req, retained, job)
	report := &Report{RunID: runID}
	for _, labels := range lib {
		report.Arrays += len(labels)
	}
	log.Info("allocated library", "isotopes", len(lib), "arrays", report.Arrays, "quantity", req.Quantity.String())

	perSource := make([]int64, len(m.sources))
	err = m.forEachSource(ctx, func(ctx context.Context, i int, s *Source) error {
		stats, err := s.extract(ctx, job)
		if err != nil {
			return err
		}
		job.stats.add(stats)
		perSource[i] = stats.writes.Load()
		log.Info("extracted source", "source", s.Name(), "writes", perSource[i], "misses", stats.misses.Load())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	report.SourceWrites = make(map[string]int64, len(m.sources))
	for i, s := range m.sources {
		report.SourceWrites[s.Name()] += perSource[i]
	}

	report.Writes = job.stats.writes.Load()
	report.Misses = job.stats.misses.Load()
	report.Overwrites = job.stats.overwrites.Load()
	log.Info("library built", "writes", report.Writes, "misses", report.Misses, "overwrites", report.Overwrites)
	return lib, report, nil
}

func (m *Master) checkRequest(req BuildRequest) error {
	if len(req.Isotopes) == 0 || len(req.Reactions) == 0 {
		return fmt.Errorf("%w: request needs at least one isotope and one reaction", ErrInvalidInput)
	}
	if req.Quantity < Micro || req.Quantity > ReactRate {
		return fmt.Errorf("%w: quantity %v", ErrInvalidInput, req.Quantity)
	}
	for _, iso := range req.Isotopes {
		if !containsSorted(m.isotopes, iso) {
			return fmt.Errorf("%w: isotope %q", ErrNotFound, iso)
		}
	}
	for _, r := range req.Reactions {
		if !containsSorted(m.reactions, r) {
			return fmt.Errorf("%w: reaction %q", ErrNotFound, r)
		}
	}
	return nil
}

// retainedAxes returns the global axes that are not skipped, in order.
func (m *Master) retainedAxes(skip []string) ([]int, error) {
	skipped := make(map[int]bool, len(skip))
	for _, name := range skip {
		axis, ok := m.space.Axis(name)
		if !ok {
			return nil, fmt.Errorf("%w: skipped parameter %q", ErrNotFound, name)
		}
		skipped[axis] = true
	}
	var retained []int
	for axis := 0; axis < m.space.Len(); axis++ {
		if !skipped[axis] {
			retained = append(retained, axis)
		}
	}
	return retained, nil
}

func (m *Master) allocate(req BuildRequest, retained []int, job *extractJob) Library {
	shape := make([]int, 2+len(retained))
	shape[0], shape[1] = m.groups, m.zones
	spaceShape := m.space.Shape()
	for i, axis := range retained {
		shape[2+i] = spaceShape[axis]
	}
	transferShape := append([]int{1}, shape[1:]...)

	lib := make(Library)
	for _, iso := range uniq(req.Isotopes) {
		lib[iso] = make(map[string]*ndarray.Array)
		for _, reaction := range uniq(req.Reactions) {
			for _, label := range Labels(reaction, m.valid[iso], req.MaxOrder) {
				var arr *ndarray.Array
				if label.Kind == Scattering {
					arr = ndarray.New(transferShape...)
					job.profile = true
				} else {
					arr = ndarray.New(shape...)
				}
				lib[iso][label.String()] = arr
				job.targets[iso] = append(job.targets[iso], &target{label: label, array: arr})
			}
		}
	}
	return lib
}

// Concentrations returns, for each isotope, a [burnup, zone] array of its
// concentration at every value of the burnup parameter.
func (m *Master) Concentrations(ctx context.Context, isotopes []string, burnup string) (map[string]*ndarray.Array, error) {
	for _, iso := range isotopes {
		if !containsSorted(m.isotopes, iso) {
			return nil, fmt.Errorf("%w: isotope %q", ErrNotFound, iso)
		}
	}
	axis, ok := m.space.Axis(burnup)
	if !ok {
		return nil, fmt.Errorf("%w: burnup parameter %q", ErrNotFound, burnup)
	}

	out := make(map[string]*ndarray.Array, len(isotopes))
	targets := make(map[string]*target, len(isotopes))
	for _, iso := range uniq(isotopes) {
		arr := ndarray.New(len(m.space.Values(burnup)), m.zones)
		out[iso] = arr
		targets[iso] = &target{label: Label{Reaction: "CONCENTRATION"}, array: arr}
	}

	err := m.forEachSource(ctx, func(ctx context.Context, _ int, s *Source) error {
		return s.concentrations(ctx, axis, targets)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Geometry returns the selected geometry name.
func (m *Master) Geometry() string { return m.geometry }

// EnergyMesh returns the selected energy mesh name.
func (m *Master) EnergyMesh() string { return m.mesh }

// Zones returns the number of zones.
func (m *Master) Zones() int { return m.zones }

// Groups returns the number of energy groups.
func (m *Master) Groups() int { return m.groups }

// Space returns the merged parameter space.
func (m *Master) Space() *ParamSpace { return m.space }

// Sources returns the sources in file order.
func (m *Master) Sources() []*Source { return append([]*Source(nil), m.sources...) }

// Files returns the source file names in merge order.
func (m *Master) Files() []string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return names
}

// Isotopes returns the sorted union of the isotopes of every source.
func (m *Master) Isotopes() []string { return append([]string(nil), m.isotopes...) }

// Reactions returns the sorted union of the reactions of every source.
func (m *Master) Reactions() []string { return append([]string(nil), m.reactions...) }

// ValidSet returns the valid set of an isotope.
func (m *Master) ValidSet(isotope string) (ValidSet, bool) {
	v, ok := m.valid[isotope]
	return v, ok
}

// String summarizes the merged state.
func (m *Master) String() string {
	var b strings.Builder
	b.WriteString("<Master:\n")
	fmt.Fprintf(&b, "  geometry: %s\n", m.geometry)
	fmt.Fprintf(&b, "  energy mesh: %s\n", m.mesh)
	fmt.Fprintf(&b, "  zones: %d\n", m.zones)
	fmt.Fprintf(&b, "  groups: %d\n", m.groups)
	b.WriteString("  files:\n")
	for _, s := range m.sources {
		fmt.Fprintf(&b, "    %s\n", s.Name())
	}
	b.WriteString("  parameters:\n")
	for _, line := range strings.Split(strings.TrimSuffix(m.space.String(), "\n"), "\n") {
		if line != "" {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	fmt.Fprintf(&b, "  isotopes (%d): %v\n", len(m.isotopes), m.isotopes)
	fmt.Fprintf(&b, "  reactions (%d): %v\n", len(m.reactions), m.reactions)
	b.WriteString("  valid sets:\n")
	for _, iso := range sortedKeys(m.valid) {
		v := m.valid[iso]
		fmt.Fprintf(&b, "    %s: diffusion=%d scattering=%d pairs=%v\n", iso, v.DiffusionOrders, v.ScatteringOrders, v.Pairs)
	}
	b.WriteString(">")
	return b.String()
}

func containsSorted(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func uniq(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
