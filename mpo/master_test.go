package mpo_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/robert-malhotra/go-mpo/mpo"
	"github.com/robert-malhotra/go-mpo/mpo/mpotest"
	"github.com/robert-malhotra/go-mpo/ndarray"
)

// openFixtures opens the fixtures as an in-memory master, merging them in
// the order of names.
func openFixtures(t *testing.T, workers int, names []string, fixtures map[string]*mpotest.Fixture) *mpo.Master {
	t.Helper()
	opener, err := mpotest.Opener(fixtures)
	if err != nil {
		t.Fatalf("rendering fixtures: %v", err)
	}
	m, err := mpo.Open(context.Background(), names, "GEOM", "MESH2", mpo.Options{Workers: workers, Opener: opener})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return m
}

func at(t *testing.T, arr *ndarray.Array, idx ...int) float64 {
	t.Helper()
	v, err := arr.At(idx...)
	if err != nil {
		t.Fatalf("At(%v) failed: %v", idx, err)
	}
	return v
}

func param(name string, values ...float64) mpo.Param {
	return mpo.Param{Name: name, Values: values}
}

func TestTwoSourcesMergeAndSparseExtraction(t *testing.T) {
	a := mpotest.New(param("p", 1, 2))
	b := mpotest.New(param("p", 2, 3))
	b.Offset = 1000
	b.Missing = map[string][]string{"U235": {"Absorption"}}

	m := openFixtures(t, 2, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	if got := m.Space().Values("p"); !reflect.DeepEqual(got, []float64{1, 2, 3}) {
		t.Fatalf("merged p = %v", got)
	}

	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Absorption"},
		Quantity:  mpo.Micro,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	arr := lib["U235"]["Absorption"]
	if arr == nil {
		t.Fatalf("missing array, have %v", lib.Labels("U235"))
	}
	if want := []int{2, 2, 3}; !reflect.DeepEqual(arr.Shape(), want) {
		t.Fatalf("shape = %v, want %v", arr.Shape(), want)
	}

	for g := 0; g < 2; g++ {
		for z := 0; z < 2; z++ {
			for slot := 0; slot < 2; slot++ {
				want := a.Value(mpotest.Point{State: slot, Zone: z, Isotope: "U235", Reaction: "Absorption", Group: g})
				if got := at(t, arr, g, z, slot); got != want {
					t.Errorf("[%d %d %d] = %g, want %g", g, z, slot, got, want)
				}
			}
			if got := at(t, arr, g, z, 2); got != 0 {
				t.Errorf("[%d %d 2] = %g, want untouched", g, z, got)
			}
		}
	}

	if report.Writes != 8 || report.Misses != 4 || report.Overwrites != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Arrays != 1 || report.RunID == "" {
		t.Errorf("report = %+v", report)
	}
	if want := map[string]int64{"a.hdf": 8, "b.hdf": 0}; !reflect.DeepEqual(report.SourceWrites, want) {
		t.Errorf("source writes = %v, want %v", report.SourceWrites, want)
	}
}

func TestOverlapLastWriterWins(t *testing.T) {
	a := mpotest.New(param("p", 1, 2))
	b := mpotest.New(param("p", 2, 3))
	b.Offset = 1000

	// One worker processes the sources in file order.
	m := openFixtures(t, 1, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U238"},
		Reactions: []string{"Total"},
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	arr := lib["U238"]["Total"]

	if report.Overwrites != 4 || report.Writes != 16 {
		t.Errorf("report = %+v", report)
	}
	for g := 0; g < 2; g++ {
		for z := 0; z < 2; z++ {
			want := b.Value(mpotest.Point{State: 0, Zone: z, Isotope: "U238", Reaction: "Total", Group: g})
			if got := at(t, arr, g, z, 1); got != want {
				t.Errorf("[%d %d 1] = %g, want the second source's %g", g, z, got, want)
			}
		}
	}
}

func TestDisjointWritesKeepBothSources(t *testing.T) {
	a := mpotest.New(param("burnup", 0), param("tf", 550))
	b := mpotest.New(param("burnup", 100), param("tf", 900))
	b.Offset = 1000

	m := openFixtures(t, 4, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Total"},
		Quantity:  mpo.Macro,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	arr := lib["U235"]["Total"]
	if want := []int{2, 2, 2, 2}; !reflect.DeepEqual(arr.Shape(), want) {
		t.Fatalf("shape = %v, want %v", arr.Shape(), want)
	}
	if report.Overwrites != 0 {
		t.Errorf("overwrites = %d", report.Overwrites)
	}

	for _, src := range []struct {
		f   *mpotest.Fixture
		idx int
	}{{a, 0}, {b, 1}} {
		for g := 0; g < 2; g++ {
			for z := 0; z < 2; z++ {
				xs := src.f.Value(mpotest.Point{State: 0, Zone: z, Isotope: "U235", Reaction: "Total", Group: g})
				want := src.f.Concentration(0, z, "U235") * xs
				if got := at(t, arr, g, z, src.idx, src.idx); got != want {
					t.Errorf("source %d [%d %d]: got %g, want %g", src.idx, g, z, got, want)
				}
			}
		}
	}
	if got := arr.CountNonZero(); got != 8 {
		t.Errorf("non-zero cells = %d, want 8", got)
	}
	// Sources run concurrently; each count covers only its own writes.
	if want := map[string]int64{"a.hdf": 4, "b.hdf": 4}; !reflect.DeepEqual(report.SourceWrites, want) {
		t.Errorf("source writes = %v, want %v", report.SourceWrites, want)
	}
}

func TestIsotopeAbsentFromOneSource(t *testing.T) {
	a := mpotest.New(param("p", 1))
	a.Zones = 4
	a.Isotopes = []string{"U235", "U238", "PU239"}
	a.Blocks = [][]string{{"U235", "U238"}, {"U235", "U238", "PU239"}}
	a.ZoneBlocks = []int{0, 0, 0, 1}
	a.Orders["PU239"] = mpotest.Orders{Diffusion: 2}

	b := mpotest.New(param("p", 2))
	b.Zones = 4

	m := openFixtures(t, 2, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	if got := m.Isotopes(); !reflect.DeepEqual(got, []string{"PU239", "U235", "U238"}) {
		t.Errorf("isotopes = %v", got)
	}
	vs, ok := m.ValidSet("PU239")
	if !ok {
		t.Fatal("no valid set for PU239")
	}
	if vs.DiffusionOrders != 2 || vs.ScatteringOrders != 0 || len(vs.Pairs) != 0 {
		t.Errorf("PU239 valid set = %+v", vs)
	}

	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"PU239"},
		Reactions: []string{"Diffusion"},
		MaxOrder:  5,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	if got := lib.Labels("PU239"); !reflect.DeepEqual(got, []string{"Diffusion0", "Diffusion1"}) {
		t.Fatalf("labels = %v", got)
	}
	for order, label := range []string{"Diffusion0", "Diffusion1"} {
		arr := lib["PU239"][label]
		for g := 0; g < 2; g++ {
			want := a.Value(mpotest.Point{Zone: 3, Isotope: "PU239", Reaction: "Diffusion", Order: order, Group: g})
			if got := at(t, arr, g, 3, 0); got != want {
				t.Errorf("%s group %d = %g, want %g", label, g, got, want)
			}
		}
		if got := arr.CountNonZero(); got != 2 {
			t.Errorf("%s non-zero cells = %d, want 2", label, got)
		}
	}
	if report.Misses != 0 {
		t.Errorf("misses = %d", report.Misses)
	}
}

func TestAnisotropyOrderClamped(t *testing.T) {
	a := mpotest.New(param("p", 1))
	b := mpotest.New(param("p", 2))
	b.Orders = map[string]mpotest.Orders{"U235": {Diffusion: 1, Scattering: 1}}

	m := openFixtures(t, 2, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Diffusion"},
		MaxOrder:  5,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	if got := lib.Labels("U235"); !reflect.DeepEqual(got, []string{"Diffusion0", "Diffusion1"}) {
		t.Fatalf("labels = %v", got)
	}
	// The second source only has order 0.
	if report.Misses != 2 {
		t.Errorf("misses = %d, want 2", report.Misses)
	}
	d1 := lib["U235"]["Diffusion1"]
	if at(t, d1, 0, 0, 0) == 0 || at(t, d1, 0, 0, 1) != 0 {
		t.Errorf("Diffusion1 = %v", d1.Data())
	}

	lib, _, err = m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Diffusion"},
		MaxOrder:  1,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	if got := lib.Labels("U235"); !reflect.DeepEqual(got, []string{"Diffusion0"}) {
		t.Errorf("capped labels = %v", got)
	}
}

func TestScatteringTransfers(t *testing.T) {
	f := mpotest.New(param("p", 1))
	f.Groups = 3
	f.Profile = &mpotest.Profile{FirstArrival: []int{0, 1, 0}, Counts: []int{2, 1, 3}}
	f.Orders = map[string]mpotest.Orders{"U235": {Diffusion: 1, Scattering: 2}, "U238": {Scattering: 1}}
	f.EnergyMesh = "MESH3"

	opener, err := mpotest.Opener(map[string]*mpotest.Fixture{"f.hdf": f})
	if err != nil {
		t.Fatalf("rendering fixture: %v", err)
	}
	m, err := mpo.Open(context.Background(), []string{"f.hdf"}, "GEOM", "MESH3", mpo.Options{Opener: opener})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	vs, _ := m.ValidSet("U235")
	wantPairs := f.Profile.Pairs()
	if !reflect.DeepEqual(vs.Pairs, wantPairs) || vs.ScatteringOrders != 2 {
		t.Fatalf("valid set = %+v, want pairs %v", vs, wantPairs)
	}

	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235", "U238"},
		Reactions: []string{"Scattering"},
		Quantity:  mpo.ReactRate,
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	if got := len(lib["U235"]); got != 12 {
		t.Errorf("U235 has %d arrays, want 12", got)
	}
	if got := len(lib["U238"]); got != 6 {
		t.Errorf("U238 has %d arrays, want 6", got)
	}
	if report.Misses != 0 {
		t.Errorf("misses = %d", report.Misses)
	}

	for _, iso := range []string{"U235", "U238"} {
		for _, label := range lib.Labels(iso) {
			arr := lib[iso][label]
			if want := []int{1, 2, 1}; !reflect.DeepEqual(arr.Shape(), want) {
				t.Fatalf("%s %s shape = %v", iso, label, arr.Shape())
			}
		}
		for o := 0; o < f.Orders[iso].Scattering; o++ {
			for _, p := range wantPairs {
				label := mpo.Label{Reaction: "Scattering", Kind: mpo.Scattering, Order: o, Pair: p}.String()
				arr := lib[iso][label]
				for z := 0; z < 2; z++ {
					xs := f.Value(mpotest.Point{Zone: z, Isotope: iso, Reaction: "Scattering", Order: o, Pair: p})
					want := f.Flux(0, z, p.Departure) * f.Concentration(0, z, iso) * xs
					if got := at(t, arr, 0, z, 0); got != want {
						t.Errorf("%s %s zone %d = %g, want %g", iso, label, z, got, want)
					}
				}
			}
		}
	}
}

func TestQuantities(t *testing.T) {
	f := mpotest.New(param("p", 1))
	m := openFixtures(t, 1, []string{"f.hdf"}, map[string]*mpotest.Fixture{"f.hdf": f})

	for _, q := range []mpo.Quantity{mpo.Micro, mpo.Macro, mpo.Flux, mpo.ReactRate} {
		lib, _, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
			Isotopes:  []string{"U238"},
			Reactions: []string{"Total"},
			Quantity:  q,
		})
		if err != nil {
			t.Fatalf("%v: BuildLibrary failed: %v", q, err)
		}
		arr := lib["U238"]["Total"]
		for g := 0; g < 2; g++ {
			for z := 0; z < 2; z++ {
				xs := f.Value(mpotest.Point{Zone: z, Isotope: "U238", Reaction: "Total", Group: g})
				conc := f.Concentration(0, z, "U238")
				flux := f.Flux(0, z, g)
				want := map[mpo.Quantity]float64{
					mpo.Micro:     xs,
					mpo.Macro:     conc * xs,
					mpo.Flux:      flux,
					mpo.ReactRate: flux * conc * xs,
				}[q]
				if got := at(t, arr, g, z, 0); got != want {
					t.Errorf("%v [%d %d] = %g, want %g", q, g, z, got, want)
				}
			}
		}
	}
}

func TestSkipDims(t *testing.T) {
	f := mpotest.New(param("burnup", 0, 100), param("tf", 500, 900))
	m := openFixtures(t, 1, []string{"f.hdf"}, map[string]*mpotest.Fixture{"f.hdf": f})

	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Total"},
		SkipDims:  []string{"TF"},
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	arr := lib["U235"]["Total"]
	if want := []int{2, 2, 2}; !reflect.DeepEqual(arr.Shape(), want) {
		t.Fatalf("shape = %v, want %v", arr.Shape(), want)
	}
	if report.Overwrites != 8 {
		t.Errorf("overwrites = %d, want 8", report.Overwrites)
	}
	// State points run burnup-major, so tf=900 is written last.
	for bu := 0; bu < 2; bu++ {
		want := f.Value(mpotest.Point{State: 2*bu + 1, Isotope: "U235", Reaction: "Total"})
		if got := at(t, arr, 0, 0, bu); got != want {
			t.Errorf("burnup %d = %g, want %g", bu, got, want)
		}
	}

	_, _, err = m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Total"},
		SkipDims:  []string{"power"},
	})
	if !errors.Is(err, mpo.ErrNotFound) {
		t.Errorf("unknown skip dim err = %v", err)
	}
}

func TestBuildRequestErrors(t *testing.T) {
	f := mpotest.New(param("p", 1))
	m := openFixtures(t, 1, []string{"f.hdf"}, map[string]*mpotest.Fixture{"f.hdf": f})

	tests := []struct {
		name string
		req  mpo.BuildRequest
		want error
	}{
		{"no isotopes", mpo.BuildRequest{Reactions: []string{"Total"}}, mpo.ErrInvalidInput},
		{"no reactions", mpo.BuildRequest{Isotopes: []string{"U235"}}, mpo.ErrInvalidInput},
		{"unknown isotope", mpo.BuildRequest{Isotopes: []string{"XE135"}, Reactions: []string{"Total"}}, mpo.ErrNotFound},
		{"unknown reaction", mpo.BuildRequest{Isotopes: []string{"U235"}, Reactions: []string{"Fission"}}, mpo.ErrNotFound},
		{"bad quantity", mpo.BuildRequest{Isotopes: []string{"U235"}, Reactions: []string{"Total"}, Quantity: 9}, mpo.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := m.BuildLibrary(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReactionMissingFromOneSource(t *testing.T) {
	a := mpotest.New(param("p", 1))
	a.Reactions = append(a.Reactions, "Fission")
	b := mpotest.New(param("p", 2))

	m := openFixtures(t, 2, []string{"a.hdf", "b.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a, "b.hdf": b})
	lib, report, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Fission"},
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	if report.Misses != 2 || report.Writes != 4 {
		t.Errorf("report = %+v", report)
	}
	if got := lib["U235"]["Fission"].CountNonZero(); got != 4 {
		t.Errorf("non-zero cells = %d, want 4", got)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	fixtures := map[string]*mpotest.Fixture{
		"a.hdf": mpotest.New(param("p", 1)),
	}
	threeZones := mpotest.New(param("p", 2))
	threeZones.Zones = 3
	fixtures["zones.hdf"] = threeZones
	fixtures["names.hdf"] = mpotest.New(param("q", 1))
	opener, err := mpotest.Opener(fixtures)
	if err != nil {
		t.Fatalf("rendering fixtures: %v", err)
	}
	opts := mpo.Options{Opener: opener}

	tests := []struct {
		name     string
		files    []string
		geometry string
		mesh     string
		want     error
	}{
		{"no files", nil, "GEOM", "MESH2", mpo.ErrInvalidInput},
		{"empty geometry", []string{"a.hdf"}, " ", "MESH2", mpo.ErrInvalidInput},
		{"empty mesh", []string{"a.hdf"}, "GEOM", "", mpo.ErrInvalidInput},
		{"unknown geometry", []string{"a.hdf"}, "CORE", "MESH2", mpo.ErrNotFound},
		{"unknown mesh", []string{"a.hdf"}, "GEOM", "MESH99", mpo.ErrNotFound},
		{"no output recorded", []string{"a.hdf"}, "OTHER", "MESH2", mpo.ErrNotFound},
		{"unknown file", []string{"a.hdf", "nope.hdf"}, "GEOM", "MESH2", mpo.ErrNotFound},
		{"zone count", []string{"a.hdf", "zones.hdf"}, "GEOM", "MESH2", mpo.ErrShapeMismatch},
		{"parameter names", []string{"a.hdf", "names.hdf"}, "GEOM", "MESH2", mpo.ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mpo.Open(ctx, tt.files, tt.geometry, tt.mesh, opts); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenCancelled(t *testing.T) {
	opener, err := mpotest.Opener(map[string]*mpotest.Fixture{"a.hdf": mpotest.New(param("p", 1))})
	if err != nil {
		t.Fatalf("rendering fixture: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mpo.Open(ctx, []string{"a.hdf"}, "GEOM", "MESH2", mpo.Options{Opener: opener}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMasterSummaries(t *testing.T) {
	a := mpotest.New(param("BURNUP", 0, 100))
	a.Reactions = append(a.Reactions, "Fission")
	m := openFixtures(t, 1, []string{"a.hdf"}, map[string]*mpotest.Fixture{"a.hdf": a})

	if m.Zones() != 2 || m.Groups() != 2 || m.Geometry() != "GEOM" || m.EnergyMesh() != "MESH2" {
		t.Errorf("master = %s", m)
	}
	reactions := append([]string(nil), a.Reactions...)
	sort.Strings(reactions)
	if got := m.Reactions(); !reflect.DeepEqual(got, reactions) {
		t.Errorf("reactions = %v, want %v", got, reactions)
	}
	src := m.Sources()[0]
	if got := src.Params(); len(got) != 1 || got[0].Name != "burnup" {
		t.Errorf("params = %v", got)
	}
	if got := src.Energies(); len(got) != 3 {
		t.Errorf("energies = %v", got)
	}
	if !src.HasIsotope("U238") || src.HasIsotope("PU239") || !src.HasReaction("Fission") {
		t.Errorf("source = %s", src)
	}
	if src.IndexMap() == nil {
		t.Error("source is not bound")
	}
}
