package mpo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/robert-malhotra/go-mpo/mpo"
	"github.com/robert-malhotra/go-mpo/mpo/mpotest"
	"github.com/robert-malhotra/go-mpo/ndarray"
)

func TestSaveAndLoadState(t *testing.T) {
	fixtures := map[string]*mpotest.Fixture{
		"a.hdf": mpotest.New(param("burnup", 0, 150), param("tf", 550)),
		"b.hdf": mpotest.New(param("burnup", 150, 1000), param("tf", 900)),
	}
	opener, err := mpotest.Opener(fixtures)
	if err != nil {
		t.Fatalf("rendering fixtures: %v", err)
	}
	opts := mpo.Options{Opener: opener, Workers: 2}
	ctx := context.Background()

	m, err := mpo.Open(ctx, []string{"a.hdf", "b.hdf"}, "GEOM", "MESH2", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := m.SaveState(path); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	reloaded, err := mpo.LoadState(ctx, path, opts)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !reflect.DeepEqual(reloaded.State(), m.State()) {
		t.Errorf("reloaded state differs:\n got %+v\nwant %+v", reloaded.State(), m.State())
	}

	req := mpo.BuildRequest{
		Isotopes:  []string{"U235"},
		Reactions: []string{"Total", "Scattering"},
		Quantity:  mpo.Macro,
	}
	want, _, err := m.BuildLibrary(ctx, req)
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}
	got, _, err := reloaded.BuildLibrary(ctx, req)
	if err != nil {
		t.Fatalf("BuildLibrary after reload failed: %v", err)
	}
	if !reflect.DeepEqual(got.Labels("U235"), want.Labels("U235")) {
		t.Fatalf("labels %v, want %v", got.Labels("U235"), want.Labels("U235"))
	}
	for _, label := range want.Labels("U235") {
		if !reflect.DeepEqual(got["U235"][label].Data(), want["U235"][label].Data()) {
			t.Errorf("%s differs after reload", label)
		}
	}
}

func TestLoadStateErrors(t *testing.T) {
	dir := t.TempDir()
	opener, err := mpotest.Opener(map[string]*mpotest.Fixture{"a.hdf": mpotest.New(param("p", 1))})
	if err != nil {
		t.Fatalf("rendering fixture: %v", err)
	}
	opts := mpo.Options{Opener: opener}

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown field", "geometry: GEOM\nenergyMesh: MESH2\nfiles: [a.hdf]\ncolour: red\n", mpo.ErrInvalidInput},
		{"no files", "geometry: GEOM\nenergyMesh: MESH2\n", mpo.ErrInvalidInput},
		{"unordered values", "geometry: GEOM\nenergyMesh: MESH2\nzones: 2\ngroups: 2\nfiles: [a.hdf]\nparameters:\n  p: [2, 1]\n", mpo.ErrInvalidInput},
		{"zone count", "geometry: GEOM\nenergyMesh: MESH2\nzones: 5\ngroups: 2\nfiles: [a.hdf]\nparameters:\n  p: [1]\n", mpo.ErrShapeMismatch},
		{"value not in space", "geometry: GEOM\nenergyMesh: MESH2\nzones: 2\ngroups: 2\nfiles: [a.hdf]\nparameters:\n  p: [3]\n", mpo.ErrParameterNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(tt.name+".yaml", tt.body)
			if _, err := mpo.LoadState(context.Background(), path, opts); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConcentrations(t *testing.T) {
	f := mpotest.New(param("burnup", 0, 100, 200), param("tf", 900))
	m := openFixtures(t, 1, []string{"f.hdf"}, map[string]*mpotest.Fixture{"f.hdf": f})

	out, err := m.Concentrations(context.Background(), []string{"U235", "U238"}, "BURNUP")
	if err != nil {
		t.Fatalf("Concentrations failed: %v", err)
	}
	for _, iso := range []string{"U235", "U238"} {
		arr := out[iso]
		if want := []int{3, 2}; !reflect.DeepEqual(arr.Shape(), want) {
			t.Fatalf("%s shape = %v, want %v", iso, arr.Shape(), want)
		}
		for bu := 0; bu < 3; bu++ {
			for z := 0; z < 2; z++ {
				if got, want := at(t, arr, bu, z), f.Concentration(bu, z, iso); got != want {
					t.Errorf("%s [%d %d] = %g, want %g", iso, bu, z, got, want)
				}
			}
		}
	}

	if _, err := m.Concentrations(context.Background(), []string{"U235"}, "power"); !errors.Is(err, mpo.ErrNotFound) {
		t.Errorf("unknown burnup parameter err = %v", err)
	}
	if _, err := m.Concentrations(context.Background(), []string{"XE135"}, "burnup"); !errors.Is(err, mpo.ErrNotFound) {
		t.Errorf("unknown isotope err = %v", err)
	}
}

func TestQuery(t *testing.T) {
	f := mpotest.New(param("BURNUP", 0), param("Tf", 900))
	opener, err := mpotest.Opener(map[string]*mpotest.Fixture{"f.hdf": f})
	if err != nil {
		t.Fatalf("rendering fixture: %v", err)
	}

	results, err := mpo.Query(context.Background(), []string{"f.hdf"}, mpo.Options{Opener: opener})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if r.File != "f.hdf" {
		t.Errorf("file = %q", r.File)
	}
	if !reflect.DeepEqual(r.Geometries, []string{"OTHER", "GEOM"}) {
		t.Errorf("geometries = %v", r.Geometries)
	}
	if !reflect.DeepEqual(r.EnergyMeshes, []string{"MESH2"}) {
		t.Errorf("energy meshes = %v", r.EnergyMeshes)
	}
	if !reflect.DeepEqual(r.Isotopes, []string{"U235", "U238"}) {
		t.Errorf("isotopes = %v", r.Isotopes)
	}
	if len(r.Reactions) != len(f.Reactions) {
		t.Errorf("reactions = %v", r.Reactions)
	}
	if !reflect.DeepEqual(r.Parameters, []string{"burnup", "tf"}) {
		t.Errorf("parameters = %v", r.Parameters)
	}

	if _, err := mpo.Query(context.Background(), nil, mpo.Options{Opener: opener}); !errors.Is(err, mpo.ErrInvalidInput) {
		t.Errorf("empty file list err = %v", err)
	}
	if _, err := mpo.Query(context.Background(), []string{"missing.hdf"}, mpo.Options{Opener: opener}); !errors.Is(err, mpo.ErrNotFound) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestLibrarySave(t *testing.T) {
	f := mpotest.New(param("p", 1, 2))
	m := openFixtures(t, 1, []string{"f.hdf"}, map[string]*mpotest.Fixture{"f.hdf": f})
	lib, _, err := m.BuildLibrary(context.Background(), mpo.BuildRequest{
		Isotopes:  []string{"U238"},
		Reactions: []string{"Total", "Diffusion"},
	})
	if err != nil {
		t.Fatalf("BuildLibrary failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := lib.Save(dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	want := []string{filepath.Join(dir, "U238_Diffusion0.bin"), filepath.Join(dir, "U238_Total.bin")}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	loaded, err := ndarray.Load(paths[1])
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	orig := lib["U238"]["Total"]
	if !reflect.DeepEqual(loaded.Shape(), orig.Shape()) || !reflect.DeepEqual(loaded.Data(), orig.Data()) {
		t.Errorf("loaded %v, want %v", loaded, orig)
	}
}
