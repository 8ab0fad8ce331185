package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/robert-malhotra/go-mpo/mpo"
	"github.com/robert-malhotra/go-mpo/ndarray"
)

func TestParseBuildJobFile(t *testing.T) {
	dir := t.TempDir()
	job := filepath.Join(dir, "job.yaml")
	body := `geometry: GEOM
energyMesh: MESH2
files: [a.hdf, b.hdf]
output: out
isotopes: [U235]
reactions: [Total, Diffusion]
skipDims: [tf]
quantity: macro
`
	if err := os.WriteFile(job, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, logOpts, err := parseBuild([]string{"-job", job, "-isotopes", "U235,U238", "-v", "1", "c.hdf"})
	if err != nil {
		t.Fatalf("parseBuild failed: %v", err)
	}
	if cfg.Geometry != "GEOM" || cfg.EnergyMesh != "MESH2" || cfg.Output != "out" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Isotopes, []string{"U235", "U238"}) {
		t.Errorf("isotopes = %v, want the flag to win", cfg.Isotopes)
	}
	if !reflect.DeepEqual(cfg.Reactions, []string{"Total", "Diffusion"}) || !reflect.DeepEqual(cfg.SkipDims, []string{"tf"}) {
		t.Errorf("request = %+v", cfg.BuildRequest)
	}
	if cfg.Quantity != mpo.Macro || cfg.MaxOrder != 1 {
		t.Errorf("quantity %v, max order %d", cfg.Quantity, cfg.MaxOrder)
	}
	if !reflect.DeepEqual(cfg.Files, []string{"c.hdf"}) {
		t.Errorf("files = %v", cfg.Files)
	}
	if logOpts.Verbosity != 1 {
		t.Errorf("verbosity = %d", logOpts.Verbosity)
	}
}

func TestParseBuildErrors(t *testing.T) {
	if _, _, err := parseBuild([]string{"-quantity", "power"}); err == nil {
		t.Error("expected an error for an unknown quantity")
	}
	job := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(job, []byte("colour: red\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, _, err := parseBuild([]string{"-job", job}); err == nil {
		t.Error("expected an error for an unknown job field")
	}
}

func TestSynthBuildInspect(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hdf")
	b := filepath.Join(dir, "b.hdf")
	if err := runSynth([]string{"-param", "burnup=0,150", "-param", "tf=550", a}); err != nil {
		t.Fatalf("synth a failed: %v", err)
	}
	if err := runSynth([]string{"-param", "burnup=150,1000", "-param", "tf=900", "-offset", "10", b}); err != nil {
		t.Fatalf("synth b failed: %v", err)
	}

	out := filepath.Join(dir, "lib")
	state := filepath.Join(dir, "state.yaml")
	args := []string{
		"-geometry", "GEOM", "-mesh", "MESH2",
		"-isotopes", "U235", "-reactions", "Total,Diffusion",
		"-skip", "tf", "-max-order", "0", "-burnup", "burnup",
		"-out", out, "-save-state", state, "-workers", "1",
		filepath.Join(dir, "*.hdf"),
	}
	if err := runBuild(context.Background(), args); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	for _, name := range []string{"U235_Total.bin", "U235_Diffusion0.bin", "U235_Diffusion1.bin", "U235_Concentration.bin"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	total, err := ndarray.Load(filepath.Join(out, "U235_Total.bin"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := []int{2, 2, 3}; !reflect.DeepEqual(total.Shape(), want) {
		t.Errorf("shape = %v, want %v", total.Shape(), want)
	}

	// Rebuild from the saved state into another directory. Both files
	// sample burnup=150, so one worker keeps the last writer stable.
	again := filepath.Join(dir, "again")
	if err := runBuild(context.Background(), []string{"-reload", state, "-isotopes", "U235", "-reactions", "Total", "-skip", "tf", "-workers", "1", "-out", again}); err != nil {
		t.Fatalf("build from state failed: %v", err)
	}
	reloaded, err := ndarray.Load(filepath.Join(again, "U235_Total.bin"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Data(), total.Data()) {
		t.Error("library built from state differs")
	}

	var buf bytes.Buffer
	if err := inspect(&buf, a, 4); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"geometry/", "GEOMETRY_NAME [2]", "[OTHER GEOM]", "statept_0/", "ADDRXS [1 2 7]"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("inspect output lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.hdf", "a.hdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	files, err := expandFiles([]string{filepath.Join(dir, "*.hdf"), "missing.hdf"})
	if err != nil {
		t.Fatalf("expandFiles failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.hdf"), filepath.Join(dir, "b.hdf"), "missing.hdf"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
	if _, err := expandFiles([]string{"[bad"}); err == nil {
		t.Error("expected an error for a malformed pattern")
	}
}
