package mpo

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestSpaceMergeIdempotent(t *testing.T) {
	src := map[string][]float64{"BURNUP": {0, 500, 150, 500.000001}, "tf": {900, 550}}

	once := NewSpaceBuilder()
	if err := once.Add(src); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	twice := NewSpaceBuilder()
	for i := 0; i < 2; i++ {
		if err := twice.Add(src); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}

	a, b := once.Build(), twice.Build()
	for _, name := range a.Names() {
		if !reflect.DeepEqual(a.Values(name), b.Values(name)) {
			t.Errorf("%s: once %v, twice %v", name, a.Values(name), b.Values(name))
		}
	}
	if want := []float64{0, 150, 500}; !reflect.DeepEqual(a.Values("burnup"), want) {
		t.Errorf("burnup = %v, want %v", a.Values("burnup"), want)
	}
}

func TestSpaceValuesStrictlyIncreasing(t *testing.T) {
	b := NewSpaceBuilder()
	sources := []map[string][]float64{
		{"p": {1, 2}},
		{"p": {2.0000001, 3}},
		{"p": {-1, 3, 0.5, 1e-9}},
	}
	for _, src := range sources {
		if err := b.Add(src); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	values := b.Build().Values("p")
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] || NearlyEqual(values[i], values[i-1]) {
			t.Errorf("values %v not strictly increasing at %d", values, i)
		}
	}
	if want := []float64{-1, 1e-9, 0.5, 1, 2, 3}; !reflect.DeepEqual(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestSpaceNamesSortedAndNormalized(t *testing.T) {
	b := NewSpaceBuilder()
	if err := b.Add(map[string][]float64{" TF ": {900}, "Burnup": {0}, "cboron": {600}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	space := b.Build()
	if want := []string{"burnup", "cboron", "tf"}; !reflect.DeepEqual(space.Names(), want) {
		t.Errorf("names = %v, want %v", space.Names(), want)
	}
	if axis, ok := space.Axis("TF"); !ok || axis != 2 {
		t.Errorf("Axis(TF) = %d, %v", axis, ok)
	}
	if _, ok := space.Axis("missing"); ok {
		t.Error("Axis(missing) should fail")
	}
	if want := []int{1, 1, 1}; !reflect.DeepEqual(space.Shape(), want) {
		t.Errorf("shape = %v, want %v", space.Shape(), want)
	}
}

func TestSpaceAddErrors(t *testing.T) {
	tests := []struct {
		name    string
		sources []map[string][]float64
		want    error
	}{
		{"name set differs", []map[string][]float64{{"a": {1}}, {"b": {1}}}, ErrShapeMismatch},
		{"extra name", []map[string][]float64{{"a": {1}}, {"a": {1}, "b": {2}}}, ErrShapeMismatch},
		{"duplicate after normalization", []map[string][]float64{{"a": {1}, " A": {2}}}, ErrInvalidInput},
		{"empty name", []map[string][]float64{{" ": {1}}}, ErrInvalidInput},
		{"nan", []map[string][]float64{{"a": {math.NaN()}}}, ErrInvalidInput},
		{"inf", []map[string][]float64{{"a": {math.Inf(1)}}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewSpaceBuilder()
			var err error
			for _, src := range tt.sources {
				if err = b.Add(src); err != nil {
					break
				}
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSpaceIndex(t *testing.T) {
	b := NewSpaceBuilder()
	if err := b.Add(map[string][]float64{"p": {1, 2, 3}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	space := b.Build()

	if i, err := space.Index("p", 2.000001); err != nil || i != 1 {
		t.Errorf("Index(2.000001) = %d, %v", i, err)
	}
	if i, err := space.Index("p", 0.9999999); err != nil || i != 0 {
		t.Errorf("Index(0.9999999) = %d, %v", i, err)
	}
	if _, err := space.Index("p", 2.5); !errors.Is(err, ErrParameterNotFound) {
		t.Errorf("Index(2.5) err = %v", err)
	}
	if _, err := space.Index("q", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Index(q) err = %v", err)
	}
}

func TestNewParamSpaceRejectsUnordered(t *testing.T) {
	if _, err := newParamSpace(map[string][]float64{"p": {1, 3, 2}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unordered values: err = %v", err)
	}
	if _, err := newParamSpace(map[string][]float64{"p": {1, 1.0000001}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("near-duplicate values: err = %v", err)
	}
	space, err := newParamSpace(map[string][]float64{"p": {1, 2}, "a": {0}})
	if err != nil {
		t.Fatalf("newParamSpace failed: %v", err)
	}
	if want := []string{"a", "p"}; !reflect.DeepEqual(space.Names(), want) {
		t.Errorf("names = %v", space.Names())
	}
}

func TestNearlyEqual(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{1, 1, true},
		{0, 1e-6, true},
		{0, 1e-4, false},
		{1000, 1000.001, true},
		{1000, 1000.1, false},
		{-5, 5, false},
	}
	for _, tt := range tests {
		if got := NearlyEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("NearlyEqual(%g, %g) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
