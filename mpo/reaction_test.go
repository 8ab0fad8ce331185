package mpo

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func labelStrings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return out
}

func TestLabels(t *testing.T) {
	vs := ValidSet{DiffusionOrders: 2, ScatteringOrders: 2, Pairs: []Pair{{0, 0}, {1, 0}}}
	tests := []struct {
		reaction string
		maxOrder int
		want     []string
	}{
		{"Total", 1, []string{"Total"}},
		{"Diffusion", 0, []string{"Diffusion0", "Diffusion1"}},
		{"Diffusion", 5, []string{"Diffusion0", "Diffusion1"}},
		{"Diffusion", 1, []string{"Diffusion0"}},
		{"Scattering", 1, []string{"Scattering0_0-0", "Scattering0_1-0"}},
		{"Scattering", -1, []string{"Scattering0_0-0", "Scattering0_1-0", "Scattering1_0-0", "Scattering1_1-0"}},
	}
	for _, tt := range tests {
		got := labelStrings(Labels(tt.reaction, vs, tt.maxOrder))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Labels(%s, %d) = %v, want %v", tt.reaction, tt.maxOrder, got, tt.want)
		}
	}

	if got := Labels("Diffusion", ValidSet{}, 3); len(got) != 0 {
		t.Errorf("no discovered orders: got %v", labelStrings(got))
	}
	if got := Labels("Scattering", ValidSet{ScatteringOrders: 2}, 3); len(got) != 0 {
		t.Errorf("no pairs: got %v", labelStrings(got))
	}
}

func TestKindOf(t *testing.T) {
	for reaction, want := range map[string]ReactionKind{
		"Diffusion":  Diffusion,
		"Scattering": Scattering,
		"Total":      Plain,
		"Fission":    Plain,
		"diffusion":  Plain,
	} {
		if got := KindOf(reaction); got != want {
			t.Errorf("KindOf(%q) = %v, want %v", reaction, got, want)
		}
	}
}

func TestQuantity(t *testing.T) {
	for _, s := range []string{"micro", "MACRO", " flux", "ReactRate"} {
		if _, err := ParseQuantity(s); err != nil {
			t.Errorf("ParseQuantity(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseQuantity("power"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseQuantity(power) err = %v", err)
	}

	const xs, conc, flux = 2.0, 0.5, 4.0
	want := map[Quantity]float64{Micro: 2, Macro: 1, Flux: 4, ReactRate: 4}
	for q, v := range want {
		if got := q.value(xs, conc, flux); got != v {
			t.Errorf("%v value = %g, want %g", q, got, v)
		}
	}

	req := BuildRequest{Isotopes: []string{"U235"}, Reactions: []string{"Total"}, Quantity: ReactRate}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back BuildRequest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Quantity != ReactRate {
		t.Errorf("quantity %v did not survive %s", back.Quantity, data)
	}
	if err := json.Unmarshal([]byte(`{"quantity":"power"}`), &back); err == nil {
		t.Error("expected an error for an unknown quantity")
	}
}
