package mpo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reaction families with anisotropy orders.
const (
	DiffusionReaction  = "Diffusion"
	ScatteringReaction = "Scattering"
)

// ReactionKind tags how a reaction is laid out in the cross-section table.
type ReactionKind int

const (
	// Plain reactions hold one value per energy group.
	Plain ReactionKind = iota
	// Diffusion holds one block of groups per anisotropy order.
	Diffusion
	// Scattering holds one block per order, each indexed by transfer pair.
	Scattering
)

func (k ReactionKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Diffusion:
		return "diffusion"
	case Scattering:
		return "scattering"
	}
	return fmt.Sprintf("ReactionKind(%d)", int(k))
}

// KindOf classifies a reaction name.
func KindOf(reaction string) ReactionKind {
	switch reaction {
	case DiffusionReaction:
		return Diffusion
	case ScatteringReaction:
		return Scattering
	}
	return Plain
}

// Label identifies one output array of an isotope: a plain reaction, a
// diffusion order, or a scattering order and transfer pair.
type Label struct {
	Reaction string
	Kind     ReactionKind
	Order    int
	Pair     Pair
}

// String renders the label as used for library keys and file names:
// "Total", "Diffusion1" or "Scattering0_2-3".
func (l Label) String() string {
	switch l.Kind {
	case Diffusion:
		return fmt.Sprintf("%s%d", l.Reaction, l.Order)
	case Scattering:
		return fmt.Sprintf("%s%d_%d-%d", l.Reaction, l.Order, l.Pair.Departure, l.Pair.Arrival)
	}
	return l.Reaction
}

// Labels expands a requested reaction into the labels it produces for an
// isotope. maxOrder caps the number of orders; zero or less means no cap.
func Labels(reaction string, vs ValidSet, maxOrder int) []Label {
	kind := KindOf(reaction)
	switch kind {
	case Diffusion:
		n := clampOrders(vs.DiffusionOrders, maxOrder)
		labels := make([]Label, 0, n)
		for o := 0; o < n; o++ {
			labels = append(labels, Label{Reaction: reaction, Kind: kind, Order: o})
		}
		return labels
	case Scattering:
		n := clampOrders(vs.ScatteringOrders, maxOrder)
		labels := make([]Label, 0, n*len(vs.Pairs))
		for o := 0; o < n; o++ {
			for _, p := range vs.Pairs {
				labels = append(labels, Label{Reaction: reaction, Kind: kind, Order: o, Pair: p})
			}
		}
		return labels
	}
	return []Label{{Reaction: reaction, Kind: Plain}}
}

func clampOrders(discovered, maxOrder int) int {
	if maxOrder > 0 && maxOrder < discovered {
		return maxOrder
	}
	return discovered
}

// Quantity selects the value written for each resolved cross section.
type Quantity int

const (
	// Micro writes the microscopic cross section σ.
	Micro Quantity = iota
	// Macro writes N·σ with N the isotope concentration.
	Macro
	// Flux writes the zone flux φ.
	Flux
	// ReactRate writes φ·N·σ.
	ReactRate
)

var quantityNames = []string{"micro", "macro", "flux", "reactrate"}

func (q Quantity) String() string {
	if q >= 0 && int(q) < len(quantityNames) {
		return quantityNames[q]
	}
	return fmt.Sprintf("Quantity(%d)", int(q))
}

// ParseQuantity parses a quantity name, case-insensitively.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range quantityNames {
		if s == name {
			return Quantity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown quantity %q", ErrInvalidInput, s)
}

// MarshalJSON encodes the quantity by name.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON decodes a quantity name.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// value computes the quantity from the cross section, concentration and
// flux of one group.
func (q Quantity) value(xs, conc, flux float64) float64 {
	switch q {
	case Macro:
		return conc * xs
	case Flux:
		return flux
	case ReactRate:
		return flux * conc * xs
	}
	return xs
}
