package mpo

import (
	"context"
	"fmt"
)

// concentrations writes, for every state point and zone, the concentration
// of each target isotope at [burnup index, zone].
func (s *Source) concentrations(ctx context.Context, burnupAxis int, targets map[string]*target) error {
	if s.index == nil {
		return fmt.Errorf("%s: source is not bound to a parameter space", s.name)
	}
	st, err := s.opener(s.name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.name, err)
	}
	defer st.Close()

	states, err := s.statePoints(st)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		local, err := s.localCoords(st, state)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		global, err := s.index.Globalize(local)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", s.name, state, err)
		}
		bu := global[burnupAxis]

		for z := 0; z < s.zones; z++ {
			zd, err := s.readZone(st, state, z, zoneNeeds{})
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			block := s.block(zd)
			var conc []float64
			for iso, t := range targets {
				pos, ok := block[iso]
				if !ok {
					continue
				}
				if conc == nil {
					path := joinPath(state, zoneName(z), "CONCENTRATION")
					if conc, err = st.ReadFloats(path); err != nil {
						return fmt.Errorf("%s: %w", s.name, err)
					}
				}
				if pos >= len(conc) {
					return fmt.Errorf("%s: %w: CONCENTRATION has %d entries, isotope %s at %d",
						s.name, ErrShapeMismatch, len(conc), iso, pos)
				}
				t.mu.Lock()
				err := t.array.Set(conc[pos], bu, z)
				t.mu.Unlock()
				if err != nil {
					return fmt.Errorf("%s: %w", s.name, err)
				}
			}
		}
	}
	return nil
}
