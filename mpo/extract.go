package mpo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/robert-malhotra/go-mpo/ndarray"
)

// target is one output array and the label it is filled for.
type target struct {
	label Label
	array *ndarray.Array
	mu    sync.Mutex
}

// counters tallies the outcome of an extraction.
type counters struct {
	writes     atomic.Int64
	misses     atomic.Int64
	overwrites atomic.Int64
}

// extractJob is the frozen description of a build shared by all workers.
type extractJob struct {
	quantity Quantity
	retained []int // global axes kept in the output, in order
	targets  map[string][]*target
	profile  bool // some target needs transfer profiles
	stats    *counters
	log      logr.Logger
}

// add folds the counts of o into c.
func (c *counters) add(o *counters) {
	c.writes.Add(o.writes.Load())
	c.misses.Add(o.misses.Load())
	c.overwrites.Add(o.overwrites.Load())
}

// extract writes every value this source holds for the job's targets and
// returns the counts of this source alone.
func (s *Source) extract(ctx context.Context, shared *extractJob) (*counters, error) {
	job := *shared
	job.stats = &counters{}
	return job.stats, s.run(ctx, &job)
}

func (s *Source) run(ctx context.Context, job *extractJob) error {
	log := job.log.WithValues("source", s.name)
	if s.index == nil {
		return fmt.Errorf("%s: source is not bound to a parameter space", s.name)
	}

	st, err := s.opener(s.name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.name, err)
	}
	defer st.Close()

	table, err := s.readAddrTable(st)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	states, err := s.statePoints(st)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	idx := make([]int, 2+len(job.retained))
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
		for i, axis := range job.retained {
			idx[2+i] = global[axis]
		}

		for z := 0; z < s.zones; z++ {
			zd, err := s.readZone(st, state, z, zoneNeeds{values: true, profile: job.profile})
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			idx[1] = z
			if err := s.extractZone(table, zd, job, idx, log.WithValues("state", state, "zone", z)); err != nil {
				return fmt.Errorf("%s: %s zone %d: %w", s.name, state, z, err)
			}
		}
	}
	return nil
}

func (s *Source) extractZone(table *addrTable, zd *zoneData, job *extractJob, idx []int, log logr.Logger) error {
	block := s.block(zd)
	for iso, targets := range job.targets {
		pos, ok := block[iso]
		if !ok {
			continue
		}
		if pos >= len(zd.conc) {
			return fmt.Errorf("%w: CONCENTRATION has %d entries, isotope %s at %d", ErrShapeMismatch, len(zd.conc), iso, pos)
		}
		conc := zd.conc[pos]

		var profile *TransferProfile
		for _, t := range targets {
			reac, ok := s.reactions[t.label.Reaction]
			if !ok {
				job.stats.misses.Add(1)
				log.V(1).Info("reaction not recorded", "isotope", iso, "label", t.label.String())
				continue
			}
			base, err := table.at(zd.xsBlock, pos, reac)
			if err != nil {
				return err
			}
			if base < 0 {
				job.stats.misses.Add(1)
				log.V(1).Info("cross section not found", "isotope", iso, "label", t.label.String())
				continue
			}

			switch t.label.Kind {
			case Plain:
				if err := s.writeGroups(t, zd, int(base), conc, job, idx, log); err != nil {
					return err
				}

			case Diffusion:
				orders, _, err := table.orders(zd.xsBlock, pos)
				if err != nil {
					return err
				}
				if int64(t.label.Order) >= orders {
					job.stats.misses.Add(1)
					log.V(1).Info("diffusion order not available", "isotope", iso, "label", t.label.String(), "orders", orders)
					continue
				}
				if err := s.writeGroups(t, zd, int(base)+t.label.Order*s.groups, conc, job, idx, log); err != nil {
					return err
				}

			case Scattering:
				if profile == nil {
					tp, err := s.zoneProfile(table, zd, pos)
					if err != nil {
						return fmt.Errorf("isotope %s: %w", iso, err)
					}
					profile = &tp
				}
				_, orders, err := table.orders(zd.xsBlock, pos)
				if err != nil {
					return err
				}
				if int64(t.label.Order) >= orders || !profile.Valid(t.label.Pair) {
					job.stats.misses.Add(1)
					log.V(1).Info("scattering transfer not available", "isotope", iso, "label", t.label.String())
					continue
				}
				addr := int(base) + t.label.Order*profile.Stride() + profile.Offset(t.label.Pair)
				if err := s.writeTransfer(t, zd, addr, conc, job, idx, log); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// zoneProfile decodes the transfer profile of the isotope at pos. A zone
// without one yields an empty profile, so every pair misses.
func (s *Source) zoneProfile(table *addrTable, zd *zoneData, pos int) (TransferProfile, error) {
	empty := TransferProfile{FirstArrival: make([]int, s.groups), Offsets: make([]int, s.groups+1)}
	base, err := table.profileBase(zd.xsBlock, pos)
	if err != nil {
		return empty, err
	}
	if base < 0 || zd.profile == nil {
		return empty, nil
	}
	return DecodeTransferProfile(zd.profile, int(base), s.groups)
}

// writeGroups writes one value per energy group, reading cross sections
// from addr onwards.
func (s *Source) writeGroups(t *target, zd *zoneData, addr int, conc float64, job *extractJob, idx []int, log logr.Logger) error {
	if addr < 0 || addr+s.groups > len(zd.xs) {
		job.stats.misses.Add(1)
		log.V(1).Info("cross section address out of range", "label", t.label.String(), "address", addr, "size", len(zd.xs))
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for g := 0; g < s.groups; g++ {
		idx[0] = g
		if err := s.store(t, job.quantity.value(zd.xs[addr+g], conc, zd.flux[g]), job, idx, log); err != nil {
			return err
		}
	}
	return nil
}

// writeTransfer writes the single value of a scattering transfer. Its flux
// is the one of the departure group.
func (s *Source) writeTransfer(t *target, zd *zoneData, addr int, conc float64, job *extractJob, idx []int, log logr.Logger) error {
	if addr < 0 || addr >= len(zd.xs) {
		job.stats.misses.Add(1)
		log.V(1).Info("cross section address out of range", "label", t.label.String(), "address", addr, "size", len(zd.xs))
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	idx[0] = 0
	return s.store(t, job.quantity.value(zd.xs[addr], conc, zd.flux[t.label.Pair.Departure]), job, idx, log)
}

// store writes v at idx; t.mu must be held. Writing over a non-zero cell is
// allowed and counted.
func (s *Source) store(t *target, v float64, job *extractJob, idx []int, log logr.Logger) error {
	off, err := t.array.Offset(idx...)
	if err != nil {
		return fmt.Errorf("%w: %s at %v: %v", ErrShapeMismatch, t.label, idx, err)
	}
	data := t.array.Data()
	if data[off] != 0 {
		job.stats.overwrites.Add(1)
		log.V(1).Info("overwrite", "label", t.label.String(), "index", idx, "old", data[off], "new", v)
	}
	data[off] = v
	job.stats.writes.Add(1)
	return nil
}
