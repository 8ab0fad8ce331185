package mpo

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// ScanValidSets folds every zone of every state point into b: the order
// counts found in ADDRXS and the transfer pairs allowed by each isotope's
// transfer profile. Isotopes whose order slots are both negative in a zone
// are absent from that zone and contribute nothing there.
func (s *Source) ScanValidSets(ctx context.Context, b *ValidSetBuilder, log logr.Logger) error {
	log = log.WithValues("source", s.name)

	st, err := s.opener(s.name)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.name, err)
	}
	defer st.Close()

	for _, iso := range s.isotopes {
		b.Declare(iso)
	}

	table, err := s.readAddrTable(st)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	states, err := s.statePoints(st)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		for z := 0; z < s.zones; z++ {
			zd, err := s.readZone(st, state, z, zoneNeeds{profile: true})
			if err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			if err := s.scanZone(table, zd, b, log); err != nil {
				return fmt.Errorf("%s: %s zone %d: %w", s.name, state, z, err)
			}
		}
	}
	return nil
}

func (s *Source) scanZone(table *addrTable, zd *zoneData, b *ValidSetBuilder, log logr.Logger) error {
	for iso, pos := range s.block(zd) {
		diffusion, scattering, err := table.orders(zd.xsBlock, pos)
		if err != nil {
			return err
		}
		if diffusion < 0 && scattering < 0 {
			continue
		}
		b.ObserveOrders(iso, int(max(diffusion, 0)), int(max(scattering, 0)))

		base, err := table.profileBase(zd.xsBlock, pos)
		if err != nil {
			return err
		}
		if base < 0 {
			continue
		}
		if zd.profile == nil {
			log.V(1).Info("transfer profile missing", "zone", zd.zone, "isotope", iso)
			continue
		}
		tp, err := DecodeTransferProfile(zd.profile, int(base), s.groups)
		if err != nil {
			return fmt.Errorf("isotope %s: %w", iso, err)
		}
		for _, p := range tp.Pairs() {
			b.AddPair(iso, p)
		}
	}
	return nil
}
