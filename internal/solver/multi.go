package solver

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// DuplicateTOFSec is the time-of-flight gap under which two solutions on the
// same arc count as the same trajectory.
const DuplicateTOFSec = 0.3

// MultiOptions bounds a multi-solution enumeration. Empty AllowedArcs means
// LOW, HIGH and DIRECT; empty ChargesToTry means every weapon charge.
type MultiOptions struct {
	AllowedArcs  []core.Arc `json:"allowedArcs,omitempty"`
	ChargesToTry []string   `json:"chargesToTry,omitempty"`
	MaxSolutions int        `json:"maxSolutions,omitempty"`
}

// SolveMulti solves every arc × charge pair on its own and returns the
// distinct solutions ordered by miss distance, then time of flight.
func (s *Solver) SolveMulti(ctx context.Context, req Request, opts MultiOptions) ([]core.FireSolution, error) {
	arcs := opts.AllowedArcs
	if len(arcs) == 0 {
		arcs = core.ArcAuto.SearchOrder()
	}
	charges := opts.ChargesToTry
	if len(charges) == 0 {
		weapon, err := s.weapons.Weapon(ctx, req.WeaponID)
		if err != nil {
			return nil, err
		}
		charges = weapon.ChargeIDs()
	}

	var results []core.FireSolution
	for _, arc := range arcs {
		for _, chargeID := range charges {
			r := req
			r.Arc = arc
			r.PreferredChargeID = chargeID
			sol, err := s.Solve(ctx, r)
			if errors.Is(err, ErrNoSolution) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if !isFinite(sol.TimeOfFlightSec) || duplicateTOF(results, sol) {
				continue
			}
			results = append(results, sol)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MissDistance != results[j].MissDistance {
			return results[i].MissDistance < results[j].MissDistance
		}
		return results[i].TimeOfFlightSec < results[j].TimeOfFlightSec
	})
	limit := opts.MaxSolutions
	if limit <= 0 {
		limit = len(results)
	}
	limit = max(1, limit)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func duplicateTOF(existing []core.FireSolution, sol core.FireSolution) bool {
	for _, e := range existing {
		if e.Arc == sol.Arc && math.Abs(e.TimeOfFlightSec-sol.TimeOfFlightSec) < DuplicateTOFSec {
			return true
		}
	}
	return false
}
