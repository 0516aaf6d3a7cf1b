package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/internal/solver"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

const sepEpsilon = 1e-9

// SelectMRSI greedily picks up to rounds candidates from the slowest TOF
// down, accepting one only when it is at least minSep from the last pick.
// When fewer qualify, the target count shrinks until a full pick succeeds.
func SelectMRSI(candidates []core.FireSolution, rounds int, minSep float64) []core.FireSolution {
	sorted := append([]core.FireSolution(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeOfFlightSec > sorted[j].TimeOfFlightSec })

	for target := max(1, rounds); target >= 1; target-- {
		var picked []core.FireSolution
		for _, c := range sorted {
			if len(picked) >= target {
				break
			}
			if len(picked) == 0 || math.Abs(c.TimeOfFlightSec-picked[len(picked)-1].TimeOfFlightSec) >= minSep-sepEpsilon {
				picked = append(picked, c)
			}
		}
		if len(picked) == target {
			return picked
		}
	}
	return nil
}

// ShotPlan times the selected shots to impact together, earliest delay zero,
// ordered by fire delay.
func ShotPlan(picked []core.FireSolution) []planner.MRSIShot {
	if len(picked) == 0 {
		return nil
	}
	impact := 0.0
	for _, p := range picked {
		impact = math.Max(impact, p.TimeOfFlightSec)
	}
	minDelay := math.Inf(1)
	for _, p := range picked {
		minDelay = math.Min(minDelay, impact-p.TimeOfFlightSec)
	}

	shots := make([]planner.MRSIShot, len(picked))
	for i, p := range picked {
		shots[i] = planner.MRSIShot{
			FireDelaySec:    impact - p.TimeOfFlightSec - minDelay,
			AzimuthDeg:      p.AzimuthDeg,
			ElevationMil:    p.ElevationMil,
			ChargeID:        p.ChargeID,
			TimeOfFlightSec: p.TimeOfFlightSec,
			Arc:             p.Arc,
		}
	}
	sort.SliceStable(shots, func(i, j int) bool { return shots[i].FireDelaySec < shots[j].FireDelaySec })
	for i := range shots {
		shots[i].ShotIndex = i + 1
	}
	return shots
}

// ApplyMRSI builds a shot plan for the first command of every gun from
// multi-solution candidates.
func ApplyMRSI(ctx context.Context, plan planner.FirePlan, assignments []planner.Assignment, env Env) ([]planner.Assignment, error) {
	if env.SolveMulti == nil {
		return nil, errors.New("orchestrator: no multi-solve collaborator")
	}
	cfg := plan.Config
	rounds := cfg.MRSIRounds
	if rounds <= 0 {
		rounds = cfg.RoundsPerGun
	}
	rounds = max(1, rounds)
	opts := solver.MultiOptions{
		AllowedArcs:  cfg.MRSIAllowedArcs,
		MaxSolutions: max(3*rounds, cfg.MRSIMaxRounds),
	}

	out := cloneAssignments(assignments)
	reqs := make([]*solver.Request, len(out))
	for i := range out {
		if len(out[i].Commands) == 0 {
			continue
		}
		ap, err := plan.AimPoint(out[i].Commands[0].AimPointIndex)
		if err != nil {
			return nil, fmt.Errorf("gun %s: %w", out[i].GunID, err)
		}
		req, err := env.request(plan, out[i].GunID, effectiveTarget(plan, ap))
		if err != nil {
			return nil, err
		}
		reqs[i] = &req
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(env.parallelism())
	for i, req := range reqs {
		if req == nil {
			continue
		}
		g.Go(func() error {
			cands, err := env.SolveMulti(ctx, *req, opts)
			if err != nil {
				return fmt.Errorf("gun %s: %w", out[i].GunID, err)
			}
			out[i].Commands[0].MRSIShotPlan = ShotPlan(SelectMRSI(cands, rounds, cfg.MRSIMinSepSec))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
