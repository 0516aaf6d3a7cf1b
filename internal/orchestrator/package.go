package orchestrator

import (
	"context"

	"github.com/sniperleonid/Calc-sub001/internal/planner"
)

// FirePackage is everything needed to fire the current phase.
type FirePackage struct {
	Phase              planner.Phase        `json:"phase"`
	AimPoints          []planner.AimPoint   `json:"aimPoints"`
	Assignments        []planner.Assignment `json:"assignments"`
	Solutions          []GunSolutions       `json:"solutions"`
	PhaseStartDelaySec *float64             `json:"phaseStartDelaySec,omitempty"`
}

// NextFirePackage solves the phase under the plan cursor. It returns nil
// once the plan is complete. The plan is not modified.
func NextFirePackage(ctx context.Context, plan planner.FirePlan, env Env) (*FirePackage, error) {
	phase, ok := plan.CurrentPhase()
	if !ok {
		return nil, nil
	}
	if err := plan.Check(); err != nil {
		return nil, err
	}

	solutions, err := PhaseSolutions(ctx, plan, phase.PhaseIndex, env)
	if err != nil {
		return nil, err
	}
	pkg := &FirePackage{
		Phase:              phase,
		Assignments:        plan.PhaseAssignments(phase.PhaseIndex),
		Solutions:          solutions,
		PhaseStartDelaySec: phase.PlannedStartDelaySec,
	}
	for _, idx := range phase.AimPointIndices {
		ap, err := plan.AimPoint(idx)
		if err != nil {
			return nil, err
		}
		pkg.AimPoints = append(pkg.AimPoints, ap)
	}

	switch plan.Config.Control {
	case planner.ControlTOT:
		desired := plan.Config.DesiredImpactSec
		if env.DesiredImpactSec != nil {
			desired = env.DesiredImpactSec
		}
		var start *float64
		pkg.Assignments, start = ApplyTOT(pkg.Assignments, solutions, desired)
		if start != nil {
			pkg.PhaseStartDelaySec = start
		}
	case planner.ControlMRSI:
		pkg.Assignments, err = ApplyMRSI(ctx, plan, pkg.Assignments, env)
		if err != nil {
			return nil, err
		}
	}
	env.logger().Info("fire package ready",
		"phase", phase.PhaseIndex,
		"label", phase.Label,
		"control", plan.Config.Control,
		"guns", len(pkg.Assignments),
	)
	return pkg, nil
}
