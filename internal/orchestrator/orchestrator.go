// Package orchestrator solves a fire plan phase by phase, applying runtime
// corrections and the timing of the mission's control mode.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/internal/solver"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrUnknownGun = errors.New("gun has no position")

// DefaultParallelism bounds concurrent solves when Env leaves it unset.
const DefaultParallelism = 4

type SolveFunc func(ctx context.Context, req solver.Request) (core.FireSolution, error)

type SolveMultiFunc func(ctx context.Context, req solver.Request, opts solver.MultiOptions) ([]core.FireSolution, error)

// Env carries the collaborators and battlefield state of a mission.
type Env struct {
	GunPositions     map[string]core.Position3D
	WeaponByGun      map[string]string
	Wind             core.Wind
	Arc              core.Arc
	Solve            SolveFunc
	SolveMulti       SolveMultiFunc
	DesiredImpactSec *float64
	Parallelism      int
	Logger           *slog.Logger
}

func (e Env) parallelism() int {
	if e.Parallelism <= 0 {
		return DefaultParallelism
	}
	return e.Parallelism
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// ShotSolution is the solve result of one command.
type ShotSolution struct {
	Command  planner.Command   `json:"command"`
	AimPoint planner.AimPoint  `json:"aimPoint"`
	Target   core.Position3D   `json:"target"`
	Solution core.FireSolution `json:"solution"`
}

// GunSolutions are the solved commands of one gun, in command order.
type GunSolutions struct {
	GunID string         `json:"gunId"`
	Shots []ShotSolution `json:"shots"`
}

// effectiveTarget is the static aim point moved by a significant runtime
// correction. The plan is not modified.
func effectiveTarget(plan planner.FirePlan, ap planner.AimPoint) core.Position3D {
	if plan.Runtime == nil || !plan.Runtime.Significant() {
		return ap.Position
	}
	dx, dy := plan.Runtime.Offset()
	return ap.Position.Add(dx, dy)
}

func (e Env) request(plan planner.FirePlan, gunID string, target core.Position3D) (solver.Request, error) {
	gun, ok := e.GunPositions[gunID]
	if !ok {
		return solver.Request{}, fmt.Errorf("%w: %s", ErrUnknownGun, gunID)
	}
	arc := e.Arc
	if arc == "" {
		arc = core.ArcAuto
	}
	return solver.Request{
		Gun:      gun,
		Target:   target,
		Wind:     adjustment.WindForShot(gun, target, e.Wind, plan.Summary.BearingDeg),
		WeaponID: e.WeaponByGun[gunID],
		Arc:      arc,
	}, nil
}

// PhaseSolutions solves every command of a phase. Solves run concurrently
// but results keep assignment and command order.
func PhaseSolutions(ctx context.Context, plan planner.FirePlan, phaseIndex int, env Env) ([]GunSolutions, error) {
	if env.Solve == nil {
		return nil, errors.New("orchestrator: no solve collaborator")
	}
	assignments := plan.PhaseAssignments(phaseIndex)
	out := make([]GunSolutions, len(assignments))

	type job struct {
		gun, cmd int
		req      solver.Request
	}
	var jobs []job
	for i, a := range assignments {
		out[i] = GunSolutions{GunID: a.GunID, Shots: make([]ShotSolution, len(a.Commands))}
		for j, cmd := range a.Commands {
			ap, err := plan.AimPoint(cmd.AimPointIndex)
			if err != nil {
				return nil, fmt.Errorf("gun %s: %w", a.GunID, err)
			}
			target := effectiveTarget(plan, ap)
			req, err := env.request(plan, a.GunID, target)
			if err != nil {
				return nil, err
			}
			out[i].Shots[j] = ShotSolution{Command: cmd, AimPoint: ap, Target: target}
			jobs = append(jobs, job{gun: i, cmd: j, req: req})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(env.parallelism())
	for _, jb := range jobs {
		g.Go(func() error {
			sol, err := env.Solve(ctx, jb.req)
			if err != nil {
				shot := out[jb.gun].Shots[jb.cmd]
				return fmt.Errorf("gun %s aim point %d: %w", out[jb.gun].GunID, shot.Command.AimPointIndex, err)
			}
			out[jb.gun].Shots[jb.cmd].Solution = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	env.logger().Debug("phase solved", "phase", phaseIndex, "guns", len(out))
	return out, nil
}

// ApplyTOT sets every command's fire delay to maxTOF minus its own TOF so all
// rounds land together. With a desired impact time the phase start delay is
// max(0, desired − maxTOF). solutions must come from the same assignments.
func ApplyTOT(assignments []planner.Assignment, solutions []GunSolutions, desiredImpactSec *float64) ([]planner.Assignment, *float64) {
	maxTOF := 0.0
	for _, gs := range solutions {
		for _, s := range gs.Shots {
			maxTOF = math.Max(maxTOF, tof(s.Solution))
		}
	}

	out := cloneAssignments(assignments)
	for i := range out {
		for j := range out[i].Commands {
			t := 0.0
			if i < len(solutions) && j < len(solutions[i].Shots) {
				t = tof(solutions[i].Shots[j].Solution)
			}
			d := math.Max(0, maxTOF-t)
			out[i].Commands[j].FireDelaySec = &d
		}
	}

	if desiredImpactSec == nil {
		return out, nil
	}
	start := math.Max(0, *desiredImpactSec-maxTOF)
	for i := range out {
		for j := range out[i].Commands {
			v := start
			out[i].Commands[j].PhaseStartDelaySec = &v
		}
	}
	return out, &start
}

func tof(s core.FireSolution) float64 {
	if math.IsNaN(s.TimeOfFlightSec) || math.IsInf(s.TimeOfFlightSec, 0) {
		return 0
	}
	return s.TimeOfFlightSec
}

func cloneAssignments(in []planner.Assignment) []planner.Assignment {
	out := make([]planner.Assignment, len(in))
	for i, a := range in {
		out[i] = planner.Assignment{GunID: a.GunID, Commands: append([]planner.Command(nil), a.Commands...)}
	}
	return out
}
