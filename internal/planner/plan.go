// Package planner turns a fire mission description into aim points, phases
// and per-gun commands.
package planner

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrInvariantViolation = errors.New("plan invariant violated")

// Gun is a firing unit available to a mission.
type Gun struct {
	ID       string          `json:"id"`
	Position core.Position3D `json:"pos"`
}

// Phase is a group of aim points fired together.
type Phase struct {
	PhaseIndex           int      `json:"phaseIndex"`
	Label                string   `json:"label"`
	AimPointIndices      []int    `json:"aimPointIndices"`
	PlannedStartDelaySec *float64 `json:"plannedStartDelaySec,omitempty"`
}

// MRSIShot is one round of a multiple-rounds-simultaneous-impact plan.
type MRSIShot struct {
	ShotIndex       int      `json:"shotIndex"`
	FireDelaySec    float64  `json:"fireDelaySec"`
	AzimuthDeg      float64  `json:"azimuthDeg"`
	ElevationMil    float64  `json:"elevMil"`
	ChargeID        string   `json:"chargeId"`
	TimeOfFlightSec float64  `json:"tofSec"`
	Arc             core.Arc `json:"arcType"`
}

// Command is one fire order of a gun.
type Command struct {
	PhaseIndex         int        `json:"phaseIndex"`
	AimPointIndex      int        `json:"aimPointIndex"`
	Rounds             int        `json:"rounds"`
	FireDelaySec       *float64   `json:"fireDelaySec,omitempty"`
	PhaseStartDelaySec *float64   `json:"phaseStartDelaySec,omitempty"`
	MRSIShotPlan       []MRSIShot `json:"mrsiShotPlan,omitempty"`
}

// Assignment is the ordered command list of one gun.
type Assignment struct {
	GunID    string    `json:"gunId"`
	Commands []Command `json:"commands"`
}

// Cursor tracks the next phase to fire.
type Cursor struct {
	PhaseIndex int `json:"phaseIndex"`
}

type Summary struct {
	PatternName    string        `json:"patternName"`
	TotalPhases    int           `json:"totalPhases"`
	TotalAimPoints int           `json:"totalAimPoints"`
	TotalCommands  int           `json:"totalCommands"`
	BearingDeg     float64       `json:"bearingDeg"`
	Footprint      geo.Footprint `json:"footprint"`
	// LinePathM is the length walked through a LINE target's base aim points.
	LinePathM float64 `json:"linePathM,omitempty"`
}

// FirePlan is a built mission. Its slices are never modified after Build;
// Advance and WithAdjustment return new values.
type FirePlan struct {
	Config      MissionConfig     `json:"config"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Guns        []Gun             `json:"guns"`
	AimPoints   []AimPoint        `json:"aimPoints"`
	Phases      []Phase           `json:"phases"`
	Assignments []Assignment      `json:"assignments"`
	Cursor      Cursor            `json:"cursor"`
	Runtime     *adjustment.State `json:"runtime,omitempty"`
	Summary     Summary           `json:"summary"`
}

// Build normalizes and validates cfg, then generates the plan for the
// selected guns. Guns are ordered by id.
func Build(cfg MissionConfig, guns []Gun) (*FirePlan, error) {
	cfg, diags := Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	selected, err := selectGuns(cfg.Guns, guns)
	if err != nil {
		return nil, err
	}

	base := baseAimPoints(cfg)
	bearing := resolveBearing(cfg, selected, base[0].Position)
	aimPoints, phases := buildPhases(cfg, base, bearing)

	plan := &FirePlan{
		Config:      cfg,
		Diagnostics: diags,
		Guns:        selected,
		AimPoints:   aimPoints,
		Phases:      phases,
	}
	plan.Assignments = plan.buildAssignments()

	positions := make([]core.Position3D, len(plan.AimPoints))
	commands := 0
	for i, ap := range plan.AimPoints {
		positions[i] = ap.Position
	}
	for _, a := range plan.Assignments {
		commands += len(a.Commands)
	}
	plan.Summary = Summary{
		PatternName:    fmt.Sprintf("%s/%s/%s", cfg.TargetType, cfg.SheafType, cfg.Control),
		TotalPhases:    len(plan.Phases),
		TotalAimPoints: len(plan.AimPoints),
		TotalCommands:  commands,
		BearingDeg:     bearing,
		Footprint:      geo.ComputeFootprint(positions),
	}
	if cfg.TargetType == TargetLine {
		path := make([]core.Position3D, len(base))
		for i, ap := range base {
			path[i] = ap.Position
		}
		plan.Summary.LinePathM = geo.PathLength(path)
	}
	return plan, nil
}

func selectGuns(sel GunSelection, guns []Gun) ([]Gun, error) {
	var out []Gun
	if sel.All {
		out = slices.Clone(guns)
	} else {
		byID := make(map[string]Gun, len(guns))
		for _, g := range guns {
			byID[g.ID] = g
		}
		for _, id := range sel.IDs {
			g, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: unknown gun %q", ErrValidation, id)
			}
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// resolveBearing is the explicit bearing, else for a POINT target the
// bearing from the first gun to target, else north.
func resolveBearing(cfg MissionConfig, guns []Gun, target core.Position3D) float64 {
	if cfg.BearingDeg != nil {
		return *cfg.BearingDeg
	}
	if cfg.TargetType == TargetPoint && len(guns) > 0 {
		return geo.BearingBetween(guns[0].Position, target)
	}
	return 0
}

func delay(v float64) *float64 { return &v }

func buildPhases(cfg MissionConfig, base []AimPoint, bearing float64) ([]AimPoint, []Phase) {
	switch cfg.Control {
	case ControlSequence:
		phases := make([]Phase, len(base))
		points := slices.Clone(base)
		for i := range base {
			points[i].Meta.PhaseIndex = i
			phases[i] = Phase{PhaseIndex: i, Label: fmt.Sprintf("#%d", i+1), AimPointIndices: []int{i}}
			if cfg.PhaseIntervalSec > 0 {
				phases[i].PlannedStartDelaySec = delay(float64(i) * cfg.PhaseIntervalSec)
			}
		}
		return points, phases

	case ControlCreeping:
		forward, _ := geo.ForwardRight(bearing)
		var points []AimPoint
		phases := make([]Phase, cfg.StepsCount)
		for k := range phases {
			indices := make([]int, 0, len(base))
			for _, ap := range base {
				shifted := ap
				shifted.Position = geo.Offset(ap.Position, forward, float64(k)*cfg.StepM)
				shifted.Meta.PhaseIndex = k
				indices = append(indices, len(points))
				points = append(points, shifted)
			}
			phases[k] = Phase{
				PhaseIndex:           k,
				Label:                fmt.Sprintf("Step %d", k+1),
				AimPointIndices:      indices,
				PlannedStartDelaySec: delay(float64(k) * cfg.StepIntervalSec),
			}
		}
		return points, phases
	}

	indices := make([]int, len(base))
	for i := range indices {
		indices[i] = i
	}
	mainPhase := Phase{PhaseIndex: 0, Label: "Main", AimPointIndices: indices}
	if cfg.Control == ControlSimultaneous && cfg.PhaseIntervalSec > 0 {
		mainPhase.PlannedStartDelaySec = delay(0)
	}
	return slices.Clone(base), []Phase{mainPhase}
}

func (p *FirePlan) rounds() int {
	if p.Config.Control == ControlMRSI {
		return p.Config.mrsiRounds()
	}
	return p.Config.RoundsPerGun
}

// buildAssignments distributes each phase over the guns. POINT targets give
// every gun the point, shifted across the sheaf unless CONVERGED; other
// targets are shared round-robin, LINE in edge-inward order.
func (p *FirePlan) buildAssignments() []Assignment {
	assignments := make([]Assignment, len(p.Guns))
	for i, g := range p.Guns {
		assignments[i] = Assignment{GunID: g.ID}
	}
	if len(p.Guns) == 0 {
		return assignments
	}
	width := SheafWidth(p.Config)
	offsets := SheafOffsets(len(p.Guns), width)

	for _, phase := range p.Phases {
		command := func(aimPointIndex int) Command {
			c := Command{
				PhaseIndex:    phase.PhaseIndex,
				AimPointIndex: aimPointIndex,
				Rounds:        p.rounds(),
			}
			if phase.PlannedStartDelaySec != nil {
				c.PhaseStartDelaySec = delay(*phase.PlannedStartDelaySec)
			}
			return c
		}

		if p.Config.TargetType != TargetPoint {
			ordered := phase.AimPointIndices
			if p.Config.TargetType == TargetLine {
				ordered = make([]int, 0, len(phase.AimPointIndices))
				for _, i := range EdgeInward(len(phase.AimPointIndices)) {
					ordered = append(ordered, phase.AimPointIndices[i])
				}
			}
			for g := range assignments {
				for _, idx := range roundRobin(ordered, g, len(p.Guns)) {
					assignments[g].Commands = append(assignments[g].Commands, command(idx))
				}
			}
			continue
		}

		first := p.AimPoints[phase.AimPointIndices[0]].Position
		bearing := resolveBearing(p.Config, p.Guns, first)
		_, right := geo.ForwardRight(bearing)
		for g := range assignments {
			for _, idx := range phase.AimPointIndices {
				if p.Config.SheafType == SheafConverged {
					assignments[g].Commands = append(assignments[g].Commands, command(idx))
					continue
				}
				shifted := p.AimPoints[idx]
				shifted.Position = geo.Offset(shifted.Position, right, offsets[g])
				shifted.Meta.OffsetRightM = offsets[g]
				shifted.Meta.PhaseIndex = phase.PhaseIndex
				shifted.Meta.GunID = p.Guns[g].ID
				p.AimPoints = append(p.AimPoints, shifted)
				assignments[g].Commands = append(assignments[g].Commands, command(len(p.AimPoints)-1))
			}
		}
	}
	return assignments
}

// AimPoint returns aim point i or ErrInvariantViolation.
func (p FirePlan) AimPoint(i int) (AimPoint, error) {
	if i < 0 || i >= len(p.AimPoints) {
		return AimPoint{}, fmt.Errorf("%w: plan corrupted, aim point %d of %d", ErrInvariantViolation, i, len(p.AimPoints))
	}
	return p.AimPoints[i], nil
}

// Check verifies that every command references an existing aim point.
func (p FirePlan) Check() error {
	for _, a := range p.Assignments {
		for _, c := range a.Commands {
			if _, err := p.AimPoint(c.AimPointIndex); err != nil {
				return fmt.Errorf("gun %s phase %d: %w", a.GunID, c.PhaseIndex, err)
			}
		}
	}
	return nil
}

// CurrentPhase returns the phase under the cursor, false once complete.
func (p FirePlan) CurrentPhase() (Phase, bool) {
	if p.Cursor.PhaseIndex < 0 || p.Cursor.PhaseIndex >= len(p.Phases) {
		return Phase{}, false
	}
	return p.Phases[p.Cursor.PhaseIndex], true
}

// PhaseAssignments returns copies of the assignments restricted to one
// phase, omitting guns with nothing to fire.
func (p FirePlan) PhaseAssignments(phaseIndex int) []Assignment {
	var out []Assignment
	for _, a := range p.Assignments {
		var cmds []Command
		for _, c := range a.Commands {
			if c.PhaseIndex == phaseIndex {
				cmds = append(cmds, c)
			}
		}
		if len(cmds) > 0 {
			out = append(out, Assignment{GunID: a.GunID, Commands: cmds})
		}
	}
	return out
}

// Advance returns the plan with its cursor on the next phase.
func (p FirePlan) Advance() FirePlan {
	p.Cursor = Cursor{PhaseIndex: p.Cursor.PhaseIndex + 1}
	return p
}

// Complete reports whether every phase has been fired.
func (p FirePlan) Complete() bool {
	return p.Cursor.PhaseIndex >= len(p.Phases)
}

// WithAdjustment returns the plan carrying a runtime correction state.
func (p FirePlan) WithAdjustment(s adjustment.State) FirePlan {
	p.Runtime = &s
	return p
}
