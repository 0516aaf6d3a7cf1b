package planner

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

func ptr[T any](v T) *T { return &v }

func twoGuns() []Gun {
	// deliberately out of order
	return []Gun{
		{ID: "g2", Position: core.Position3D{X: 50, Y: -2000}},
		{ID: "g1", Position: core.Position3D{X: -50, Y: -2000}},
	}
}

func TestNormalize_AliasesAndDefaults(t *testing.T) {
	cfg, diags := Normalize(MissionConfig{
		TargetType: "linear",
		SheafType:  "parallel_sheaf",
		Control:    "Time-On-Target",
		Start:      &core.Position3D{},
		End:        &core.Position3D{X: 100},
	})
	assert.Empty(t, diags)
	assert.Equal(t, TargetLine, cfg.TargetType)
	assert.Equal(t, SheafParallel, cfg.SheafType)
	assert.Equal(t, ControlTOT, cfg.Control)
	assert.Equal(t, DefaultSpacingM, cfg.SpacingM)
	assert.Equal(t, DefaultAimpointCount, cfg.AimpointCount)
	assert.Equal(t, DefaultMRSIMinSepSec, cfg.MRSIMinSepSec)
	assert.True(t, cfg.Guns.All)
}

func TestNormalize_UnknownEnumsDiagnosed(t *testing.T) {
	cfg, diags := Normalize(MissionConfig{TargetType: "HEXAGON", SheafType: "WIDE", Control: "RANDOM"})

	assert.Equal(t, TargetPoint, cfg.TargetType)
	assert.Equal(t, SheafConverged, cfg.SheafType)
	assert.Equal(t, ControlSimultaneous, cfg.Control)
	require.Len(t, diags, 3)
	assert.Equal(t, `unrecognized targetType "HEXAGON", using default POINT`, diags[0].String())
}

func TestNormalize_LegacyAdjustmentControl(t *testing.T) {
	cfg, diags := Normalize(MissionConfig{Control: "ADJUSTMENT"})
	assert.Empty(t, diags)
	assert.Equal(t, ControlSimultaneous, cfg.Control)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := MissionConfig{
		TargetType:      "circular_area",
		SheafType:       "open",
		Control:         "mrsi",
		Center:          &core.Position3D{X: 1, Y: 2},
		BearingDeg:      ptr(-90.0),
		MRSIAllowedArcs: []core.Arc{"auto"},
		Guns:            GunSelection{IDs: []string{"a"}},
	}
	once, _ := Normalize(raw)
	twice, diags := Normalize(once)

	assert.Empty(t, diags)
	assert.Equal(t, once, twice)
	assert.Equal(t, 270.0, *once.BearingDeg)
	assert.Equal(t, []core.Arc{core.ArcLow, core.ArcHigh, core.ArcDirect}, once.MRSIAllowedArcs)
}

func TestValidate(t *testing.T) {
	center := &core.Position3D{}
	tests := []struct {
		name string
		cfg  MissionConfig
		msg  string
	}{
		{"point without point", MissionConfig{}, "POINT requires point"},
		{"line without geometry", MissionConfig{TargetType: TargetLine}, "LINE requires start and end"},
		{"line from center without bearing", MissionConfig{TargetType: TargetLine, Center: center}, "LINE requires start and end"},
		{"rectangle without center", MissionConfig{TargetType: TargetRectangle}, "RECTANGLE requires center"},
		{"circle without center", MissionConfig{TargetType: TargetCircle}, "CIRCLE requires center"},
		{"line from center without length", MissionConfig{TargetType: TargetLine, Center: center, BearingDeg: ptr(0.0), SpacingM: 10}, "LINE requires a positive lengthM"},
		{"line from center without spacing", MissionConfig{TargetType: TargetLine, Center: center, BearingDeg: ptr(0.0), LengthM: 100}, "LINE requires a positive spacingM"},
		{"rectangle without size", MissionConfig{TargetType: TargetRectangle, Center: center, SpacingM: 20}, "RECTANGLE requires positive widthM and lengthM"},
		{"rectangle without spacing", MissionConfig{TargetType: TargetRectangle, Center: center, WidthM: 100, LengthM: 100}, "RECTANGLE requires a positive spacingM"},
		{"negative spacing", MissionConfig{TargetType: TargetRectangle, Center: center, WidthM: 100, LengthM: 100, SpacingM: -5}, "spacingM"},
		{"circle without radius", MissionConfig{TargetType: TargetCircle, Center: center, AimpointCount: 5}, "CIRCLE requires a positive radiusM"},
		{"circle without count", MissionConfig{TargetType: TargetCircle, Center: center, RadiusM: 50}, "CIRCLE requires a positive aimpointCount"},
		{"creeping without steps", MissionConfig{Point: center, Control: ControlCreeping, StepM: 50}, "CREEPING requires positive stepM and stepsCount"},
		{"non-finite point", MissionConfig{Point: &core.Position3D{X: math.NaN()}}, "point is not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := Normalize(tt.cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	ok, _ := Normalize(MissionConfig{TargetType: TargetLine, Center: center, BearingDeg: ptr(0.0), LengthM: 100, SpacingM: 20})
	assert.NoError(t, Validate(ok))
}

func TestBuild_MissingGeometryIsNotDefaulted(t *testing.T) {
	center := &core.Position3D{X: 100, Y: 100}
	for name, cfg := range map[string]MissionConfig{
		"circle":    {TargetType: TargetCircle, Center: center},
		"line":      {TargetType: TargetLine, Center: center, BearingDeg: ptr(45.0)},
		"rectangle": {TargetType: TargetRectangle, Center: center},
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := Build(cfg, twoGuns())
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, plan)
		})
	}
}

func TestBuild_LineCount(t *testing.T) {
	plan, err := Build(MissionConfig{
		TargetType: TargetLine,
		Start:      &core.Position3D{X: 0, Y: 0},
		End:        &core.Position3D{X: 100, Y: 0},
		SpacingM:   25,
	}, nil)
	require.NoError(t, err)
	require.Len(t, plan.AimPoints, 5)
	assert.InDelta(t, 25, plan.AimPoints[1].Position.X, 1e-9)
	assert.Equal(t, RoleLine, plan.AimPoints[4].Meta.Role)
	assert.InDelta(t, 100, plan.Summary.LinePathM, 1e-9)
}

func TestBuild_RectangleAndCircleCounts(t *testing.T) {
	rect, err := Build(MissionConfig{
		TargetType: TargetRectangle,
		Center:     &core.Position3D{X: 500, Y: 500},
		WidthM:     100,
		LengthM:    100,
		SpacingM:   50,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, rect.AimPoints, 9)
	assert.InDelta(t, 10000, rect.Summary.Footprint.AreaM2, 1e-6)
	assert.Zero(t, rect.Summary.LinePathM)

	circle, err := Build(MissionConfig{
		TargetType:    TargetCircle,
		Center:        &core.Position3D{},
		RadiusM:       100,
		AimpointCount: 8,
	}, nil)
	require.NoError(t, err)
	require.Len(t, circle.AimPoints, 9)
	assert.Equal(t, RoleCenter, circle.AimPoints[0].Meta.Role)
	last := circle.AimPoints[8].Position
	assert.InDelta(t, 100, math.Hypot(last.X, last.Y), 1e-9)
	for _, ap := range circle.AimPoints {
		assert.LessOrEqual(t, math.Hypot(ap.Position.X, ap.Position.Y), 100+1e-9)
	}
}

func TestBuild_ParallelSheafPoint(t *testing.T) {
	plan, err := Build(MissionConfig{
		TargetType:  TargetPoint,
		SheafType:   SheafParallel,
		Point:       &core.Position3D{X: 0, Y: 0},
		BearingDeg:  ptr(0.0),
		SheafWidthM: 100,
	}, twoGuns())
	require.NoError(t, err)
	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, "g1", plan.Assignments[0].GunID)

	first, err := plan.AimPoint(plan.Assignments[0].Commands[0].AimPointIndex)
	require.NoError(t, err)
	second, err := plan.AimPoint(plan.Assignments[1].Commands[0].AimPointIndex)
	require.NoError(t, err)

	assert.Less(t, first.Position.X, second.Position.X)
	assert.InDelta(t, 0, first.Position.X+second.Position.X, 1e-9)
	assert.InDelta(t, -50, first.Position.X, 1e-9)
	assert.Equal(t, "g1", first.Meta.GunID)
}

func TestBuild_OpenSheafWidensSpread(t *testing.T) {
	plan, err := Build(MissionConfig{
		SheafType:   SheafOpen,
		Point:       &core.Position3D{},
		BearingDeg:  ptr(0.0),
		SheafWidthM: 100,
		OpenFactor:  3,
	}, twoGuns())
	require.NoError(t, err)
	ap, _ := plan.AimPoint(plan.Assignments[1].Commands[0].AimPointIndex)
	assert.InDelta(t, 150, ap.Position.X, 1e-9)
}

func TestBuild_ConvergedPointSharesAimPoint(t *testing.T) {
	plan, err := Build(MissionConfig{Point: &core.Position3D{X: 10, Y: 20}}, twoGuns())
	require.NoError(t, err)
	assert.Len(t, plan.AimPoints, 1)
	for _, a := range plan.Assignments {
		require.Len(t, a.Commands, 1)
		assert.Equal(t, 0, a.Commands[0].AimPointIndex)
	}
}

func TestBuild_CreepingShiftsForward(t *testing.T) {
	plan, err := Build(MissionConfig{
		Point:           &core.Position3D{X: 1000, Y: 1000},
		Control:         ControlCreeping,
		BearingDeg:      ptr(90.0),
		StepM:           50,
		StepsCount:      3,
		StepIntervalSec: 20,
	}, twoGuns())
	require.NoError(t, err)
	require.Len(t, plan.Phases, 3)

	p0 := plan.AimPoints[plan.Phases[0].AimPointIndices[0]].Position
	p2 := plan.AimPoints[plan.Phases[2].AimPointIndices[0]].Position
	assert.Equal(t, 100.0, math.Round(p2.X-p0.X))
	assert.Equal(t, "Step 3", plan.Phases[2].Label)
	require.NotNil(t, plan.Phases[2].PlannedStartDelaySec)
	assert.Equal(t, 40.0, *plan.Phases[2].PlannedStartDelaySec)

	cmds := plan.PhaseAssignments(2)
	require.Len(t, cmds, 2)
	assert.Equal(t, 40.0, *cmds[0].Commands[0].PhaseStartDelaySec)
}

func TestBuild_SequenceAndCursor(t *testing.T) {
	plan, err := Build(MissionConfig{
		TargetType:       TargetLine,
		Start:            &core.Position3D{},
		End:              &core.Position3D{X: 80},
		SpacingM:         40,
		Control:          ControlSequence,
		PhaseIntervalSec: 5,
	}, twoGuns())
	require.NoError(t, err)
	require.Len(t, plan.Phases, 3)
	assert.Equal(t, 10.0, *plan.Phases[2].PlannedStartDelaySec)

	phase, ok := plan.CurrentPhase()
	require.True(t, ok)
	assert.Equal(t, 0, phase.PhaseIndex)

	next := plan.Advance()
	assert.Equal(t, 0, plan.Cursor.PhaseIndex, "advance returns a new value")
	assert.Equal(t, 1, next.Cursor.PhaseIndex)

	done := next.Advance().Advance()
	assert.True(t, done.Complete())
	_, ok = done.CurrentPhase()
	assert.False(t, ok)
}

func TestBuild_LineEdgeInwardRoundRobin(t *testing.T) {
	plan, err := Build(MissionConfig{
		TargetType: TargetLine,
		Start:      &core.Position3D{},
		End:        &core.Position3D{X: 100},
		SpacingM:   25,
	}, twoGuns())
	require.NoError(t, err)

	indices := func(a Assignment) []int {
		var out []int
		for _, c := range a.Commands {
			out = append(out, c.AimPointIndex)
		}
		return out
	}
	// ordered 0,4,1,3,2 split between two guns
	assert.Equal(t, []int{0, 1, 2}, indices(plan.Assignments[0]))
	assert.Equal(t, []int{4, 3}, indices(plan.Assignments[1]))
}

func TestBuild_GunSelection(t *testing.T) {
	plan, err := Build(MissionConfig{Point: &core.Position3D{}, Guns: GunSelection{IDs: []string{"g2"}}}, twoGuns())
	require.NoError(t, err)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "g2", plan.Assignments[0].GunID)

	_, err = Build(MissionConfig{Point: &core.Position3D{}, Guns: GunSelection{IDs: []string{"g9"}}}, twoGuns())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuild_PointBearingFromFirstGun(t *testing.T) {
	plan, err := Build(MissionConfig{Point: &core.Position3D{X: -50, Y: 0}}, twoGuns())
	require.NoError(t, err)
	assert.InDelta(t, 0, plan.Summary.BearingDeg, 1e-9)
	assert.Equal(t, "POINT/CONVERGED/SIMULTANEOUS", plan.Summary.PatternName)
}

func TestAimPoint_InvariantViolation(t *testing.T) {
	plan, err := Build(MissionConfig{Point: &core.Position3D{}}, twoGuns())
	require.NoError(t, err)

	_, err = plan.AimPoint(7)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Contains(t, err.Error(), "plan corrupted")

	broken := *plan
	broken.Assignments = []Assignment{{GunID: "g1", Commands: []Command{{AimPointIndex: 3}}}}
	assert.ErrorIs(t, broken.Check(), ErrInvariantViolation)
	assert.NoError(t, plan.Check())
}

func TestWithAdjustment_LeavesAimPoints(t *testing.T) {
	plan, err := Build(MissionConfig{Point: &core.Position3D{Y: 1000}}, twoGuns())
	require.NoError(t, err)

	adjusted := plan.WithAdjustment(adjustment.New(core.Position3D{Y: 1000}, 200).AdjustRange(core.Position3D{}, 50))
	require.NotNil(t, adjusted.Runtime)
	assert.Nil(t, plan.Runtime)
	assert.Equal(t, plan.AimPoints, adjusted.AimPoints)
}

func TestMissionConfig_JSON(t *testing.T) {
	var cfg MissionConfig
	require.NoError(t, json.Unmarshal([]byte(`{
		"targetType": "LINE",
		"sheafType": "OPEN",
		"control": "CREEPING",
		"center": {"x": 1, "y": 2, "z": 3},
		"bearingDeg": 45,
		"guns": "ALL",
		"mrsiAllowedArcs": ["LOW", "HIGH"]
	}`), &cfg))
	assert.True(t, cfg.Guns.All)
	assert.Equal(t, 45.0, *cfg.BearingDeg)
	assert.Equal(t, 3.0, cfg.Center.Z)

	require.NoError(t, json.Unmarshal([]byte(`{"guns": ["a", "b"]}`), &cfg))
	assert.Equal(t, []string{"a", "b"}, cfg.Guns.IDs)
	assert.Error(t, json.Unmarshal([]byte(`{"guns": "SOME"}`), &cfg))
}

func TestEdgeInward(t *testing.T) {
	assert.Equal(t, []int{0, 4, 1, 3, 2}, EdgeInward(5))
	assert.Equal(t, []int{0, 3, 1, 2}, EdgeInward(4))
	assert.Empty(t, EdgeInward(0))
}

func TestSheafOffsets(t *testing.T) {
	assert.Equal(t, []float64{0}, SheafOffsets(1, 100))
	assert.Equal(t, []float64{-50, 0, 50}, SheafOffsets(3, 100))
	assert.Equal(t, MinSheafWidthM, SheafWidth(MissionConfig{SheafType: SheafParallel, SheafWidthM: 2}))
}
