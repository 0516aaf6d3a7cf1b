// Package adjustment tracks spotter corrections against a mission target
// without touching the static plan.
package adjustment

import (
	"math"
	"strings"

	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/internal/units"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// DefaultBracketM is the opening bracket of a new adjustment.
const DefaultBracketM = 200.0

// MinBracketM is the smallest bracket halving can reach.
const MinBracketM = 1.0

// Shift is one applied correction in world metres.
type Shift struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// State is an immutable correction state; every transition returns a new value.
type State struct {
	BaseTarget    core.Position3D `json:"baseTarget"`
	CurrentTarget core.Position3D `json:"currentTarget"`
	BracketSizeM  float64         `json:"bracketSizeM"`
	History       []Shift         `json:"history"`
}

// New starts an adjustment on base. A non-positive bracket uses DefaultBracketM.
func New(base core.Position3D, bracketSizeM float64) State {
	if bracketSizeM <= 0 || math.IsNaN(bracketSizeM) {
		bracketSizeM = DefaultBracketM
	}
	return State{
		BaseTarget:    base,
		CurrentTarget: base,
		BracketSizeM:  math.Max(MinBracketM, bracketSizeM),
	}
}

func (s State) shift(origin core.Position3D, rangeM, directionM float64) State {
	forward, right := geo.ForwardRight(geo.BearingBetween(origin, s.CurrentTarget))
	dx := forward.X*rangeM + right.X*directionM
	dy := forward.Y*rangeM + right.Y*directionM

	history := make([]Shift, len(s.History), len(s.History)+1)
	copy(history, s.History)
	s.History = append(history, Shift{DX: dx, DY: dy})
	s.CurrentTarget = s.CurrentTarget.Add(dx, dy)
	return s
}

// AdjustRange moves the target deltaM along the origin→target line.
func (s State) AdjustRange(origin core.Position3D, deltaM float64) State {
	return s.shift(origin, deltaM, 0)
}

// AdjustDirection moves the target deltaM to the right of the origin→target line.
func (s State) AdjustDirection(origin core.Position3D, deltaM float64) State {
	return s.shift(origin, 0, deltaM)
}

// Observation is a parsed spotting report.
type Observation int

const (
	ObservationUnknown Observation = iota
	ObservationOver
	ObservationShort
)

// ParseObservation recognizes OVER/SHORT and ПЕРЕЛ/НЕДОЛ in any case.
func ParseObservation(text string) Observation {
	t := strings.ToUpper(text)
	switch {
	case strings.Contains(t, "OVER"), strings.Contains(t, "ПЕРЕЛ"):
		return ObservationOver
	case strings.Contains(t, "SHORT"), strings.Contains(t, "НЕДОЛ"):
		return ObservationShort
	}
	return ObservationUnknown
}

// AutoBracket halves the bracket and shifts range by the new size: back for
// an over, forward for a short. Unrecognized text leaves the state as is.
func (s State) AutoBracket(origin core.Position3D, text string) (State, bool) {
	obs := ParseObservation(text)
	if obs == ObservationUnknown {
		return s, false
	}
	s.BracketSizeM = math.Max(MinBracketM, s.BracketSizeM/2)
	sign := 1.0
	if obs == ObservationOver {
		sign = -1
	}
	return s.AdjustRange(origin, sign*s.BracketSizeM), true
}

// Offset is the accumulated world shift from the base target.
func (s State) Offset() (dx, dy float64) {
	return s.CurrentTarget.X - s.BaseTarget.X, s.CurrentTarget.Y - s.BaseTarget.Y
}

// Significant reports whether the offset is large enough to apply.
func (s State) Significant() bool {
	dx, dy := s.Offset()
	return math.Abs(dx) > 1e-6 || math.Abs(dy) > 1e-6
}

// WindComponents is a wind split relative to a fire bearing.
type WindComponents struct {
	SpeedMps       float64 `json:"speedMps"`
	FromDeg        float64 `json:"fromDeg"`
	FireBearingDeg float64 `json:"bearingFireDeg"`
	RelativeDeg    float64 `json:"relativeDeg"`
	HeadwindMps    float64 `json:"headwindMps"`
	CrosswindMps   float64 `json:"crosswindMps"`
}

// DecomposeWind projects the direction the wind travels (from+180°) onto
// the fire bearing. RelativeDeg is that direction relative to the bearing, in (-180,180].
func DecomposeWind(w core.Wind, fireBearingDeg float64) WindComponents {
	from := units.WrapDeg(w.FromDeg)
	bearing := units.WrapDeg(fireBearingDeg)
	rel := units.SignedDeltaDeg(from+180, bearing)
	delta := units.DegToRad(rel)
	return WindComponents{
		SpeedMps:       w.SpeedMps,
		FromDeg:        from,
		FireBearingDeg: bearing,
		RelativeDeg:    rel,
		HeadwindMps:    w.SpeedMps * math.Cos(delta),
		CrosswindMps:   w.SpeedMps * math.Sin(delta),
	}
}

// WindForShot decomposes the wind for a gun-target pair. Coincident
// positions fall back to fallbackBearingDeg. The result carries explicit
// head and cross components.
func WindForShot(gun, target core.Position3D, w core.Wind, fallbackBearingDeg float64) core.Wind {
	bearing := fallbackBearingDeg
	if geo.Distance2D(target.X-gun.X, target.Y-gun.Y) > 0.01 {
		bearing = geo.BearingBetween(gun, target)
	}
	c := DecomposeWind(w, bearing)
	return core.Wind{
		SpeedMps:     c.SpeedMps,
		FromDeg:      c.FromDeg,
		HeadwindMps:  &c.HeadwindMps,
		CrosswindMps: &c.CrosswindMps,
	}
}
