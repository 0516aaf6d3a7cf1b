package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrValidation = errors.New("mission validation failed")

// Numeric defaults filled by Normalize when a field is absent.
const (
	DefaultSpacingM      = 40.0
	DefaultWidthM        = 200.0
	DefaultLengthM       = 200.0
	DefaultRadiusM       = 100.0
	DefaultAimpointCount = 10
	DefaultSheafWidthM   = 100.0
	DefaultOpenFactor    = 2.0
	DefaultStepM         = 50.0
	DefaultStepsCount    = 1
	DefaultRoundsPerGun  = 1
	DefaultMRSIMinSepSec = 2.0
)

// GunSelection is either every gun ("ALL") or an explicit id list.
type GunSelection struct {
	All bool
	IDs []string
}

func (g GunSelection) MarshalJSON() ([]byte, error) {
	if g.All {
		return json.Marshal("ALL")
	}
	return json.Marshal(g.IDs)
}

func (g *GunSelection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if !strings.EqualFold(strings.TrimSpace(s), "ALL") {
			return fmt.Errorf("invalid gun selection %q", s)
		}
		*g = GunSelection{All: true}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("invalid gun selection: %w", err)
	}
	*g = GunSelection{IDs: ids}
	return nil
}

// MissionConfig is the external fire mission description.
type MissionConfig struct {
	TargetType TargetType  `json:"targetType"`
	SheafType  SheafType   `json:"sheafType"`
	Control    ControlType `json:"control"`

	Point         *core.Position3D `json:"point,omitempty"`
	Start         *core.Position3D `json:"start,omitempty"`
	End           *core.Position3D `json:"end,omitempty"`
	Center        *core.Position3D `json:"center,omitempty"`
	BearingDeg    *float64         `json:"bearingDeg,omitempty"`
	LengthM       float64          `json:"lengthM,omitempty"`
	WidthM        float64          `json:"widthM,omitempty"`
	RadiusM       float64          `json:"radiusM,omitempty"`
	SpacingM      float64          `json:"spacingM,omitempty"`
	AimpointCount int              `json:"aimpointCount,omitempty"`

	SheafWidthM float64 `json:"sheafWidthM,omitempty"`
	OpenFactor  float64 `json:"openFactor,omitempty"`

	PhaseIntervalSec float64    `json:"phaseIntervalSec,omitempty"`
	StepM            float64    `json:"stepM,omitempty"`
	StepsCount       int        `json:"stepsCount,omitempty"`
	StepIntervalSec  float64    `json:"stepIntervalSec,omitempty"`
	DesiredImpactSec *float64   `json:"desiredImpactSec,omitempty"`
	MRSIRounds       int        `json:"mrsiRounds,omitempty"`
	MRSIMinSepSec    float64    `json:"mrsiMinSepSec,omitempty"`
	MRSIAllowedArcs  []core.Arc `json:"mrsiAllowedArcs,omitempty"`
	MRSIMaxRounds    int        `json:"mrsiMaxRounds,omitempty"`

	Guns         GunSelection `json:"guns"`
	RoundsPerGun int          `json:"roundsPerGun,omitempty"`
}

// Diagnostic reports an input value that was replaced by a default.
type Diagnostic struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Default string `json:"default"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("unrecognized %s %q, using default %s", d.Field, d.Value, d.Default)
}

// Normalize maps every enum to its canonical value and fills absent numeric
// fields that the target and control types do not require. Unknown enums fall back to POINT, CONVERGED and SIMULTANEOUS with a
// Diagnostic each. Normalizing a normalized config is a no-op.
func Normalize(cfg MissionConfig) (MissionConfig, []Diagnostic) {
	var diags []Diagnostic
	note := func(field, value, def string) {
		diags = append(diags, Diagnostic{Field: field, Value: value, Default: def})
	}

	if t, ok := ParseTargetType(string(cfg.TargetType)); ok {
		cfg.TargetType = t
	} else {
		if cfg.TargetType != "" {
			note("targetType", string(cfg.TargetType), string(t))
		}
		cfg.TargetType = t
	}
	if s, ok := ParseSheafType(string(cfg.SheafType)); ok {
		cfg.SheafType = s
	} else {
		if cfg.SheafType != "" {
			note("sheafType", string(cfg.SheafType), string(s))
		}
		cfg.SheafType = s
	}
	if c, ok := ParseControlType(string(cfg.Control)); ok {
		cfg.Control = c
	} else {
		if cfg.Control != "" {
			note("control", string(cfg.Control), string(c))
		}
		cfg.Control = c
	}

	if len(cfg.MRSIAllowedArcs) > 0 {
		arcs := make([]core.Arc, 0, len(cfg.MRSIAllowedArcs))
		for _, a := range cfg.MRSIAllowedArcs {
			arc, err := core.ParseArc(string(a))
			if err != nil {
				note("mrsiAllowedArcs", string(a), "dropped")
				continue
			}
			if arc == core.ArcAuto {
				arcs = append(arcs, arc.SearchOrder()...)
				continue
			}
			arcs = append(arcs, arc)
		}
		cfg.MRSIAllowedArcs = arcs
	}

	if cfg.BearingDeg != nil {
		b := wrapBearing(*cfg.BearingDeg)
		cfg.BearingDeg = &b
	}
	// Geometry the target or control type requires is left for Validate.
	lineByCenter := cfg.TargetType == TargetLine && (cfg.Start == nil || cfg.End == nil)
	rectangle := cfg.TargetType == TargetRectangle
	if !lineByCenter && !rectangle {
		fillFloat(&cfg.SpacingM, DefaultSpacingM)
		fillFloat(&cfg.LengthM, DefaultLengthM)
	}
	if !rectangle {
		fillFloat(&cfg.WidthM, DefaultWidthM)
	}
	if cfg.TargetType != TargetCircle {
		fillFloat(&cfg.RadiusM, DefaultRadiusM)
		fillInt(&cfg.AimpointCount, DefaultAimpointCount)
	}
	if cfg.Control != ControlCreeping {
		fillFloat(&cfg.StepM, DefaultStepM)
		fillInt(&cfg.StepsCount, DefaultStepsCount)
	}
	fillFloat(&cfg.SheafWidthM, DefaultSheafWidthM)
	fillFloat(&cfg.OpenFactor, DefaultOpenFactor)
	fillInt(&cfg.RoundsPerGun, DefaultRoundsPerGun)
	fillFloat(&cfg.MRSIMinSepSec, DefaultMRSIMinSepSec)
	if !cfg.Guns.All && len(cfg.Guns.IDs) == 0 {
		cfg.Guns = GunSelection{All: true}
	}
	return cfg, diags
}

func fillFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func fillInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func wrapBearing(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	return w
}

// mrsiRounds is the rounds per gun of an MRSI mission.
func (c MissionConfig) mrsiRounds() int {
	if c.MRSIRounds > 0 {
		return c.MRSIRounds
	}
	return c.RoundsPerGun
}

// Validate checks the fields required by the target and control types and
// returns the first problem wrapped in ErrValidation.
func Validate(cfg MissionConfig) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
	}
	positions := []struct {
		name string
		pos  *core.Position3D
	}{{"point", cfg.Point}, {"start", cfg.Start}, {"end", cfg.End}, {"center", cfg.Center}}
	for _, p := range positions {
		if p.pos != nil && !p.pos.IsFinite() {
			return invalid("%s is not finite", p.name)
		}
	}

	switch cfg.TargetType {
	case TargetPoint:
		if cfg.Point == nil {
			return invalid("POINT requires point")
		}
	case TargetLine:
		if cfg.Start == nil || cfg.End == nil {
			if cfg.Center == nil || cfg.BearingDeg == nil {
				return invalid("LINE requires start and end, or center, bearingDeg, lengthM and spacingM")
			}
			if cfg.LengthM <= 0 {
				return invalid("LINE requires a positive lengthM")
			}
		}
		if cfg.SpacingM <= 0 {
			return invalid("LINE requires a positive spacingM")
		}
	case TargetRectangle:
		switch {
		case cfg.Center == nil:
			return invalid("RECTANGLE requires center")
		case cfg.WidthM <= 0 || cfg.LengthM <= 0:
			return invalid("RECTANGLE requires positive widthM and lengthM")
		case cfg.SpacingM <= 0:
			return invalid("RECTANGLE requires a positive spacingM")
		}
	case TargetCircle:
		switch {
		case cfg.Center == nil:
			return invalid("CIRCLE requires center")
		case cfg.RadiusM <= 0:
			return invalid("CIRCLE requires a positive radiusM")
		case cfg.AimpointCount <= 0:
			return invalid("CIRCLE requires a positive aimpointCount")
		}
	default:
		return invalid("unknown targetType %q", cfg.TargetType)
	}

	switch cfg.Control {
	case ControlCreeping:
		if cfg.StepM <= 0 || cfg.StepsCount <= 0 {
			return invalid("CREEPING requires positive stepM and stepsCount")
		}
		if cfg.StepIntervalSec < 0 {
			return invalid("CREEPING requires a non-negative stepIntervalSec")
		}
	case ControlMRSI:
		if cfg.mrsiRounds() <= 0 {
			return invalid("MRSI requires positive mrsiRounds")
		}
		if cfg.MRSIMinSepSec < 0 {
			return invalid("MRSI requires a non-negative mrsiMinSepSec")
		}
	case ControlSimultaneous, ControlSequence, ControlTOT:
	default:
		return invalid("unknown control %q", cfg.Control)
	}

	if cfg.RoundsPerGun <= 0 {
		return invalid("roundsPerGun must be positive")
	}
	if cfg.SheafType != SheafConverged && (cfg.SheafWidthM <= 0 || cfg.OpenFactor <= 0) {
		return invalid("%s sheaf requires positive sheafWidthM and openFactor", cfg.SheafType)
	}
	return nil
}
