package planner

import "strings"

type TargetType string

const (
	TargetPoint     TargetType = "POINT"
	TargetLine      TargetType = "LINE"
	TargetRectangle TargetType = "RECTANGLE"
	TargetCircle    TargetType = "CIRCLE"
)

type SheafType string

const (
	SheafConverged SheafType = "CONVERGED"
	SheafParallel  SheafType = "PARALLEL"
	SheafOpen      SheafType = "OPEN"
)

type ControlType string

const (
	ControlSimultaneous ControlType = "SIMULTANEOUS"
	ControlSequence     ControlType = "SEQUENCE"
	ControlCreeping     ControlType = "CREEPING"
	ControlTOT          ControlType = "TOT"
	ControlMRSI         ControlType = "MRSI"
)

// canonicalToken upper-cases and turns spaces and dashes into underscores.
func canonicalToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ParseTargetType accepts canonical names and the legacy launcher aliases.
func ParseTargetType(s string) (TargetType, bool) {
	switch canonicalToken(s) {
	case "POINT":
		return TargetPoint, true
	case "LINE", "LINEAR":
		return TargetLine, true
	case "RECTANGLE", "RECT", "RECT_AREA":
		return TargetRectangle, true
	case "CIRCLE", "CIRCULAR", "CIRCULAR_AREA":
		return TargetCircle, true
	}
	return TargetPoint, false
}

// ParseSheafType accepts canonical names and the *_SHEAF launcher aliases.
func ParseSheafType(s string) (SheafType, bool) {
	switch canonicalToken(s) {
	case "CONVERGED", "CONVERGE":
		return SheafConverged, true
	case "PARALLEL", "PARALLEL_SHEAF":
		return SheafParallel, true
	case "OPEN", "OPEN_SHEAF":
		return SheafOpen, true
	}
	return SheafConverged, false
}

// ParseControlType accepts canonical names and legacy aliases. The legacy
// ADJUSTMENT control fires like SIMULTANEOUS; corrections are carried by the
// runtime adjustment state instead.
func ParseControlType(s string) (ControlType, bool) {
	switch canonicalToken(s) {
	case "SIMULTANEOUS", "SALVO", "ADJUSTMENT":
		return ControlSimultaneous, true
	case "SEQUENCE", "SEQUENTIAL":
		return ControlSequence, true
	case "CREEPING", "CREEPING_BARRAGE":
		return ControlCreeping, true
	case "TOT", "TIME_ON_TARGET":
		return ControlTOT, true
	case "MRSI":
		return ControlMRSI, true
	}
	return ControlSimultaneous, false
}
