// pkg/core/solution.go
package core

// Wind is a meteorological wind: speed and the direction it blows FROM.
// HeadwindMps and CrosswindMps, when set, override the decomposition.
type Wind struct {
	SpeedMps     float64  `json:"speedMps"`
	FromDeg      float64  `json:"fromDeg"`
	HeadwindMps  *float64 `json:"headwindMps,omitempty"`
	CrosswindMps *float64 `json:"crosswindMps,omitempty"`
}

// SolveMode selects the evaluation oracle of the solver.
type SolveMode string

const (
	ModeRK4   SolveMode = "rk4"
	ModeTable SolveMode = "table"
)

// FireSolution is the result of one solve call.
// Impact is expressed in the fire frame: X downrange, Y height, Z lateral.
type FireSolution struct {
	ChargeID        string     `json:"chargeId"`
	ElevationMil    float64    `json:"elevMil"`
	ElevationDeg    float64    `json:"elevationDeg"`
	AzimuthDeg      float64    `json:"azimuthDeg"`
	DeltaAzimuthDeg float64    `json:"deltaAzimuthDeg"`
	TimeOfFlightSec float64    `json:"tofSec"`
	MuzzleVelocity  float64    `json:"muzzleVel"`
	DriftM          float64    `json:"driftMeters"`
	Impact          Position3D `json:"impact"`
	MissDistance    float64    `json:"missDistance"`
	Arc             Arc        `json:"arcType"`
	Mode            SolveMode  `json:"solverMode"`
}

// WithinTolerance reports whether the miss distance is acceptable.
func (s FireSolution) WithinTolerance(toleranceM float64) bool {
	return s.MissDistance <= toleranceM
}
