// Package atmosphere holds the height and wind corrections applied to firing data.
package atmosphere

import (
	"math"

	"github.com/sniperleonid/Calc-sub001/internal/units"
)

// EmpiricalHeightSlope is the fallback elevation change (mils per metre of
// height difference at 1 m range) used when no table sensitivity exists.
const EmpiricalHeightSlope = 140

// HeightCorrection adjusts a base elevation for the altitude difference
// between gun and target. dElevPer100m is the table sensitivity, NaN when absent.
// Large negative height differences damp the table correction to 60%.
func HeightCorrection(baseElevationMil, heightDiff, distance, dElevPer100m float64) float64 {
	if isFinite(dElevPer100m) {
		correction := heightDiff / 100 * dElevPer100m
		if heightDiff < -100 {
			correction *= 0.6
		}
		return baseElevationMil - correction
	}
	return baseElevationMil + EmpiricalHeightSlope*heightDiff/math.Max(100, distance)
}

// TOFHeightCorrection adjusts a table time of flight for altitude difference.
// It returns NaN when the base TOF is unknown.
func TOFHeightCorrection(baseTOF, heightDiff, tofPer100m float64) float64 {
	if !isFinite(baseTOF) {
		return math.NaN()
	}
	if !isFinite(tofPer100m) {
		return baseTOF
	}
	return baseTOF + heightDiff/100*tofPer100m
}

// WindDrift is the lateral drift caused by crosswind over a time of flight
// and the azimuth change that would cancel it.
type WindDrift struct {
	DriftM          float64
	DeltaAzimuthDeg float64
}

// WindCorrection estimates drift as crosswind × TOF.
func WindCorrection(crossWindMps, tofSec, distance float64) WindDrift {
	drift := crossWindMps * tofSec
	return WindDrift{
		DriftM:          drift,
		DeltaAzimuthDeg: units.RadToDeg(math.Atan2(drift, math.Max(1, distance))),
	}
}

// AzimuthCorrectionDeg is the azimuth change that brings a lateral miss of
// missZ metres back onto the line of fire.
func AzimuthCorrectionDeg(missZ, distance float64) float64 {
	return units.RadToDeg(math.Atan2(-missZ, math.Max(1, distance)))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
