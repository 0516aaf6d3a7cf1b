// Package units converts between degrees, radians and mils.
package units

import "math"

// DefaultMilsPerCircle is the NATO mil system.
const DefaultMilsPerCircle = 6400

func milsOrDefault(milsPerCircle float64) float64 {
	if milsPerCircle <= 0 || math.IsNaN(milsPerCircle) {
		return DefaultMilsPerCircle
	}
	return milsPerCircle
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// MilToRad converts mils to radians for the given mil system.
func MilToRad(mil, milsPerCircle float64) float64 {
	return mil * 2 * math.Pi / milsOrDefault(milsPerCircle)
}

// RadToMil converts radians to mils for the given mil system.
func RadToMil(rad, milsPerCircle float64) float64 {
	return rad * milsOrDefault(milsPerCircle) / (2 * math.Pi)
}

// DegToMil converts degrees to mils.
func DegToMil(deg, milsPerCircle float64) float64 {
	return RadToMil(DegToRad(deg), milsPerCircle)
}

// MilToDeg converts mils to degrees.
func MilToDeg(mil, milsPerCircle float64) float64 {
	return mil * 360 / milsOrDefault(milsPerCircle)
}

// WrapDeg wraps an angle into [0,360).
func WrapDeg(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	// -1e-15 wraps to 360 after the addition above
	if w >= 360 {
		w -= 360
	}
	return w
}

// SignedDeltaDeg returns the signed difference a-b wrapped into (-180,180].
func SignedDeltaDeg(a, b float64) float64 {
	d := WrapDeg(a - b)
	if d > 180 {
		d -= 360
	}
	return d
}
