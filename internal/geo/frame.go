package geo

import (
	"math"

	"github.com/sniperleonid/Calc-sub001/internal/units"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Vec2 is a ground-plane direction or offset.
type Vec2 struct {
	X float64
	Y float64
}

// BearingFromNorthRad is the compass bearing of (dx,dy), clockwise from north.
func BearingFromNorthRad(dx, dy float64) float64 {
	return math.Atan2(dx, dy)
}

// BearingDeg is the compass bearing of (dx,dy) wrapped to [0,360).
func BearingDeg(dx, dy float64) float64 {
	return units.WrapDeg(units.RadToDeg(BearingFromNorthRad(dx, dy)))
}

// BearingBetween is the bearing from one position to another.
func BearingBetween(from, to core.Position3D) float64 {
	return BearingDeg(to.X-from.X, to.Y-from.Y)
}

// Distance2D is the ground-plane length of (dx,dy).
func Distance2D(dx, dy float64) float64 {
	return math.Hypot(dx, dy)
}

// Distance3D is the length of (dx,dy,dz).
func Distance3D(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RotateWorldToFireFrame splits a world vector into components along and
// across a firing bearing. Positive cross points to the right of the bearing.
func RotateWorldToFireFrame(wx, wy, bearingRad float64) (along, cross float64) {
	sin, cos := math.Sincos(bearingRad)
	along = wx*sin + wy*cos
	cross = wx*cos - wy*sin
	return along, cross
}

// WindVector converts a meteorological wind into the world vector it travels along.
func WindVector(speedMps, fromDeg float64) Vec2 {
	toRad := units.DegToRad(units.WrapDeg(fromDeg + 180))
	return Vec2{X: speedMps * math.Sin(toRad), Y: speedMps * math.Cos(toRad)}
}

// ForwardRight returns the unit forward and right vectors of a bearing.
func ForwardRight(bearingDeg float64) (forward, right Vec2) {
	rad := units.DegToRad(units.WrapDeg(bearingDeg))
	forward = Vec2{X: math.Sin(rad), Y: math.Cos(rad)}
	right = Vec2{X: math.Sin(rad + math.Pi/2), Y: math.Cos(rad + math.Pi/2)}
	return forward, right
}

// Offset moves p along vec by distance metres, keeping its altitude.
func Offset(p core.Position3D, vec Vec2, distance float64) core.Position3D {
	return p.Add(vec.X*distance, vec.Y*distance)
}

// TargetFromObserver resolves a polar observation into a world position.
func TargetFromObserver(observer core.Position3D, distance, bearingDeg float64) core.Position3D {
	forward, _ := ForwardRight(bearingDeg)
	return Offset(observer, forward, distance)
}
