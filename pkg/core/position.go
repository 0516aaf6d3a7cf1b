// pkg/core/position.go
package core

import "math"

// Position3D is a world position in metres.
// X is easting, Y is northing and Z is altitude.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Position2D is a ground-plane position in metres.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// XY drops the altitude.
func (p Position3D) XY() Position2D {
	return Position2D{X: p.X, Y: p.Y}
}

// Add returns p shifted by the given ground-plane offset.
func (p Position3D) Add(dx, dy float64) Position3D {
	return Position3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
}

// IsFinite reports whether every component is a finite number.
func (p Position3D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}
