package planner

import (
	"math"

	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// GoldenAngle is π(3−√5), the angular step of the area spiral.
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

type Role string

const (
	RoleCenter Role = "CENTER"
	RoleLine   Role = "LINE"
	RoleGrid   Role = "GRID"
	RoleArea   Role = "AREA"
)

// AimPointMeta describes where an aim point came from.
type AimPointMeta struct {
	Role           Role    `json:"role"`
	LocalIndex     int     `json:"localIndex"`
	PhaseIndex     int     `json:"phaseIndex"`
	OffsetRightM   float64 `json:"offsetRightM,omitempty"`
	OffsetForwardM float64 `json:"offsetForwardM,omitempty"`
	GunID          string  `json:"gunId,omitempty"`
}

// AimPoint is a world position a gun is laid on.
type AimPoint struct {
	Position core.Position3D `json:"position"`
	Meta     AimPointMeta    `json:"meta"`
}

func configBearing(cfg MissionConfig) float64 {
	if cfg.BearingDeg != nil {
		return *cfg.BearingDeg
	}
	return 0
}

// baseAimPoints generates the target geometry of a validated config.
func baseAimPoints(cfg MissionConfig) []AimPoint {
	switch cfg.TargetType {
	case TargetLine:
		start, end := lineEnds(cfg)
		return LinePoints(start, end, cfg.SpacingM)
	case TargetRectangle:
		return RectanglePoints(*cfg.Center, cfg.WidthM, cfg.LengthM, cfg.SpacingM, configBearing(cfg))
	case TargetCircle:
		return CirclePoints(*cfg.Center, cfg.RadiusM, cfg.AimpointCount)
	}
	return []AimPoint{{Position: *cfg.Point, Meta: AimPointMeta{Role: RoleCenter}}}
}

func lineEnds(cfg MissionConfig) (core.Position3D, core.Position3D) {
	if cfg.Start != nil && cfg.End != nil {
		return *cfg.Start, *cfg.End
	}
	forward, _ := geo.ForwardRight(configBearing(cfg))
	return geo.Offset(*cfg.Center, forward, -cfg.LengthM/2), geo.Offset(*cfg.Center, forward, cfg.LengthM/2)
}

// LinePoints spaces floor(length/spacing)+1 points along start→end, both
// ends inclusive. Altitude follows the start point.
func LinePoints(start, end core.Position3D, spacingM float64) []AimPoint {
	dx, dy := end.X-start.X, end.Y-start.Y
	spacing := math.Max(1, spacingM)
	n := max(1, int(math.Floor(geo.Distance2D(dx, dy)/spacing)))
	points := make([]AimPoint, n+1)
	for i := range points {
		u := float64(i) / float64(n)
		points[i] = AimPoint{
			Position: core.Position3D{X: start.X + dx*u, Y: start.Y + dy*u, Z: start.Z},
			Meta:     AimPointMeta{Role: RoleLine, LocalIndex: i},
		}
	}
	return points
}

// RectanglePoints lays a (xCells+1)×(yCells+1) grid centred on center and
// oriented by the bearing's forward/right basis.
func RectanglePoints(center core.Position3D, widthM, lengthM, spacingM, bearingDeg float64) []AimPoint {
	width := math.Max(1, widthM)
	length := math.Max(1, lengthM)
	spacing := math.Max(1, spacingM)
	forward, right := geo.ForwardRight(bearingDeg)
	xCells := max(1, int(math.Floor(width/spacing)))
	yCells := max(1, int(math.Floor(length/spacing)))

	points := make([]AimPoint, 0, (xCells+1)*(yCells+1))
	for yi := 0; yi <= yCells; yi++ {
		for xi := 0; xi <= xCells; xi++ {
			lateral := -width/2 + width*float64(xi)/float64(xCells)
			depth := -length/2 + length*float64(yi)/float64(yCells)
			p := geo.Offset(geo.Offset(center, right, lateral), forward, depth)
			points = append(points, AimPoint{
				Position: p,
				Meta: AimPointMeta{
					Role:           RoleGrid,
					LocalIndex:     len(points),
					OffsetRightM:   lateral,
					OffsetForwardM: depth,
				},
			})
		}
	}
	return points
}

// CirclePoints samples count+1 points on a golden-angle spiral: the centre
// first, then point i at radius R·sqrt(i/count) and angle i·GoldenAngle.
func CirclePoints(center core.Position3D, radiusM float64, count int) []AimPoint {
	n := max(1, count) + 1
	points := make([]AimPoint, 0, n)
	points = append(points, AimPoint{Position: center, Meta: AimPointMeta{Role: RoleCenter}})
	for i := 1; i < n; i++ {
		r := radiusM * math.Sqrt(float64(i)/float64(n-1))
		sin, cos := math.Sincos(float64(i) * GoldenAngle)
		dx, dy := sin*r, cos*r
		points = append(points, AimPoint{
			Position: center.Add(dx, dy),
			Meta: AimPointMeta{
				Role:           RoleArea,
				LocalIndex:     i,
				OffsetRightM:   dx,
				OffsetForwardM: dy,
			},
		})
	}
	return points
}
