package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Footprint summarises the ground area covered by a set of aim points.
type Footprint struct {
	AreaM2 float64 `json:"areaM2"`
	WKT    string  `json:"wkt"`
}

// ComputeFootprint returns the convex hull of the points.
// Fewer than three non-collinear points give a zero-area point or line hull.
// Points with non-finite coordinates are skipped.
func ComputeFootprint(points []core.Position3D) Footprint {
	pts := make([]geom.Point, 0, len(points))
	for _, p := range points {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Type: geom.DimXY,
		})
		if err != nil {
			continue
		}
		pts = append(pts, pt)
	}
	if len(pts) == 0 {
		return Footprint{WKT: geom.NewEmptyPoint(geom.DimXY).AsText()}
	}
	hull := geom.NewMultiPoint(pts).AsGeometry().ConvexHull()
	return Footprint{
		AreaM2: hull.Area(),
		WKT:    hull.AsText(),
	}
}

// PathLength is the length of the polyline through the points in order.
// It is zero when the points do not form a valid line string.
func PathLength(points []core.Position3D) float64 {
	if len(points) < 2 {
		return 0
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return 0
	}
	return ls.Length()
}
