package geo

import (
	"errors"
	"math"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// ErrNoIntersection is returned when no pair of bearings intersects.
var ErrNoIntersection = errors.New("unable to triangulate with provided bearings")

// BearingObservation is an observer position and the bearing it reported.
type BearingObservation struct {
	Observer   core.Position2D `json:"observer"`
	BearingDeg float64         `json:"bearingDeg"`
}

// Triangulation is an estimated source position.
type Triangulation struct {
	Position      core.Position2D `json:"estimatedPosition"`
	Confidence    float64         `json:"confidence"`
	Intersections int             `json:"intersections"`
}

// Triangulate intersects every pair of observed bearings and averages the
// intersections. method "sound" carries lower confidence than crater analysis.
func Triangulate(method string, obs []BearingObservation) (Triangulation, error) {
	var sumX, sumY float64
	n := 0
	for i := 0; i < len(obs)-1; i++ {
		for j := i + 1; j < len(obs); j++ {
			p, ok := intersectBearings(obs[i], obs[j])
			if !ok {
				continue
			}
			sumX += p.X
			sumY += p.Y
			n++
		}
	}
	if n == 0 {
		return Triangulation{}, ErrNoIntersection
	}

	k := 0.85
	if method == "sound" {
		k = 0.7
	}
	return Triangulation{
		Position:      core.Position2D{X: sumX / float64(n), Y: sumY / float64(n)},
		Confidence:    math.Min(1, k*float64(n)/float64(len(obs))),
		Intersections: n,
	}, nil
}

func intersectBearings(a, b BearingObservation) (core.Position2D, bool) {
	d1, _ := ForwardRight(a.BearingDeg)
	d2, _ := ForwardRight(b.BearingDeg)
	det := d1.X*(-d2.Y) - (-d2.X)*d1.Y
	if math.Abs(det) < 1e-6 {
		return core.Position2D{}, false
	}
	dx := b.Observer.X - a.Observer.X
	dy := b.Observer.Y - a.Observer.Y
	t := (dx*(-d2.Y) - (-d2.X)*dy) / det
	return core.Position2D{X: a.Observer.X + d1.X*t, Y: a.Observer.Y + d1.Y*t}, true
}
