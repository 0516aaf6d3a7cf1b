package solver

import (
	"github.com/sniperleonid/Calc-sub001/internal/trajectory"
	"github.com/sniperleonid/Calc-sub001/internal/units"
)

// Refinement schedule of the elevation search.
const (
	RefineIterations = 4
	RefineCandidates = 11
	InitialSpanMil   = 50.0
)

// shot holds everything fixed while the elevation varies.
type shot struct {
	muzzleVelocity float64
	dragCoeff      float64
	massKg         float64
	milsPerCircle  float64
	wind           trajectory.Vec3
	target         trajectory.Vec3
	step           float64
	horizon        float64
}

type candidate struct {
	elevationMil float64
	miss         trajectory.Approach
}

func evaluate(s shot, elevationMil float64) candidate {
	traj := trajectory.Simulate(trajectory.Params{
		MuzzleVelocity: s.muzzleVelocity,
		ElevationRad:   units.MilToRad(elevationMil, s.milsPerCircle),
		DragCoeff:      s.dragCoeff,
		MassKg:         s.massKg,
		Wind:           s.wind,
		Step:           s.step,
		MaxSeconds:     s.horizon,
	})
	return candidate{
		elevationMil: elevationMil,
		miss:         trajectory.ClosestApproach(traj, s.target),
	}
}

// refineElevation samples RefineCandidates elevations across ±span around the
// current best, keeping the first strict minimum, then halves the span.
func refineElevation(s shot, initialMil float64) candidate {
	center := initialMil
	span := InitialSpanMil
	half := (RefineCandidates - 1) / 2
	var best candidate
	found := false
	for iter := 0; iter < RefineIterations; iter++ {
		for i := -half; i <= half; i++ {
			c := evaluate(s, center+span*float64(i)/float64(half))
			if !found || c.miss.Distance < best.miss.Distance {
				best = c
				found = true
			}
		}
		center = best.elevationMil
		span /= 2
	}
	return best
}
