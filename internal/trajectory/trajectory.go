// Package trajectory integrates projectile motion under gravity and quadratic
// wind-relative drag.
//
// The simulation runs in the fire frame: X is downrange along the firing
// bearing, Y is height above the muzzle and Z is lateral (positive right).
package trajectory

import (
	"math"
)

// Gravity is the vertical acceleration in m/s².
const Gravity = 9.81

// Defaults for Params.
const (
	DefaultStep       = 0.02
	DefaultMaxSeconds = 60.0
)

// Vec3 is a fire-frame vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point is one sampled trajectory node.
type Point struct {
	T float64 `json:"t"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Params configures a simulation. Zero Step and MaxSeconds take the defaults.
type Params struct {
	MuzzleVelocity float64
	ElevationRad   float64
	AzimuthRad     float64
	DragCoeff      float64
	MassKg         float64
	Wind           Vec3
	Step           float64
	MaxSeconds     float64
	// KeepAloft disables stopping when the projectile comes back below the muzzle.
	KeepAloft bool
}

// Trajectory is the sampled flight path.
type Trajectory struct {
	Points       []Point `json:"points"`
	TimeOfFlight float64 `json:"tofSec"`
	MaxHeight    float64 `json:"maxHeight"`
}

// Simulate integrates the flight with a fixed-step RK4 scheme.
func Simulate(p Params) Trajectory {
	dt := p.Step
	if dt <= 0 {
		dt = DefaultStep
	}
	ttl := p.MaxSeconds
	if ttl <= 0 {
		ttl = DefaultMaxSeconds
	}
	mass := p.MassKg
	if mass <= 0 {
		mass = 1
	}
	k := p.DragCoeff / math.Max(0.001, mass)
	wind := p.Wind

	deriv := func(s state) state {
		rvx := s[3] - wind.X
		rvy := s[4] - wind.Y
		rvz := s[5] - wind.Z
		rel := math.Sqrt(rvx*rvx + rvy*rvy + rvz*rvz)
		return state{
			s[3], s[4], s[5],
			-k * rel * rvx,
			-k*rel*rvy - Gravity,
			-k * rel * rvz,
		}
	}

	cosEl := math.Cos(p.ElevationRad)
	s := state{
		0, 0, 0,
		p.MuzzleVelocity * cosEl * math.Cos(p.AzimuthRad),
		p.MuzzleVelocity * math.Sin(p.ElevationRad),
		p.MuzzleVelocity * cosEl * math.Sin(p.AzimuthRad),
	}

	steps := int(math.Ceil(ttl/dt - 1e-9))
	points := make([]Point, 1, min(steps+1, 4096))
	maxHeight := 0.0
	// pastApex latches once vy has been non-positive, so the launch segment never stops the run
	pastApex := s[4] <= 0

	for i := 1; i <= steps; i++ {
		s = rk4Step(s, dt, deriv)
		t := float64(i) * dt
		if s[1] > maxHeight {
			maxHeight = s[1]
		}
		points = append(points, Point{T: t, X: s[0], Y: s[1], Z: s[2]})
		if s[4] <= 0 {
			pastApex = true
		}
		if !p.KeepAloft && pastApex && s[1] < 0 {
			break
		}
	}

	return Trajectory{
		Points:       points,
		TimeOfFlight: points[len(points)-1].T,
		MaxHeight:    maxHeight,
	}
}

// Approach is the closest point of a trajectory to a target.
type Approach struct {
	Distance float64 `json:"distance"`
	T        float64 `json:"t"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
}

// ClosestApproach scans every node and every segment between nodes and
// returns the true closest point to target.
func ClosestApproach(traj Trajectory, target Vec3) Approach {
	best := Approach{Distance: math.Inf(1)}
	pts := traj.Points
	for i, p := range pts {
		if d := dist(p.X-target.X, p.Y-target.Y, p.Z-target.Z); d < best.Distance {
			best = Approach{Distance: d, T: p.T, X: p.X, Y: p.Y, Z: p.Z}
		}
		if i == 0 {
			continue
		}
		a := pts[i-1]
		abx, aby, abz, abt := p.X-a.X, p.Y-a.Y, p.Z-a.Z, p.T-a.T
		len2 := abx*abx + aby*aby + abz*abz
		if len2 == 0 {
			continue
		}
		u := ((target.X-a.X)*abx + (target.Y-a.Y)*aby + (target.Z-a.Z)*abz) / len2
		u = math.Max(0, math.Min(1, u))
		ix, iy, iz := a.X+abx*u, a.Y+aby*u, a.Z+abz*u
		if d := dist(ix-target.X, iy-target.Y, iz-target.Z); d < best.Distance {
			best = Approach{Distance: d, T: a.T + abt*u, X: ix, Y: iy, Z: iz}
		}
	}
	return best
}

// GroundImpact interpolates the first crossing of the muzzle height plane on the way down.
// A shot that starts level or downward crosses at the muzzle itself.
// It returns false when the trajectory never comes back to height zero.
func GroundImpact(traj Trajectory) (Point, bool) {
	pts := traj.Points
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if a.Y >= 0 && b.Y <= 0 {
			dy := b.Y - a.Y
			if dy == 0 {
				dy = 1
			}
			u := -a.Y / dy
			return Point{
				T: a.T + (b.T-a.T)*u,
				X: a.X + (b.X-a.X)*u,
				Y: 0,
				Z: a.Z + (b.Z-a.Z)*u,
			}, true
		}
	}
	return Point{}, false
}

func dist(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
