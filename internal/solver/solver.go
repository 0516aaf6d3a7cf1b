// Package solver computes firing solutions by multi-arc, multi-charge search
// over the trajectory simulator, or by direct range table lookup.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sniperleonid/Calc-sub001/internal/atmosphere"
	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/internal/trajectory"
	"github.com/sniperleonid/Calc-sub001/internal/units"
	"github.com/sniperleonid/Calc-sub001/internal/weapons"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrNoSolution = errors.New("no firing solution")

// Seeds used when an arc has no range table.
const (
	SeedLowMil  = 300.0
	SeedHighMil = 900.0
)

// Settings are the request defaults applied to zero fields.
type Settings struct {
	Step       float64
	Horizon    float64
	ToleranceM float64
	Mode       core.SolveMode
}

// DefaultSettings returns the stock integration step, horizon and tolerance.
func DefaultSettings() Settings {
	return Settings{
		Step:       trajectory.DefaultStep,
		Horizon:    trajectory.DefaultMaxSeconds,
		ToleranceM: 10,
		Mode:       core.ModeRK4,
	}
}

// Request is one solve call.
type Request struct {
	Gun               core.Position3D `json:"gunPos"`
	Target            core.Position3D `json:"targetPos"`
	Wind              core.Wind       `json:"wind"`
	WeaponID          string          `json:"weaponId"`
	Arc               core.Arc        `json:"arc"`
	ToleranceM        float64         `json:"toleranceMeters"`
	Step              float64         `json:"dt"`
	Horizon           float64         `json:"ttl"`
	PreferredChargeID string          `json:"preferredChargeId,omitempty"`
	Mode              core.SolveMode  `json:"mode,omitempty"`
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithSettings replaces the request defaults.
func WithSettings(cfg Settings) Option {
	return func(s *Solver) { s.settings = cfg }
}

// Solver resolves weapons and tables through injected providers.
type Solver struct {
	weapons  weapons.Provider
	tables   tables.Provider
	settings Settings
	logger   *slog.Logger

	solves metric.Int64Counter
	misses metric.Float64Histogram
}

// New creates a Solver. tp may be nil when no range tables are available.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(wp weapons.Provider, tp tables.Provider, opts ...Option) (*Solver, error) {
	s := &Solver{
		weapons:  wp,
		tables:   tp,
		settings: DefaultSettings(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := meter()
	var err error
	s.solves, err = m.Int64Counter(
		"solver.solves",
		metric.WithDescription("Total solve calls by arc and mode"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating solves counter: %w", err)
	}
	s.misses, err = m.Float64Histogram(
		"solver.miss_distance",
		metric.WithDescription("Miss distance of returned solutions"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating miss histogram: %w", err)
	}
	return s, nil
}

func (s *Solver) withDefaults(req Request) Request {
	if req.Step <= 0 {
		req.Step = s.settings.Step
	}
	if req.Horizon <= 0 {
		req.Horizon = s.settings.Horizon
	}
	if req.ToleranceM <= 0 {
		req.ToleranceM = s.settings.ToleranceM
	}
	if req.Mode == "" {
		req.Mode = s.settings.Mode
	}
	if req.Arc == "" {
		req.Arc = core.ArcAuto
	}
	return req
}

// geometry is the gun-to-target relation shared by every candidate.
type geometry struct {
	rangeM     float64
	heightDiff float64
	bearingRad float64
	headwind   float64
	crosswind  float64
}

func resolveGeometry(req Request) geometry {
	dx := req.Target.X - req.Gun.X
	dy := req.Target.Y - req.Gun.Y
	g := geometry{
		rangeM:     geo.Distance2D(dx, dy),
		heightDiff: req.Target.Z - req.Gun.Z,
		bearingRad: geo.BearingFromNorthRad(dx, dy),
	}
	w := geo.WindVector(req.Wind.SpeedMps, req.Wind.FromDeg)
	g.headwind, g.crosswind = geo.RotateWorldToFireFrame(w.X, w.Y, g.bearingRad)
	if req.Wind.HeadwindMps != nil {
		g.headwind = *req.Wind.HeadwindMps
	}
	if req.Wind.CrosswindMps != nil {
		g.crosswind = *req.Wind.CrosswindMps
	}
	return g
}

// Solve returns the minimum-miss solution across arcs and charges. A miss
// above tolerance is not an error; callers check WithinTolerance.
func (s *Solver) Solve(ctx context.Context, req Request) (core.FireSolution, error) {
	req = s.withDefaults(req)
	weapon, err := s.weapons.Weapon(ctx, req.WeaponID)
	if err != nil {
		return core.FireSolution{}, fmt.Errorf("solve: %w", err)
	}
	set, err := s.loadTables(ctx, weapon)
	if err != nil {
		return core.FireSolution{}, fmt.Errorf("solve: %w", err)
	}
	g := resolveGeometry(req)

	if req.Mode == core.ModeTable {
		for _, arc := range req.Arc.SearchOrder() {
			if sol, ok := solveFromTable(set.ForArc(arc), arc, weapon, g, req.PreferredChargeID); ok {
				s.record(ctx, sol)
				return sol, nil
			}
		}
		s.logger.Debug("no table covers request, simulating", "weapon", weapon.ID, "range", g.rangeM)
	}

	sol, err := s.solveRK4(ctx, req, weapon, set, g)
	if err != nil {
		return core.FireSolution{}, err
	}
	s.record(ctx, sol)
	return sol, nil
}

func (s *Solver) loadTables(ctx context.Context, w core.WeaponProfile) (tables.Set, error) {
	if s.tables == nil || (w.Tables == core.TablePaths{}) {
		return tables.Set{}, nil
	}
	return s.tables.Tables(ctx, w.ID, w.Tables)
}

type guess struct {
	chargeID    string
	elevMil     float64
	elevPer100m float64
}

// initialGuesses inverts the arc table by nearest range per charge, or seeds
// every weapon charge when the arc has no table.
func initialGuesses(tbl *tables.Table, arc core.Arc, weapon core.WeaponProfile, rangeM float64, preferred string) []guess {
	var out []guess
	if tbl != nil && len(tbl.Charges) > 0 {
		for _, id := range tbl.Charges {
			if preferred != "" && id != preferred {
				continue
			}
			row, ok := tbl.Charge(id).Nearest(rangeM)
			if !ok {
				continue
			}
			out = append(out, guess{chargeID: id, elevMil: row.ElevationMil, elevPer100m: row.ElevPer100m})
		}
		return out
	}
	seed := SeedLowMil
	if arc == core.ArcHigh {
		seed = SeedHighMil
	}
	for _, c := range weapon.Charges {
		if preferred != "" && c.ID != preferred {
			continue
		}
		out = append(out, guess{chargeID: c.ID, elevMil: seed, elevPer100m: math.NaN()})
	}
	return out
}

func (s *Solver) solveRK4(ctx context.Context, req Request, weapon core.WeaponProfile, set tables.Set, g geometry) (core.FireSolution, error) {
	var best core.FireSolution
	found := false
	for _, arc := range req.Arc.SearchOrder() {
		for _, gs := range initialGuesses(set.ForArc(arc), arc, weapon, g.rangeM, req.PreferredChargeID) {
			if err := ctx.Err(); err != nil {
				return core.FireSolution{}, err
			}
			charge, ok := weapon.Charge(gs.chargeID)
			if !ok {
				continue
			}
			initial := atmosphere.HeightCorrection(gs.elevMil, g.heightDiff, g.rangeM, gs.elevPer100m)
			c := refineElevation(shot{
				muzzleVelocity: charge.MuzzleVelocity,
				dragCoeff:      weapon.DragCoeff,
				massKg:         weapon.MassKg,
				milsPerCircle:  weapon.MilsPerCircle,
				wind:           trajectory.Vec3{X: g.headwind, Z: g.crosswind},
				target:         trajectory.Vec3{X: g.rangeM, Y: g.heightDiff},
				step:           req.Step,
				horizon:        req.Horizon,
			}, initial)

			if found && !(c.miss.Distance < best.MissDistance) {
				continue
			}
			dAz := atmosphere.AzimuthCorrectionDeg(c.miss.Z, g.rangeM)
			best = core.FireSolution{
				ChargeID:        charge.ID,
				ElevationMil:    c.elevationMil,
				ElevationDeg:    units.MilToDeg(c.elevationMil, weapon.MilsPerCircle),
				AzimuthDeg:      units.WrapDeg(units.RadToDeg(g.bearingRad) + dAz),
				DeltaAzimuthDeg: dAz,
				TimeOfFlightSec: c.miss.T,
				MuzzleVelocity:  charge.MuzzleVelocity,
				DriftM:          c.miss.Z,
				Impact:          core.Position3D{X: c.miss.X, Y: c.miss.Y, Z: c.miss.Z},
				MissDistance:    c.miss.Distance,
				Arc:             arc,
				Mode:            core.ModeRK4,
			}
			found = true
		}
	}
	if !found {
		return core.FireSolution{}, fmt.Errorf("%w: weapon %s arc %s", ErrNoSolution, weapon.ID, req.Arc)
	}
	s.logger.Debug("solved",
		"weapon", weapon.ID,
		"arc", best.Arc,
		"charge", best.ChargeID,
		"elevMil", best.ElevationMil,
		"miss", best.MissDistance,
	)
	if !best.WithinTolerance(req.ToleranceM) {
		s.logger.Debug("solution outside tolerance", "miss", best.MissDistance, "tolerance", req.ToleranceM)
	}
	return best, nil
}

func (s *Solver) record(ctx context.Context, sol core.FireSolution) {
	attrs := metric.WithAttributes(
		attribute.String("arc", string(sol.Arc)),
		attribute.String("mode", string(sol.Mode)),
	)
	s.solves.Add(ctx, 1, attrs)
	s.misses.Record(ctx, sol.MissDistance, attrs)
}
