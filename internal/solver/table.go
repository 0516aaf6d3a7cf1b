package solver

import (
	"math"
	"sort"

	"github.com/sniperleonid/Calc-sub001/internal/atmosphere"
	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/internal/units"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

type coverage struct {
	chargeID string
	minRange float64
	maxRange float64
	table    *tables.BallisticTable
}

// pickCharge selects the preferred charge when the table has it, else the
// tightest table whose span covers the range, else the one whose maximum
// range is nearest.
func pickCharge(tbl *tables.Table, rangeM float64, preferred string) (coverage, bool) {
	var candidates []coverage
	for _, id := range tbl.Charges {
		bt := tbl.Charge(id)
		lo, hi, ok := bt.Coverage()
		if !ok {
			continue
		}
		candidates = append(candidates, coverage{chargeID: id, minRange: lo, maxRange: hi, table: bt})
	}
	if len(candidates) == 0 {
		return coverage{}, false
	}
	if preferred != "" {
		for _, c := range candidates {
			if c.chargeID == preferred {
				return c, true
			}
		}
	}

	var inRange []coverage
	for _, c := range candidates {
		if rangeM >= c.minRange && rangeM <= c.maxRange {
			inRange = append(inRange, c)
		}
	}
	if len(inRange) > 0 {
		sort.SliceStable(inRange, func(i, j int) bool { return inRange[i].maxRange < inRange[j].maxRange })
		return inRange[0], true
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if math.Abs(rangeM-c.maxRange) < math.Abs(rangeM-best.maxRange) {
			best = c
		}
	}
	return best, true
}

// solveFromTable interpolates the firing data directly from the range table.
// Miss distance is zero by construction.
func solveFromTable(tbl *tables.Table, arc core.Arc, weapon core.WeaponProfile, g geometry, preferred string) (core.FireSolution, bool) {
	if tbl == nil {
		return core.FireSolution{}, false
	}
	sel, ok := pickCharge(tbl, g.rangeM, preferred)
	if !ok {
		return core.FireSolution{}, false
	}
	row, ok := sel.table.Interpolate(g.rangeM)
	if !ok {
		return core.FireSolution{}, false
	}

	elev := atmosphere.HeightCorrection(row.ElevationMil, g.heightDiff, g.rangeM, row.ElevPer100m)
	tof := atmosphere.TOFHeightCorrection(row.TimeOfFlight, g.heightDiff, row.TOFPer100m)

	var drift float64
	switch {
	case isFinite(row.DriftPerCrosswind):
		drift = g.crosswind * row.DriftPerCrosswind
	case isFinite(tof):
		drift = atmosphere.WindCorrection(g.crosswind, tof, g.rangeM).DriftM
	}
	if isFinite(row.ElevPerHeadwind) {
		elev += g.headwind * row.ElevPerHeadwind
	}
	dAz := atmosphere.AzimuthCorrectionDeg(drift, g.rangeM)

	sol := core.FireSolution{
		ChargeID:        sel.chargeID,
		ElevationMil:    elev,
		ElevationDeg:    units.MilToDeg(elev, weapon.MilsPerCircle),
		AzimuthDeg:      units.WrapDeg(units.RadToDeg(g.bearingRad) + dAz),
		DeltaAzimuthDeg: dAz,
		TimeOfFlightSec: tof,
		DriftM:          drift,
		Impact:          core.Position3D{X: g.rangeM, Y: g.heightDiff, Z: drift},
		Arc:             arc,
		Mode:            core.ModeTable,
	}
	if c, ok := weapon.Charge(sel.chargeID); ok {
		sol.MuzzleVelocity = c.MuzzleVelocity
	}
	return sol, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
