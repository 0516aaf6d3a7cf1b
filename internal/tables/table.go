// Package tables holds precomputed range tables and the providers that load them.
package tables

import (
	"math"
	"sort"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Row is one range table entry. Missing values are NaN.
type Row struct {
	Range             float64
	ElevationMil      float64
	TimeOfFlight      float64
	ElevPer100m       float64
	TOFPer100m        float64
	ElevPerHeadwind   float64
	DriftPerCrosswind float64
}

// BallisticTable is the range table of one charge on one arc.
// Arrays are aligned by index and always have the same length.
type BallisticTable struct {
	ChargeID          string
	Range             []float64
	ElevationMil      []float64
	TimeOfFlight      []float64
	ElevPer100m       []float64
	TOFPer100m        []float64
	ElevPerHeadwind   []float64
	DriftPerCrosswind []float64
}

// NewBallisticTable aligns raw arrays into a table. The row count is the
// shorter of the range and elevation arrays; shorter optional arrays are
// padded with NaN. Missing per-100 m sensitivities are derived by central
// finite difference.
func NewBallisticTable(chargeID string, a ChargeArrays) *BallisticTable {
	n := min(len(a.Range), len(a.ElevationMil))
	t := &BallisticTable{
		ChargeID:          chargeID,
		Range:             append([]float64(nil), a.Range[:n]...),
		ElevationMil:      append([]float64(nil), a.ElevationMil[:n]...),
		TimeOfFlight:      aligned(a.TimeOfFlight, n),
		ElevPer100m:       aligned(a.ElevPer100m, n),
		TOFPer100m:        aligned(a.TOFPer100m, n),
		ElevPerHeadwind:   aligned(a.ElevPerHeadwind, n),
		DriftPerCrosswind: aligned(a.DriftPerCrosswind, n),
	}
	for i := 0; i < n; i++ {
		if !finite(t.ElevPer100m[i]) {
			t.ElevPer100m[i] = derivePer100m(t.ElevationMil, t.Range, i)
		}
		if !finite(t.TOFPer100m[i]) {
			t.TOFPer100m[i] = derivePer100m(t.TimeOfFlight, t.Range, i)
		}
	}
	return t
}

func aligned(src []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(src) {
			out[i] = src[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// derivePer100m is the local slope of values over ranges scaled to 100 m.
func derivePer100m(values, ranges []float64, i int) float64 {
	left := max(0, i-1)
	right := min(len(values)-1, i+1)
	if left == right {
		return math.NaN()
	}
	dv := values[right] - values[left]
	dr := ranges[right] - ranges[left]
	if !finite(dv) || !finite(dr) || dr == 0 {
		return math.NaN()
	}
	return dv / dr * 100
}

// Len is the number of rows.
func (t *BallisticTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Range)
}

// Row returns row i.
func (t *BallisticTable) Row(i int) Row {
	return Row{
		Range:             t.Range[i],
		ElevationMil:      t.ElevationMil[i],
		TimeOfFlight:      t.TimeOfFlight[i],
		ElevPer100m:       t.ElevPer100m[i],
		TOFPer100m:        t.TOFPer100m[i],
		ElevPerHeadwind:   t.ElevPerHeadwind[i],
		DriftPerCrosswind: t.DriftPerCrosswind[i],
	}
}

// Coverage is the range span of the finite rows.
func (t *BallisticTable) Coverage() (minRange, maxRange float64, ok bool) {
	minRange, maxRange = math.Inf(1), math.Inf(-1)
	for i := 0; i < t.Len(); i++ {
		r := t.Range[i]
		if !finite(r) {
			continue
		}
		minRange = math.Min(minRange, r)
		maxRange = math.Max(maxRange, r)
		ok = true
	}
	return minRange, maxRange, ok
}

// Nearest returns the row whose range is closest to distance.
// The first row wins on equal error.
func (t *BallisticTable) Nearest(distance float64) (Row, bool) {
	best, bestErr := -1, math.Inf(1)
	for i := 0; i < t.Len(); i++ {
		if !finite(t.Range[i]) || !finite(t.ElevationMil[i]) {
			continue
		}
		if e := math.Abs(t.Range[i] - distance); e < bestErr {
			best, bestErr = i, e
		}
	}
	if best < 0 {
		return Row{}, false
	}
	return t.Row(best), true
}

// Interpolate linearly interpolates every column at distance. Distances
// outside the table clamp to the first or last row. A value missing on one
// side takes the other side's value.
func (t *BallisticTable) Interpolate(distance float64) (Row, bool) {
	if t.Len() == 0 {
		return Row{}, false
	}
	rows := make([]Row, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Range < rows[j].Range })

	if distance <= rows[0].Range {
		return rows[0], finite(rows[0].ElevationMil)
	}
	for i := 1; i < len(rows); i++ {
		r := rows[i]
		if distance > r.Range {
			continue
		}
		l := rows[i-1]
		if r.Range == l.Range {
			return r, finite(r.ElevationMil)
		}
		u := (distance - l.Range) / (r.Range - l.Range)
		out := Row{
			Range:             distance,
			ElevationMil:      lerp(l.ElevationMil, r.ElevationMil, u),
			TimeOfFlight:      lerp(l.TimeOfFlight, r.TimeOfFlight, u),
			ElevPer100m:       lerp(l.ElevPer100m, r.ElevPer100m, u),
			TOFPer100m:        lerp(l.TOFPer100m, r.TOFPer100m, u),
			ElevPerHeadwind:   lerp(l.ElevPerHeadwind, r.ElevPerHeadwind, u),
			DriftPerCrosswind: lerp(l.DriftPerCrosswind, r.DriftPerCrosswind, u),
		}
		return out, finite(out.ElevationMil)
	}
	last := rows[len(rows)-1]
	return last, finite(last.ElevationMil)
}

func lerp(a, b, u float64) float64 {
	switch {
	case !finite(a) && !finite(b):
		return math.NaN()
	case !finite(a):
		return b
	case !finite(b):
		return a
	}
	return a + (b-a)*u
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Meta carries the projectile constants a table was computed with.
type Meta struct {
	DragCoeff float64
	MassKg    float64
}

// Table is the set of per-charge range tables for one arc.
type Table struct {
	Format   string
	Charges  []string
	ByCharge map[string]*BallisticTable
	Meta     Meta
}

// Charge returns the table of one charge, nil when absent.
func (t *Table) Charge(id string) *BallisticTable {
	if t == nil {
		return nil
	}
	return t.ByCharge[id]
}

// Set groups the tables of a weapon by arc. Absent arcs are nil.
type Set struct {
	Direct *Table
	Low    *Table
	High   *Table
}

// ForArc returns the table of an arc, nil when absent.
func (s Set) ForArc(a core.Arc) *Table {
	switch a {
	case core.ArcDirect:
		return s.Direct
	case core.ArcLow:
		return s.Low
	case core.ArcHigh:
		return s.High
	}
	return nil
}

// Primary is the first table present in DIRECT, LOW, HIGH order.
func (s Set) Primary() *Table {
	for _, t := range []*Table{s.Direct, s.Low, s.High} {
		if t != nil && len(t.Charges) > 0 {
			return t
		}
	}
	return nil
}
