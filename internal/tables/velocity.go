package tables

import (
	"math"
	"sort"

	"github.com/sniperleonid/Calc-sub001/internal/units"
)

// FallbackMuzzleVelocity is used when a table has no usable rows.
const FallbackMuzzleVelocity = 200.0

// EstimateMuzzleVelocity inverts the vacuum range equation over every row
// longer than 100 m and returns the median velocity.
func EstimateMuzzleVelocity(t *BallisticTable, milsPerCircle float64) float64 {
	var valid []float64
	for i := 0; i < t.Len(); i++ {
		r := t.Range[i]
		s := math.Sin(2 * units.MilToRad(t.ElevationMil[i], milsPerCircle))
		if r > 100 && math.Abs(s) > 0.05 {
			if v := math.Sqrt(r * 9.81 / s); finite(v) {
				valid = append(valid, v)
			}
		}
	}
	if len(valid) == 0 {
		return FallbackMuzzleVelocity
	}
	sort.Float64s(valid)
	return valid[len(valid)/2]
}
