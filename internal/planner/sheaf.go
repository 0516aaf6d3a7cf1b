package planner

import "math"

// MinSheafWidthM is the narrowest sheaf spread.
const MinSheafWidthM = 10.0

// SheafWidth is the lateral spread of a sheaf; OPEN multiplies the base
// width by the open factor.
func SheafWidth(cfg MissionConfig) float64 {
	base := math.Max(MinSheafWidthM, cfg.SheafWidthM)
	if cfg.SheafType == SheafOpen {
		return base * math.Max(1, cfg.OpenFactor)
	}
	return base
}

// SheafOffsets spreads guns evenly across width, left to right.
func SheafOffsets(guns int, width float64) []float64 {
	if guns <= 1 {
		return []float64{0}
	}
	out := make([]float64, guns)
	for i := range out {
		out[i] = -width/2 + width*float64(i)/float64(guns-1)
	}
	return out
}

// EdgeInward orders 0..n-1 as leftmost, rightmost, next leftmost, and so on.
func EdgeInward(n int) []int {
	out := make([]int, 0, n)
	for lo, hi := 0, n-1; lo <= hi; lo, hi = lo+1, hi-1 {
		out = append(out, lo)
		if hi != lo {
			out = append(out, hi)
		}
	}
	return out
}

// roundRobin returns the indices gun gunIndex of guns fires: every ordered
// position i with i mod guns == gunIndex.
func roundRobin(ordered []int, gunIndex, guns int) []int {
	var out []int
	for i, idx := range ordered {
		if i%guns == gunIndex {
			out = append(out, idx)
		}
	}
	return out
}
