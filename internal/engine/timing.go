package engine

import (
	"math"
	"sort"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// DefaultSeed is used whenever a request omits an explicit seed. It matches
// original_source/sortbench.cpp's default_seed(), the 64-bit golden ratio
// constant.
const DefaultSeed uint64 = 0x9E3779B97F4A7C15

func computeStats(samplesMS []float64) apitypes.TimingStats {
	n := len(samplesMS)
	if n == 0 {
		return apitypes.TimingStats{}
	}
	sorted := append([]float64(nil), samplesMS...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return apitypes.TimingStats{
		MedianMS: median,
		MeanMS:   mean,
		MinMS:    sorted[0],
		MaxMS:    sorted[n-1],
		StddevMS: math.Sqrt(variance),
	}
}
