package engine

import (
	"math"
	mrand "math/rand"
	"math/rand/v2"
	"sort"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// tunables holds the optional, default-valued distribution parameters from
// the request (SPEC_FULL.md §3).
type tunables struct {
	partialShufflePct int
	dupValues         int
	zipfS             float64
	runsAlpha         float64
	staggerBlock      int
}

func defaultTunables() tunables {
	return tunables{
		partialShufflePct: 10,
		dupValues:         100,
		zipfS:             1.2,
		runsAlpha:         1.5,
		staggerBlock:      32,
	}
}

func tunablesFromRequest(r apitypes.Request) tunables {
	t := defaultTunables()
	if r.PartialShufflePct > 0 {
		t.partialShufflePct = r.PartialShufflePct
	}
	if r.DupValues > 0 {
		t.dupValues = r.DupValues
	}
	if r.ZipfS > 0 {
		t.zipfS = r.ZipfS
	}
	if r.RunsAlpha > 0 {
		t.runsAlpha = r.RunsAlpha
	}
	if r.StaggerBlock > 0 {
		t.staggerBlock = r.StaggerBlock
	}
	return t
}

// generateRanks produces n float64 values arranged per dist. sorted,
// reverse, partial and staggered return a permutation of 0..n-1 so ordering
// is exact; saw and organpipe return fixed integer patterns with repeated
// values; runs and runs_ht return sorted runs of random values; "value"
// distributions (random, dups, gauss, exp, zipf) return values drawn from
// the named statistical shape and may repeat. Callers convert the result
// into the request's element type with convertInts / convertFloats32 /
// ranksToStrings.
//
// Mirrors the per-Dist generators in original_source/sortbench.cpp, merged
// into one type-agnostic pass since the element-type conversion is a
// separate, later step here rather than a templated C++ function per type.
func generateRanks(n int, dist apitypes.Distribution, rng *rand.Rand, t tunables) []float64 {
	switch dist {
	case apitypes.DistRandom:
		return uniformRanks(n, rng)
	case apitypes.DistPartial:
		return partialRanks(n, rng, t.partialShufflePct)
	case apitypes.DistDups:
		return dupRanks(n, rng, t.dupValues)
	case apitypes.DistReverse:
		return reverseRanks(n)
	case apitypes.DistSorted:
		return sortedRanks(n)
	case apitypes.DistSaw:
		return sawRanks(n)
	case apitypes.DistRuns:
		return runsRanks(n, rng, 8)
	case apitypes.DistGauss:
		return gaussRanks(n, rng)
	case apitypes.DistExp:
		return expRanks(n, rng)
	case apitypes.DistZipf:
		return zipfRanks(n, rng, t.zipfS)
	case apitypes.DistOrganPipe:
		return organPipeRanks(n)
	case apitypes.DistStaggered:
		return staggeredRanks(n, t.staggerBlock)
	case apitypes.DistRunsHT:
		return runsHTRanks(n, rng, t.runsAlpha)
	default:
		return uniformRanks(n, rng)
	}
}

func sortedRanks(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func reverseRanks(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(n - 1 - i)
	}
	return out
}

func uniformRanks(n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

// partialRanks starts from a sorted sequence and shuffles pct% of elements.
func partialRanks(n int, rng *rand.Rand, pct int) []float64 {
	out := sortedRanks(n)
	if pct <= 0 {
		return out
	}
	k := n * pct / 100
	for i := 0; i < k; i++ {
		a := rng.IntN(n)
		b := rng.IntN(n)
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// dupRanks draws from a limited-cardinality value set, exercising algorithms'
// handling of heavy duplication.
func dupRanks(n int, rng *rand.Rand, k int) []float64 {
	if k <= 0 {
		k = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(rng.IntN(k))
	}
	return out
}

// sawRanks produces a repeating ascending sawtooth pattern.
func sawRanks(n int) []float64 {
	const teeth = 8
	out := make([]float64, n)
	width := n / teeth
	if width == 0 {
		width = 1
	}
	for i := range out {
		out[i] = float64(i % width)
	}
	return out
}

// runsRanks concatenates a handful of independently sorted runs.
func runsRanks(n int, rng *rand.Rand, numRuns int) []float64 {
	if numRuns <= 0 {
		numRuns = 1
	}
	out := make([]float64, n)
	runLen := n / numRuns
	if runLen == 0 {
		runLen = n
	}
	pos := 0
	for r := 0; pos < n; r++ {
		end := pos + runLen
		if end > n {
			end = n
		}
		base := rng.Float64() * float64(n)
		vals := make([]float64, end-pos)
		for i := range vals {
			vals[i] = base + rng.Float64()
		}
		sort.Float64s(vals)
		copy(out[pos:end], vals)
		pos = end
	}
	return out
}

// runsHTRanks is runsRanks with run lengths drawn from a heavy-tailed
// (Pareto-like) distribution instead of a fixed split.
func runsHTRanks(n int, rng *rand.Rand, alpha float64) []float64 {
	if alpha <= 0 {
		alpha = 1.5
	}
	out := make([]float64, n)
	pos := 0
	for pos < n {
		u := rng.Float64()
		if u <= 0 {
			u = 1e-9
		}
		runLen := int(1.0 / math.Pow(u, 1.0/alpha))
		if runLen < 1 {
			runLen = 1
		}
		end := pos + runLen
		if end > n {
			end = n
		}
		base := rng.Float64() * float64(n)
		vals := make([]float64, end-pos)
		for i := range vals {
			vals[i] = base + rng.Float64()
		}
		sort.Float64s(vals)
		copy(out[pos:end], vals)
		pos = end
	}
	return out
}

func gaussRanks(n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func expRanks(n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.ExpFloat64()
	}
	return out
}

// zipfRanks draws from a Zipfian distribution over n ranks. math/rand/v2 has
// no Zipf source, so this reaches for the older math/rand package's
// rand.Zipf, seeded deterministically from rng.
func zipfRanks(n int, rng *rand.Rand, s float64) []float64 {
	src := mrand.New(mrand.NewSource(int64(rng.Uint64())))
	imax := uint64(n)
	if imax < 2 {
		imax = 2
	}
	z := mrand.NewZipf(src, s, 1.0, imax-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(z.Uint64())
	}
	return out
}

// organPipeRanks rises then falls, like an organ pipe profile.
func organPipeRanks(n int) []float64 {
	out := make([]float64, n)
	half := n / 2
	for i := 0; i < n; i++ {
		if i < half {
			out[i] = float64(i)
		} else {
			out[i] = float64(n - i)
		}
	}
	return out
}

// staggeredRanks interleaves fixed-size blocks from the low and high ends of
// the value range, producing a pattern some radix/merge implementations
// handle poorly.
func staggeredRanks(n int, block int) []float64 {
	if block <= 0 {
		block = 32
	}
	out := make([]float64, n)
	lo, hi := 0, n-1
	i := 0
	for i < n {
		for b := 0; b < block && i < n; b++ {
			out[i] = float64(lo)
			lo++
			i++
		}
		for b := 0; b < block && i < n; b++ {
			out[i] = float64(hi)
			hi--
			i++
		}
	}
	return out
}
