package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// safeRange returns the [lo, hi] float64 span a given integer element type's
// generated values are linearly scaled into. The signed/unsigned 64-bit
// types are clamped well inside float64's 53-bit mantissa so scaling never
// loses the relative order generateRanks produced.
func safeRange(t apitypes.ElemType) (lo, hi float64) {
	switch t {
	case apitypes.ElemI32:
		return -1 << 30, 1<<30 - 1
	case apitypes.ElemU32:
		return 0, 1<<31 - 1
	case apitypes.ElemI64:
		return -1 << 52, 1<<52 - 1
	case apitypes.ElemU64:
		return 0, 1<<53 - 1
	default:
		return 0, 1
	}
}

func minMax(ranks []float64) (lo, hi float64) {
	if len(ranks) == 0 {
		return 0, 1
	}
	lo, hi = ranks[0], ranks[0]
	for _, v := range ranks[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func scale(v, srcLo, srcHi, dstLo, dstHi float64) float64 {
	return dstLo + (v-srcLo)/(srcHi-srcLo)*(dstHi-dstLo)
}

// GenerateData builds n elements of the requested type, arranged per dist,
// and returns them as one of []int32, []uint32, []int64, []uint64,
// []float32, []float64 or []string depending on elemType.
func GenerateData(n int, elemType apitypes.ElemType, dist apitypes.Distribution, seed uint64, req apitypes.Request) (any, error) {
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	t := tunablesFromRequest(req)
	ranks := generateRanks(n, dist, rng, t)

	switch elemType {
	case apitypes.ElemI32:
		return convertInts[int32](ranks, elemType), nil
	case apitypes.ElemU32:
		return convertInts[uint32](ranks, elemType), nil
	case apitypes.ElemI64:
		return convertInts[int64](ranks, elemType), nil
	case apitypes.ElemU64:
		return convertInts[uint64](ranks, elemType), nil
	case apitypes.ElemF32:
		return convertFloats32(ranks), nil
	case apitypes.ElemF64:
		return ranks, nil
	case apitypes.ElemStr:
		return ranksToStrings(ranks), nil
	default:
		return nil, fmt.Errorf("engine: unknown element type %q", elemType)
	}
}

func convertInts[T interface {
	~int32 | ~uint32 | ~int64 | ~uint64
}](ranks []float64, elemType apitypes.ElemType) []T {
	srcLo, srcHi := minMax(ranks)
	dstLo, dstHi := safeRange(elemType)
	out := make([]T, len(ranks))
	for i, v := range ranks {
		out[i] = T(scale(v, srcLo, srcHi, dstLo, dstHi))
	}
	return out
}

func convertFloats32(ranks []float64) []float32 {
	out := make([]float32, len(ranks))
	for i, v := range ranks {
		out[i] = float32(v)
	}
	return out
}

// ranksToStrings renders ranks as fixed-width, zero-padded decimal strings
// so that lexicographic order matches the numeric order the distribution
// generator produced.
func ranksToStrings(ranks []float64) []string {
	srcLo, srcHi := minMax(ranks)
	out := make([]string, len(ranks))
	for i, v := range ranks {
		scaled := scale(v, srcLo, srcHi, 0, 1e15)
		out[i] = fmt.Sprintf("k%016d", int64(math.Round(scaled)))
	}
	return out
}
