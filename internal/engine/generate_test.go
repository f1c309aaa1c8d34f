package engine

import (
	"sort"
	"testing"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

func TestGenerateDataSortedDistIsAlreadyOrdered(t *testing.T) {
	data, err := GenerateData(1000, apitypes.ElemI32, apitypes.DistSorted, DefaultSeed, apitypes.Request{})
	if err != nil {
		t.Fatalf("GenerateData: %v", err)
	}
	ints := data.([]int32)
	if !sort.SliceIsSorted(ints, func(i, j int) bool { return ints[i] < ints[j] }) {
		t.Error("dist=sorted should already be in non-decreasing order")
	}
}

func TestGenerateDataReverseDistIsFullyDescending(t *testing.T) {
	data, err := GenerateData(1000, apitypes.ElemI32, apitypes.DistReverse, DefaultSeed, apitypes.Request{})
	if err != nil {
		t.Fatalf("GenerateData: %v", err)
	}
	ints := data.([]int32)
	for i := 1; i < len(ints); i++ {
		if ints[i] > ints[i-1] {
			t.Fatalf("dist=reverse should be non-increasing at index %d: %d > %d", i, ints[i], ints[i-1])
		}
	}
}

func TestGenerateDataIsDeterministicForAFixedSeed(t *testing.T) {
	req := apitypes.Request{}
	a, err := GenerateData(500, apitypes.ElemF64, apitypes.DistRandom, 12345, req)
	if err != nil {
		t.Fatalf("GenerateData: %v", err)
	}
	b, err := GenerateData(500, apitypes.ElemF64, apitypes.DistRandom, 12345, req)
	if err != nil {
		t.Fatalf("GenerateData: %v", err)
	}
	af, bf := a.([]float64), b.([]float64)
	for i := range af {
		if af[i] != bf[i] {
			t.Fatalf("same seed produced divergent output at index %d: %v != %v", i, af[i], bf[i])
		}
	}
}

func TestGenerateDataEveryElemTypeProducesRequestedLength(t *testing.T) {
	for _, et := range apitypes.ElemTypes {
		data, err := GenerateData(257, et, apitypes.DistRandom, DefaultSeed, apitypes.Request{})
		if err != nil {
			t.Fatalf("elem_type=%s: GenerateData: %v", et, err)
		}
		n := lengthOf(t, data)
		if n != 257 {
			t.Errorf("elem_type=%s: expected length 257, got %d", et, n)
		}
	}
}

func lengthOf(t *testing.T, data any) int {
	t.Helper()
	switch v := data.(type) {
	case []int32:
		return len(v)
	case []uint32:
		return len(v)
	case []int64:
		return len(v)
	case []uint64:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case []string:
		return len(v)
	default:
		t.Fatalf("unexpected generated type %T", data)
		return -1
	}
}

func TestGenerateDataRejectsUnknownElemType(t *testing.T) {
	if _, err := GenerateData(10, apitypes.ElemType("bogus"), apitypes.DistRandom, DefaultSeed, apitypes.Request{}); err == nil {
		t.Error("expected an error for an unknown element type")
	}
}

func TestRanksToStringsPreservesNumericOrder(t *testing.T) {
	ranks := sortedRanks(100)
	strs := ranksToStrings(ranks)
	if !sort.StringsAreSorted(strs) {
		t.Error("lexicographic order of generated strings must match the numeric rank order")
	}
}
