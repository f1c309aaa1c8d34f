package engine

import (
	"math/rand/v2"
	"testing"
)

func reverseSortedInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - i
	}
	return out
}

func randomInts(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	out := make([]int, n)
	for i := range out {
		out[i] = rng.IntN(1_000_000)
	}
	return out
}

func testBuiltinSorts(t *testing.T, data []int) {
	t.Helper()
	for _, name := range BuiltinNames {
		fn, ok := Builtin[int](name)
		if !ok {
			t.Fatalf("%s: expected a builtin implementation", name)
		}
		buf := append([]int(nil), data...)
		fn(buf)
		if !isSorted(buf) {
			t.Errorf("%s left data unsorted: %v", name, buf)
		}
		if len(buf) != len(data) {
			t.Errorf("%s changed length from %d to %d", name, len(data), len(buf))
		}
	}
}

func TestBuiltinsSortRandomData(t *testing.T) {
	testBuiltinSorts(t, randomInts(500, 42))
}

func TestBuiltinsSortReverseSortedData(t *testing.T) {
	testBuiltinSorts(t, reverseSortedInts(500))
}

func TestBuiltinsSortAlreadySortedData(t *testing.T) {
	data := make([]int, 500)
	for i := range data {
		data[i] = i
	}
	testBuiltinSorts(t, data)
}

func TestBuiltinsHandleEmptyAndSingleton(t *testing.T) {
	testBuiltinSorts(t, nil)
	testBuiltinSorts(t, []int{7})
}

func TestBuiltinsHandleDuplicateHeavyData(t *testing.T) {
	data := make([]int, 200)
	for i := range data {
		data[i] = i % 3
	}
	testBuiltinSorts(t, data)
}

func TestBuiltinLookupMissIsReported(t *testing.T) {
	if _, ok := Builtin[int]("not_a_real_algorithm"); ok {
		t.Error("expected a lookup miss for an unregistered algorithm name")
	}
}
