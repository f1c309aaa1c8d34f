package engine

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// Run executes req against the built-in algorithm set plus any loaded
// plugins, producing one ResultRow per resolved algorithm. It is the sole
// entry point internal/worker and internal/httpapi's synchronous /run route
// call into.
func Run(ctx context.Context, req apitypes.Request, plugins []LoadedPlugin) ([]apitypes.ResultRow, error) {
	seed := DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	algos := resolveAlgoNames(req, plugins)

	baseData, err := GenerateData(req.N, req.ElemType, req.Distribution, seed, req)
	if err != nil {
		return nil, err
	}

	repeats := req.Repeats
	if repeats < 1 {
		repeats = 1
	}

	rows := make([]apitypes.ResultRow, 0, len(algos))
	statsByAlgo := make(map[string]apitypes.TimingStats, len(algos))

	for _, name := range algos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := runAlgorithm(baseData, req.ElemType, name, plugins, repeats, req.Warmup, req.AssertSorted)
		if err != nil {
			// Per SPEC_FULL.md §4.1, a request naming an algorithm that
			// resolves to nothing for this element type is tolerated in the
			// default (non-strict) mode: it simply produces no row. Any
			// other engine failure (e.g. a sort-assertion trip) is fatal
			// for the whole request.
			if _, unknown := err.(*UnknownAlgorithmError); unknown {
				continue
			}
			return nil, err
		}
		statsByAlgo[name] = stats
		rows = append(rows, apitypes.ResultRow{
			Algo: name,
			N:    req.N,
			Dist: req.Distribution,
			Stats: stats,
		})
	}

	if req.Baseline != "" {
		baseStats, ok := statsByAlgo[req.Baseline]
		if ok && baseStats.MedianMS > 0 {
			for i := range rows {
				if rows[i].Algo == req.Baseline {
					continue
				}
				speedup := baseStats.MedianMS / rows[i].Stats.MedianMS
				rows[i].SpeedupVsBaseline = &speedup
			}
		}
	}

	return rows, nil
}

// resolveAlgoNames returns the algorithms a request should exercise: the
// names it listed explicitly, or, when it listed none, every built-in plus
// every plugin-provided algorithm (the "empty algorithm set means the full
// set" rule).
func resolveAlgoNames(req apitypes.Request, plugins []LoadedPlugin) []string {
	if len(req.Algorithms) > 0 {
		return req.Algorithms
	}
	names := append([]string{}, BuiltinNames...)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, p := range plugins {
		for _, a := range p.Algos {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	return names
}

func runAlgorithm(baseData any, elemType apitypes.ElemType, name string, plugins []LoadedPlugin, repeats, warmup int, assertSorted bool) (apitypes.TimingStats, error) {
	switch data := baseData.(type) {
	case []int32:
		fn, ok := resolveRunner[int32](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []uint32:
		fn, ok := resolveRunner[uint32](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []int64:
		fn, ok := resolveRunner[int64](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []uint64:
		fn, ok := resolveRunner[uint64](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []float32:
		fn, ok := resolveRunner[float32](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []float64:
		fn, ok := resolveRunner[float64](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	case []string:
		fn, ok := resolveRunner[string](name, elemType, plugins)
		if !ok {
			return apitypes.TimingStats{}, &UnknownAlgorithmError{Algo: name, ElemType: string(elemType)}
		}
		return runTimed(data, fn, name, repeats, warmup, assertSorted)
	default:
		return apitypes.TimingStats{}, fmt.Errorf("engine: unhandled generated type %T", baseData)
	}
}

// resolveRunner finds the sort function for name under elemType, checking
// built-ins first and then every loaded plugin in load order.
func resolveRunner[T cmp.Ordered](name string, elemType apitypes.ElemType, plugins []LoadedPlugin) (SortFunc[T], bool) {
	if fn, ok := Builtin[T](name); ok {
		return fn, true
	}
	for _, p := range plugins {
		for _, a := range p.Algos {
			if a.Name != name {
				continue
			}
			raw, ok := a.runnerFor(string(elemType))
			if !ok {
				continue
			}
			if fn, ok := raw.(func([]T)); ok {
				return SortFunc[T](fn), true
			}
		}
	}
	return nil, false
}

// runTimed runs fn against warmup+max(1,repeats) fresh copies of base,
// discarding warmup samples, and returns the stats over the timed passes.
func runTimed[T cmp.Ordered](base []T, fn SortFunc[T], name string, repeats, warmup int, assertSorted bool) (apitypes.TimingStats, error) {
	if warmup < 0 {
		warmup = 0
	}
	samples := make([]float64, 0, repeats)
	for i := 0; i < warmup+repeats; i++ {
		buf := append([]T(nil), base...)
		start := time.Now()
		fn(buf)
		elapsed := time.Since(start)
		if assertSorted && !isSorted(buf) {
			return apitypes.TimingStats{}, &AssertionError{Algo: name}
		}
		if i >= warmup {
			samples = append(samples, float64(elapsed.Nanoseconds())/1e6)
		}
	}
	return computeStats(samples), nil
}
