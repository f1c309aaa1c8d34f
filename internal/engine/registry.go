package engine

import "github.com/kevichi7/bench-sort/internal/apitypes"

// ListAlgorithms returns every algorithm name usable for elemType: every
// built-in (they are generic over cmp.Ordered, so all seven element types
// support all four) plus every loaded plugin algorithm that exposes a
// runner for elemType. Backs the Metadata Service (C12, GET /meta).
func ListAlgorithms(elemType apitypes.ElemType, plugins []LoadedPlugin) []string {
	names := append([]string{}, BuiltinNames...)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, p := range plugins {
		for _, a := range p.Algos {
			if seen[a.Name] {
				continue
			}
			if _, ok := a.runnerFor(string(elemType)); ok {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	return names
}
