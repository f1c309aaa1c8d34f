// Package plugin loads sort-algorithm plugins built with `go build
// -buildmode=plugin`, the Go-native analogue of the dlopen'd shared
// libraries original_source/sortbench_plugin.h describes. A Go plugin
// cannot be truly unloaded once opened (see SPEC_FULL.md §4.5); a bad or
// incompatible plugin is instead excluded from the active set for the
// lifetime of the process that loaded it.
package plugin

import (
	"fmt"
	"plugin"

	"github.com/kevichi7/bench-sort/internal/engine"
)

// Symbol names a plugin .so must export one of, preferring V2.
const (
	symbolV2 = "SortbenchAlgorithmsV2"
	symbolV1 = "SortbenchAlgorithmsV1"
)

// Load opens the .so at path and adapts whichever ABI version it exports
// into an engine.LoadedPlugin. It returns an error if the plugin exports
// neither symbol or exports one with the wrong type.
func Load(path string) (engine.LoadedPlugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return engine.LoadedPlugin{}, fmt.Errorf("plugin: open %s: %w", path, err)
	}

	if sym, err := p.Lookup(symbolV2); err == nil {
		fn, ok := sym.(func() []engine.AlgoV2)
		if !ok {
			return engine.LoadedPlugin{}, fmt.Errorf("plugin: %s: %s has unexpected signature", path, symbolV2)
		}
		return engine.LoadedPlugin{Path: path, ABI: 2, Algos: fn()}, nil
	}

	if sym, err := p.Lookup(symbolV1); err == nil {
		fn, ok := sym.(func() []engine.AlgoV1)
		if !ok {
			return engine.LoadedPlugin{}, fmt.Errorf("plugin: %s: %s has unexpected signature", path, symbolV1)
		}
		algos := make([]engine.AlgoV2, 0, len(fn()))
		for _, a := range fn() {
			algos = append(algos, engine.AlgoV2{Name: a.Name, RunI32: a.RunInt})
		}
		return engine.LoadedPlugin{Path: path, ABI: 1, Algos: algos}, nil
	}

	return engine.LoadedPlugin{}, fmt.Errorf("plugin: %s exports neither %s nor %s", path, symbolV2, symbolV1)
}

// LoadAll loads every path, skipping (and reporting, not failing on) any
// plugin that fails to open or adapt. A request naming an algorithm from a
// skipped plugin surfaces as an UnknownAlgorithmError rather than aborting
// the whole batch.
func LoadAll(paths []string) ([]engine.LoadedPlugin, []error) {
	var loaded []engine.LoadedPlugin
	var errs []error
	for _, path := range paths {
		lp, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, lp)
	}
	return loaded, errs
}
