package engine

// AlgoV2 is the per-type function-pointer contract a v2 plugin exposes for
// one named algorithm, mirroring original_source's sortbench_algo_v2. A nil
// Run* field means the plugin's algorithm does not support that element
// type; the engine skips that (algorithm, type) pairing at request time.
type AlgoV2 struct {
	Name   string
	RunI32 func([]int32)
	RunU32 func([]uint32)
	RunI64 func([]int64)
	RunU64 func([]uint64)
	RunF32 func([]float32)
	RunF64 func([]float64)
	RunStr func([]string)
}

// AlgoV1 is the older, int32-only plugin contract (sortbench_algo_v1).
type AlgoV1 struct {
	Name   string
	RunInt func([]int32)
}

// LoadedPlugin is the result of loading one .so, normalized to the v2 shape
// regardless of which ABI version the plugin actually exported. A v1-only
// plugin is upgraded into a LoadedPlugin whose RunI32 is populated and every
// other Run* field left nil.
type LoadedPlugin struct {
	Path  string
	ABI   int // 1 or 2
	Algos []AlgoV2
}

// runnerFor returns the function a LoadedPlugin's algorithm exposes for
// elemType, if any.
func (a AlgoV2) runnerFor(elemType string) (any, bool) {
	switch elemType {
	case "i32":
		if a.RunI32 != nil {
			return a.RunI32, true
		}
	case "u32":
		if a.RunU32 != nil {
			return a.RunU32, true
		}
	case "i64":
		if a.RunI64 != nil {
			return a.RunI64, true
		}
	case "u64":
		if a.RunU64 != nil {
			return a.RunU64, true
		}
	case "f32":
		if a.RunF32 != nil {
			return a.RunF32, true
		}
	case "f64":
		if a.RunF64 != nil {
			return a.RunF64, true
		}
	case "str":
		if a.RunStr != nil {
			return a.RunStr, true
		}
	}
	return nil, false
}
