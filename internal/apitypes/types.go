// Package apitypes holds the JSON-facing request and response shapes shared
// between the HTTP layer and the benchmark engine. Keeping them in their own
// package avoids an import cycle between internal/httpapi and internal/engine.
package apitypes

import (
	"encoding/json"
	"time"
)

// ElemType is one of the seven element types the engine can sort.
type ElemType string

const (
	ElemI32 ElemType = "i32"
	ElemU32 ElemType = "u32"
	ElemI64 ElemType = "i64"
	ElemU64 ElemType = "u64"
	ElemF32 ElemType = "f32"
	ElemF64 ElemType = "f64"
	ElemStr ElemType = "str"
)

// ElemTypes lists every supported element type in a stable order.
var ElemTypes = []ElemType{ElemI32, ElemU32, ElemI64, ElemU64, ElemF32, ElemF64, ElemStr}

func (t ElemType) Valid() bool {
	for _, v := range ElemTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Distribution is one of the thirteen named input-generation strategies.
type Distribution string

const (
	DistRandom    Distribution = "random"
	DistPartial   Distribution = "partial"
	DistDups      Distribution = "dups"
	DistReverse   Distribution = "reverse"
	DistSorted    Distribution = "sorted"
	DistSaw       Distribution = "saw"
	DistRuns      Distribution = "runs"
	DistGauss     Distribution = "gauss"
	DistExp       Distribution = "exp"
	DistZipf      Distribution = "zipf"
	DistOrganPipe Distribution = "organpipe"
	DistStaggered Distribution = "staggered"
	DistRunsHT    Distribution = "runs_ht"
)

// Distributions lists every supported distribution in a stable order.
var Distributions = []Distribution{
	DistRandom, DistPartial, DistDups, DistReverse, DistSorted, DistSaw,
	DistRuns, DistGauss, DistExp, DistZipf, DistOrganPipe, DistStaggered, DistRunsHT,
}

func (d Distribution) Valid() bool {
	for _, v := range Distributions {
		if v == d {
			return true
		}
	}
	return false
}

// Request is a client-submitted benchmark workload description, sent as the
// body of POST /run and POST /jobs.
type Request struct {
	N            int          `json:"N"`
	Distribution Distribution `json:"dist"`
	ElemType     ElemType     `json:"elem_type"`
	Repeats      int          `json:"repeats"`
	Warmup       int          `json:"warmup,omitempty"`
	Seed         *uint64      `json:"seed,omitempty"`
	Threads      int          `json:"threads,omitempty"`
	AssertSorted bool         `json:"assert_sorted,omitempty"`
	Baseline     string       `json:"baseline,omitempty"`
	Algorithms   []string     `json:"algorithms,omitempty"`
	Plugins      []string     `json:"plugins,omitempty"`
	TimeoutMS    int          `json:"timeout_ms,omitempty"`

	// Distribution tunables. Zero value means "use the engine default".
	PartialShufflePct int     `json:"partial_shuffle_pct,omitempty"`
	DupValues         int     `json:"dup_values,omitempty"`
	ZipfS             float64 `json:"zipf_s,omitempty"`
	RunsAlpha         float64 `json:"runs_alpha,omitempty"`
	StaggerBlock      int     `json:"stagger_block,omitempty"`
}

// TimingStats summarizes repeated timed passes of one algorithm.
type TimingStats struct {
	MedianMS float64 `json:"median_ms"`
	MeanMS   float64 `json:"mean_ms"`
	MinMS    float64 `json:"min_ms"`
	MaxMS    float64 `json:"max_ms"`
	StddevMS float64 `json:"stddev_ms"`
}

// ResultRow is one algorithm's outcome for a given request.
type ResultRow struct {
	Algo              string       `json:"algo"`
	N                  int          `json:"N"`
	Dist               Distribution `json:"dist"`
	Stats              TimingStats  `json:"stats"`
	SpeedupVsBaseline *float64     `json:"speedup_vs_baseline,omitempty"`
}

// JobStatus is the lifecycle state of an async job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// Terminal reports whether s is one of the sticky terminal states.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

// StateTransition is one audit-trail entry for a job's status history.
// Not required by any client-visible contract; see SPEC_FULL.md §3.
type StateTransition struct {
	From   JobStatus `json:"from"`
	To     JobStatus `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// Job is a durable record describing one async benchmark request and its
// eventual outcome.
type Job struct {
	ID               string             `json:"id"`
	Status           JobStatus          `json:"status"`
	Request          Request            `json:"-"`
	Result           json.RawMessage    `json:"result,omitempty"`
	Error            *string            `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	StartedAt        *time.Time         `json:"started_at,omitempty"`
	FinishedAt       *time.Time         `json:"finished_at,omitempty"`
	DurationMS       *int64             `json:"duration_ms,omitempty"`
	Mode             string             `json:"mode,omitempty"`
	StateTransitions []StateTransition  `json:"state_transitions,omitempty"`
}

// ErrorBody is the shape of every JSON error response.
type ErrorBody struct {
	Error string `json:"error"`
}
