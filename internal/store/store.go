// Package store implements the two-variant Job Store abstraction from
// SPEC_FULL.md §4.7/§9: a capability interface {enqueue, get, cancel,
// active_count} plus worker-facing lease/complete/fail operations, backed
// by either an in-memory map (MemoryStore) or a SQL table (SQLStore).
// Grounded on the teacher's shared/pkg/store/interface.go: callers must not
// reach behind the interface, so both variants can record the same
// observability hooks.
package store

import (
	"context"
	"errors"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// ErrNotFound is returned by Get/Cancel for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Store is the capability interface every job-persistence backend
// implements. Code outside this package must depend only on this
// interface, never on MemoryStore or SQLStore directly.
type Store interface {
	// Enqueue creates a new pending job for req and returns it with its
	// assigned ID and CreatedAt populated.
	Enqueue(ctx context.Context, req apitypes.Request) (*apitypes.Job, error)

	// Get returns the job with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*apitypes.Job, error)

	// Cancel moves a pending job straight to canceled and returns the
	// job's resulting status. A running job is left unchanged here (its
	// worker is signalled through worker.CancelRegistry and records the
	// outcome via MarkCanceled). If the job is already terminal this is a
	// no-op that still returns the job's current (terminal) status rather
	// than an error (see SPEC_FULL.md §9 Open Question).
	Cancel(ctx context.Context, id string) (apitypes.JobStatus, error)

	// ActiveCount returns the number of jobs currently pending or running,
	// for admission control (MaxJobs).
	ActiveCount(ctx context.Context) (int, error)

	// Lease atomically transitions one pending job to running and returns
	// it, or returns (nil, nil) when no pending job is available.
	Lease(ctx context.Context, workerID string) (*apitypes.Job, error)

	// Complete records a successful terminal outcome.
	Complete(ctx context.Context, id string, result []byte) error

	// Fail records a failed terminal outcome.
	Fail(ctx context.Context, id string, errMsg string) error

	// MarkCanceled records a canceled terminal outcome for a job that was
	// leased and is being torn down by its worker (as opposed to Cancel,
	// which only transitions jobs that are still pending).
	MarkCanceled(ctx context.Context, id string, errMsg string) error

	// QueueDepth returns the number of jobs currently pending, for the
	// queue_depth gauge.
	QueueDepth(ctx context.Context) (int, error)

	// CancelAllPending transitions every pending job straight to canceled,
	// the store-level half of the Lifecycle Controller's shutdown broadcast
	// (SPEC_FULL.md §4.11). It returns the number of jobs it canceled.
	// Running jobs are not this method's concern: their cancellation goes
	// through the worker pool's in-memory cancel registry instead, since
	// only the process holding the lease can signal them.
	CancelAllPending(ctx context.Context) (int, error)

	Close() error
}
