package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// record pairs a Job with a per-record lock that prevents publication tears
// between the leasing worker and concurrent pollers.
type record struct {
	mu  sync.Mutex
	job apitypes.Job
}

// MemoryStore is the in-memory Job Store variant: a map guarded by a
// coarse RWMutex, each record additionally guarded by its own mutex.
// Grounded on shared/pkg/store/memory.go's map+RWMutex+FIFO-queue shape.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
	seq     uint64
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

func (s *MemoryStore) nextID() string {
	s.seq++
	return fmt.Sprintf("job-%d-%d", time.Now().UnixNano(), s.seq)
}

func (s *MemoryStore) Enqueue(ctx context.Context, req apitypes.Request) (*apitypes.Job, error) {
	s.mu.Lock()
	id := s.nextID()
	job := apitypes.Job{
		ID:        id,
		Status:    apitypes.JobPending,
		Request:   req,
		CreatedAt: time.Now(),
		Mode:      "in-process",
	}
	s.records[id] = &record{job: job}
	s.mu.Unlock()

	out := job
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*apitypes.Job, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := rec.job
	return &out, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id string) (apitypes.JobStatus, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.job.Status.Terminal() {
		return rec.job.Status, nil
	}
	if rec.job.Status == apitypes.JobPending {
		s.transitionLocked(rec, apitypes.JobCanceled, "canceled while pending")
		now := time.Now()
		rec.job.FinishedAt = &now
		empty := ""
		rec.job.Error = &empty
	}
	// Running jobs are left alone here; the worker pool's cancel registry
	// signals the cooperative cancel token, and the worker itself calls
	// MarkCanceled once the engine invocation returns.
	return rec.job.Status, nil
}

func (s *MemoryStore) ActiveCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		rec.mu.Lock()
		if !rec.job.Status.Terminal() {
			n++
		}
		rec.mu.Unlock()
	}
	return n, nil
}

func (s *MemoryStore) QueueDepth(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		rec.mu.Lock()
		if rec.job.Status == apitypes.JobPending {
			n++
		}
		rec.mu.Unlock()
	}
	return n, nil
}

// Lease finds the oldest pending job and transitions it to running. It
// snapshots every record under the coarse read lock, then scans them oldest
// first under each record's own lock; fine for the in-memory variant,
// whose whole point is to avoid the durable variant's SQL round-trip.
func (s *MemoryStore) Lease(ctx context.Context, workerID string) (*apitypes.Job, error) {
	s.mu.RLock()
	candidates := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, rec)
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].job.CreatedAt.Before(candidates[j].job.CreatedAt)
	})

	for _, rec := range candidates {
		rec.mu.Lock()
		if rec.job.Status == apitypes.JobPending {
			s.transitionLocked(rec, apitypes.JobRunning, "leased by "+workerID)
			now := time.Now()
			rec.job.StartedAt = &now
			out := rec.job
			rec.mu.Unlock()
			return &out, nil
		}
		rec.mu.Unlock()
	}
	return nil, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, result []byte) error {
	return s.finish(id, apitypes.JobDone, result, nil)
}

func (s *MemoryStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.finish(id, apitypes.JobFailed, nil, &errMsg)
}

func (s *MemoryStore) MarkCanceled(ctx context.Context, id string, errMsg string) error {
	return s.finish(id, apitypes.JobCanceled, nil, &errMsg)
}

func (s *MemoryStore) finish(id string, status apitypes.JobStatus, result []byte, errMsg *string) error {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.job.Status.Terminal() {
		// First transition wins; a natural completion racing a cancel
		// signal must not clobber whichever terminal state already landed.
		return nil
	}
	s.transitionLocked(rec, status, "")
	now := time.Now()
	rec.job.FinishedAt = &now
	rec.job.Result = result
	rec.job.Error = errMsg
	if rec.job.StartedAt != nil {
		d := now.Sub(*rec.job.StartedAt).Milliseconds()
		rec.job.DurationMS = &d
	}
	return nil
}

func (s *MemoryStore) transitionLocked(rec *record, to apitypes.JobStatus, reason string) {
	from := rec.job.Status
	rec.job.Status = to
	rec.job.StateTransitions = append(rec.job.StateTransitions, apitypes.StateTransition{
		From: from, To: to, At: time.Now(), Reason: reason,
	})
}

// CancelAllPending transitions every record still pending to canceled, the
// store-level half of the shutdown cancel broadcast: running jobs are left
// for the worker pool's cancel registry, since only it holds their
// cooperative tokens.
func (s *MemoryStore) CancelAllPending(ctx context.Context) (int, error) {
	s.mu.RLock()
	candidates := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, rec)
	}
	s.mu.RUnlock()

	n := 0
	for _, rec := range candidates {
		rec.mu.Lock()
		if rec.job.Status == apitypes.JobPending {
			s.transitionLocked(rec, apitypes.JobCanceled, "canceled at shutdown")
			now := time.Now()
			rec.job.FinishedAt = &now
			empty := ""
			rec.job.Error = &empty
			n++
		}
		rec.mu.Unlock()
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
