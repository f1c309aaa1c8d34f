package store

import (
	"context"
	"testing"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

func sampleRequest() apitypes.Request {
	return apitypes.Request{N: 100, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1}
}

func TestMemoryStoreEnqueueAndGet(t *testing.T) {
	s := NewMemoryStore()
	job, err := s.Enqueue(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != apitypes.JobPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}

	got, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != job.ID {
		t.Errorf("expected id %s, got %s", job.ID, got.ID)
	}
}

func TestMemoryStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreLeaseTransitionsToRunningInFIFOOrder(t *testing.T) {
	s := NewMemoryStore()
	first, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Enqueue(context.Background(), sampleRequest())

	leased, err := s.Lease(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if leased == nil {
		t.Fatal("expected a leased job, got nil")
	}
	if leased.ID != first.ID {
		t.Errorf("expected the oldest pending job %s to be leased first, got %s", first.ID, leased.ID)
	}
	if leased.Status != apitypes.JobRunning {
		t.Errorf("expected leased job to be running, got %s", leased.Status)
	}
}

func TestMemoryStoreLeaseOnEmptyQueueReturnsNil(t *testing.T) {
	s := NewMemoryStore()
	job, err := s.Lease(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if job != nil {
		t.Errorf("expected nil job on an empty queue, got %+v", job)
	}
}

func TestMemoryStoreCompleteSetsResultAndDuration(t *testing.T) {
	s := NewMemoryStore()
	job, _ := s.Enqueue(context.Background(), sampleRequest())
	if _, err := s.Lease(context.Background(), "worker-1"); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	result := []byte(`[{"algo":"std_sort"}]`)
	if err := s.Complete(context.Background(), job.ID, result); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, _ := s.Get(context.Background(), job.ID)
	if got.Status != apitypes.JobDone {
		t.Errorf("expected done, got %s", got.Status)
	}
	if string(got.Result) != string(result) {
		t.Errorf("expected result %s, got %s", result, got.Result)
	}
	if got.DurationMS == nil {
		t.Error("expected a duration to be recorded")
	}
	if got.Error != nil {
		t.Errorf("expected no error on a successful completion, got %v", *got.Error)
	}
}

func TestMemoryStoreFailSetsErrorAndNoResult(t *testing.T) {
	s := NewMemoryStore()
	job, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Lease(context.Background(), "worker-1")

	if err := s.Fail(context.Background(), job.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := s.Get(context.Background(), job.ID)
	if got.Status != apitypes.JobFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error == nil || *got.Error != "boom" {
		t.Errorf("expected error message 'boom', got %v", got.Error)
	}
	if len(got.Result) != 0 {
		t.Errorf("expected no result on a failed job, got %s", got.Result)
	}
}

func TestMemoryStoreCancelPendingJobIsImmediatelyTerminal(t *testing.T) {
	s := NewMemoryStore()
	job, _ := s.Enqueue(context.Background(), sampleRequest())

	status, err := s.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if status != apitypes.JobCanceled {
		t.Errorf("expected canceled, got %s", status)
	}

	got, _ := s.Get(context.Background(), job.ID)
	if got.FinishedAt == nil {
		t.Error("expected FinishedAt to be set on cancellation")
	}
	if got.Error == nil {
		t.Error("expected a (possibly empty) error field to be set on cancellation")
	}
}

func TestMemoryStoreCancelOnTerminalJobIsNoop(t *testing.T) {
	s := NewMemoryStore()
	job, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Lease(context.Background(), "worker-1")
	_ = s.Complete(context.Background(), job.ID, []byte(`[]`))

	status, err := s.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if status != apitypes.JobDone {
		t.Errorf("canceling a terminal job must report its existing status, got %s", status)
	}
}

func TestMemoryStoreCompleteAfterCancelDoesNotClobberFirstTransition(t *testing.T) {
	s := NewMemoryStore()
	job, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Lease(context.Background(), "worker-1")
	_ = s.MarkCanceled(context.Background(), job.ID, "")

	// A late completion report arrives after the running job was already
	// marked canceled; the first terminal transition must win.
	if err := s.Complete(context.Background(), job.ID, []byte(`[]`)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := s.Get(context.Background(), job.ID)
	if got.Status != apitypes.JobCanceled {
		t.Fatalf("unexpected status %s", got.Status)
	}
}

func TestMemoryStoreActiveCountAndQueueDepth(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Enqueue(context.Background(), sampleRequest())
	job2, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Lease(context.Background(), "worker-1")

	active, err := s.ActiveCount(context.Background())
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if active != 2 {
		t.Errorf("expected 2 active (1 pending + 1 running), got %d", active)
	}

	depth, err := s.QueueDepth(context.Background())
	if err != nil {
		t.Fatalf("QueueDepth: %v", err)
	}
	if depth != 1 {
		t.Errorf("expected queue depth 1, got %d", depth)
	}

	_ = s.Fail(context.Background(), job2.ID, "x")
	active, _ = s.ActiveCount(context.Background())
	if active != 1 {
		t.Errorf("expected 1 active after completing a job, got %d", active)
	}
}

func TestMemoryStoreCancelAllPendingOnlyTouchesPending(t *testing.T) {
	s := NewMemoryStore()
	// Lease always picks the oldest pending job, so the first one enqueued
	// is the one that ends up running; the second stays pending.
	willRun, _ := s.Enqueue(context.Background(), sampleRequest())
	willStayPending, _ := s.Enqueue(context.Background(), sampleRequest())
	_, _ = s.Lease(context.Background(), "worker-1")

	n, err := s.CancelAllPending(context.Background())
	if err != nil {
		t.Fatalf("CancelAllPending: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 pending job to be canceled, got %d", n)
	}

	gotPending, _ := s.Get(context.Background(), willStayPending.ID)
	if gotPending.Status != apitypes.JobCanceled {
		t.Errorf("expected the pending job to be canceled, got %s", gotPending.Status)
	}
	gotRunning, _ := s.Get(context.Background(), willRun.ID)
	if gotRunning.Status != apitypes.JobRunning {
		t.Errorf("CancelAllPending must leave running jobs alone, got %s", gotRunning.Status)
	}
}
