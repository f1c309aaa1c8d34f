package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

// newSQLiteStore opens a SQLStore against a temp-file SQLite DSN. A file
// (not ":memory:") is required so the store's single connection survives
// across calls the way a real durable deployment's DB does; ":memory:"
// would otherwise tie the whole database's lifetime to one *sql.DB
// connection in a way that's easy to trip over in this test file but
// invisible in production.
func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db")
	st, err := Open(dsn, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
		os.Remove(dsn)
	})
	return st
}

// TestSQLStoreLifecycle exercises the durable store end-to-end against a
// real SQLite file, grounded on shared/pkg/store/postgres_test.go's
// integration-test shape (create store, exercise every operation, assert on
// the round trip) adapted to SQLite so it needs no external DATABASE_DSN.
func TestSQLStoreLifecycle(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	req := apitypes.Request{N: 1000, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 2}
	job, err := st.Enqueue(ctx, req)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != apitypes.JobPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Request.N != req.N {
		t.Errorf("expected request N=%d to round-trip, got %d", req.N, got.Request.N)
	}

	leased, err := st.Lease(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if leased == nil || leased.ID != job.ID {
		t.Fatalf("expected to lease job %s, got %+v", job.ID, leased)
	}

	if err := st.Complete(ctx, job.ID, []byte(`[{"algo":"std_sort"}]`)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	done, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get after complete: %v", err)
	}
	if done.Status != apitypes.JobDone {
		t.Errorf("expected done, got %s", done.Status)
	}
	if len(done.Result) == 0 {
		t.Error("expected a non-empty result after Complete")
	}
	if done.DurationMS == nil {
		t.Error("expected a duration to be recorded")
	}
}

func TestSQLStoreGetMissingReturnsErrNotFound(t *testing.T) {
	st := newSQLiteStore(t)
	if _, err := st.Get(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStoreFailLeavesResultNull(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	job, _ := st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})
	if _, err := st.Lease(ctx, "worker-1"); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	if err := st.Fail(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != apitypes.JobFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error == nil || *got.Error != "boom" {
		t.Errorf("expected error 'boom', got %v", got.Error)
	}
	if len(got.Result) != 0 {
		t.Errorf("a failed job must carry no result, got %q", got.Result)
	}
}

func TestSQLStoreCancelPendingJob(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	job, _ := st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})

	status, err := st.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if status != apitypes.JobCanceled {
		t.Errorf("expected canceled, got %s", status)
	}

	secondStatus, err := st.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if secondStatus != apitypes.JobCanceled {
		t.Errorf("canceling an already-canceled job must report its existing terminal status, got %s", secondStatus)
	}
}

func TestSQLStoreCancelAllPendingLeavesRunningAlone(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	willRun, _ := st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})
	willStayPending, _ := st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})
	if _, err := st.Lease(ctx, "worker-1"); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	n, err := st.CancelAllPending(ctx)
	if err != nil {
		t.Fatalf("CancelAllPending: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 pending job canceled, got %d", n)
	}

	gotRunning, _ := st.Get(ctx, willRun.ID)
	if gotRunning.Status != apitypes.JobRunning {
		t.Errorf("CancelAllPending must leave running jobs alone, got %s", gotRunning.Status)
	}
	gotPending, _ := st.Get(ctx, willStayPending.ID)
	if gotPending.Status != apitypes.JobCanceled {
		t.Errorf("expected the pending job to be canceled, got %s", gotPending.Status)
	}
}

func TestSQLStoreActiveCountAndQueueDepth(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	_, _ = st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})
	_, _ = st.Enqueue(ctx, apitypes.Request{N: 10, Distribution: apitypes.DistRandom, ElemType: apitypes.ElemI32, Repeats: 1})
	if _, err := st.Lease(ctx, "worker-1"); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	active, err := st.ActiveCount(ctx)
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if active != 2 {
		t.Errorf("expected 2 active, got %d", active)
	}

	depth, err := st.QueueDepth(ctx)
	if err != nil {
		t.Fatalf("QueueDepth: %v", err)
	}
	if depth != 1 {
		t.Errorf("expected queue depth 1, got %d", depth)
	}
}
