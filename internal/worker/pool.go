// Package worker implements the worker pool from SPEC_FULL.md §4.8, which
// runs async jobs against either store variant, adapting the ticker-loop shape of
// shared/pkg/scheduler/production_scheduler.go (schedulingLoop →
// runSchedulingCycle) down to a single lease-and-run loop per goroutine:
// job assignment here has no worker-capability matching to do since every
// worker can run every job, so the scheduler's separate health/cleanup
// loops collapse into this one.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevichi7/bench-sort/internal/apitypes"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/engine/plugin"
	"github.com/kevichi7/bench-sort/internal/store"
)

// pollInterval is how long a worker sleeps after an empty lease attempt
// before trying again, per §4.8's "≈100ms" figure.
const pollInterval = 100 * time.Millisecond

// Metrics is the subset of internal/observability's counters the pool
// updates, kept as an interface here to avoid a dependency on the
// concrete Prometheus types.
type Metrics interface {
	JobsRunningSet(n float64)
	WorkersBusySet(n float64)
	QueueDepthSet(n float64)
	JobCompleted(result string)
	RunObserved(mode, dist, elemType string, seconds float64)
	JobDurationObserved(result string, seconds float64)
}

// CancelRegistry tracks the cooperative cancel token for every job
// currently leased by this process, keyed by job id. httpapi's cancel
// handler consults it so a cancel of a running job takes effect without
// the store itself knowing about goroutines. Grounded on SPEC_FULL.md §9's
// "process-local map keyed by job id... populated on lease and cleared on
// completion".
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry builds an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{cancels: make(map[string]context.CancelFunc)}
}

func (r *CancelRegistry) register(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()
}

func (r *CancelRegistry) unregister(id string) {
	r.mu.Lock()
	delete(r.cancels, id)
	r.mu.Unlock()
}

// Cancel fires the cancel token for id if this process currently holds the
// lease for it. It reports whether a token was found.
func (r *CancelRegistry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll fires every currently-registered cancel token, the running-job
// half of the Lifecycle Controller's shutdown broadcast (SPEC_FULL.md
// §4.11); the store-level half is store.Store.CancelAllPending.
func (r *CancelRegistry) CancelAll() int {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for _, c := range r.cancels {
		cancels = append(cancels, c)
	}
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
	return len(cancels)
}

// Pool runs n worker goroutines against st, each repeatedly leasing and
// executing one pending job at a time.
type Pool struct {
	store    store.Store
	plugins  []engine.LoadedPlugin
	metrics  Metrics
	registry *CancelRegistry
	n        int
	busy     atomic.Int64

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New builds a Pool of n workers against st, using plugins for every
// engine invocation and metrics for observability.
func New(st store.Store, plugins []engine.LoadedPlugin, metrics Metrics, n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{
		store:    st,
		plugins:  plugins,
		metrics:  metrics,
		registry: NewCancelRegistry(),
		n:        n,
		stopCh:   make(chan struct{}),
	}
}

// Registry exposes the pool's cancel registry so the HTTP cancel handler
// can signal running jobs.
func (p *Pool) Registry() *CancelRegistry { return p.registry }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start() {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.loop(i)
	}
	go p.sampleQueueDepth()
}

// Stop signals every worker to exit after its current job and waits for
// them to do so, or for ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	close(p.stopCh)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	name := "worker-" + strconv.Itoa(id)
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		job, err := p.store.Lease(context.Background(), name)
		if err != nil {
			log.Printf("[worker] %s: lease error: %v", name, err)
			sleepOrStop(p.stopCh, pollInterval)
			continue
		}
		if job == nil {
			sleepOrStop(p.stopCh, pollInterval)
			continue
		}

		p.run(name, job)
	}
}

func (p *Pool) run(workerName string, job *apitypes.Job) {
	timeout := time.Duration(job.Request.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	p.registry.register(job.ID, cancel)
	defer func() {
		cancel()
		p.registry.unregister(job.ID)
	}()

	if p.metrics != nil {
		p.metrics.WorkersBusySet(float64(p.busy.Add(1)))
		defer func() { p.metrics.WorkersBusySet(float64(p.busy.Add(-1))) }()
	}

	plugins := p.plugins
	if len(job.Request.Plugins) > 0 {
		// Per §4.12, a request's own plugin list extends discovery for
		// that call only; loader errors are non-fatal (§4.5), so a bad
		// path just contributes nothing rather than failing the job.
		extra, _ := plugin.LoadAll(job.Request.Plugins)
		plugins = append(append([]engine.LoadedPlugin{}, p.plugins...), extra...)
	}

	start := time.Now()
	rows, err := engine.Run(ctx, job.Request, plugins)
	elapsed := time.Since(start).Seconds()

	if p.metrics != nil {
		p.metrics.RunObserved("in-process", string(job.Request.Distribution), string(job.Request.ElemType), elapsed)
	}

	switch {
	case ctx.Err() != nil:
		if err := p.store.MarkCanceled(context.Background(), job.ID, "canceled"); err != nil {
			log.Printf("[worker] %s: mark canceled %s: %v", workerName, job.ID, err)
		}
		if p.metrics != nil {
			p.metrics.JobCompleted("canceled")
			p.metrics.JobDurationObserved("canceled", elapsed)
		}
	case err != nil:
		if err := p.store.Fail(context.Background(), job.ID, err.Error()); err != nil {
			log.Printf("[worker] %s: mark failed %s: %v", workerName, job.ID, err)
		}
		if p.metrics != nil {
			p.metrics.JobCompleted("failed")
			p.metrics.JobDurationObserved("failed", elapsed)
		}
	default:
		payload, marshalErr := marshalRows(rows)
		if marshalErr != nil {
			log.Printf("[worker] %s: marshal result %s: %v", workerName, job.ID, marshalErr)
			_ = p.store.Fail(context.Background(), job.ID, marshalErr.Error())
			return
		}
		if err := p.store.Complete(context.Background(), job.ID, payload); err != nil {
			log.Printf("[worker] %s: mark done %s: %v", workerName, job.ID, err)
		}
		if p.metrics != nil {
			p.metrics.JobCompleted("done")
			p.metrics.JobDurationObserved("done", elapsed)
		}
	}
}

func (p *Pool) sampleQueueDepth() {
	ticker := time.NewTicker(pollInterval * 5)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if p.metrics == nil {
				continue
			}
			if n, err := p.store.QueueDepth(context.Background()); err == nil {
				p.metrics.QueueDepthSet(float64(n))
			}
			if n, err := p.store.ActiveCount(context.Background()); err == nil {
				p.metrics.JobsRunningSet(float64(n))
			}
		}
	}
}

func sleepOrStop(stopCh <-chan struct{}, d time.Duration) {
	select {
	case <-stopCh:
	case <-time.After(d):
	}
}

func marshalRows(rows []apitypes.ResultRow) ([]byte, error) {
	return json.Marshal(rows)
}
