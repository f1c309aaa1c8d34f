// Package observability wires the Prometheus metric families from
// SPEC_FULL.md §4.10, grounded on
// shared/pkg/bandwidth/monitor.go's promauto-free but properly-typed use of
// prometheus.NewCounterVec/NewHistogramVec/NewGaugeVec + MustRegister,
// generalized from HTTP bandwidth counters to request/run/job/queue
// families.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds every metric family the service exposes at /metrics.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	JobsRunning       prometheus.Gauge
	JobsSubmittedTotal prometheus.Counter
	JobsCompletedTotal *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	JobDuration       *prometheus.HistogramVec
	QueueDepth        prometheus.Gauge
	WorkersBusy       prometheus.Gauge
}

// New registers every metric family against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_total",
			Help: "HTTP requests, tagged by route and status.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "HTTP request wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_running",
			Help: "Jobs currently pending or running.",
		}),
		JobsSubmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Jobs enqueued via POST /jobs.",
		}),
		JobsCompletedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Jobs reaching a terminal state, tagged by result.",
		}, []string{"result"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "run_duration_seconds",
			Help:    "Engine invocation wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "dist", "type"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "End-to-end job duration, tagged by terminal result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Pending jobs awaiting a worker lease.",
		}),
		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "workers_busy",
			Help: "Workers currently executing an engine invocation.",
		}),
	}
}

// JobsRunningSet implements worker.Metrics.
func (m *Metrics) JobsRunningSet(n float64) { m.JobsRunning.Set(n) }

// WorkersBusySet implements worker.Metrics.
func (m *Metrics) WorkersBusySet(n float64) { m.WorkersBusy.Set(n) }

// QueueDepthSet implements worker.Metrics.
func (m *Metrics) QueueDepthSet(n float64) { m.QueueDepth.Set(n) }

// JobCompleted implements worker.Metrics.
func (m *Metrics) JobCompleted(result string) { m.JobsCompletedTotal.WithLabelValues(result).Inc() }

// RunObserved implements worker.Metrics.
func (m *Metrics) RunObserved(mode, dist, elemType string, seconds float64) {
	m.RunDuration.WithLabelValues(mode, dist, elemType).Observe(seconds)
}

// JobDurationObserved implements worker.Metrics.
func (m *Metrics) JobDurationObserved(result string, seconds float64) {
	m.JobDuration.WithLabelValues(result).Observe(seconds)
}

// Handler serves reg's exposition format for /metrics, negotiating the
// response encoding (text vs. protobuf-delimited) with prometheus/common's
// expfmt the way the Prometheus client itself does internally, rather than
// hand-rolling fmt.Fprintf exposition the way the teacher's
// master/exporters/prometheus/exporter.go does.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		families, err := gatherer.Gather()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		format := expfmt.Negotiate(r.Header)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, f := range families {
			if err := enc.Encode(f); err != nil {
				return
			}
		}
	})
}

// HTTPMiddleware wraps next, recording RequestsTotal and RequestDuration
// for every request. route should be the mux route template
// (e.g. "/jobs/{id}"), not the literal path, to keep cardinality bounded.
func (m *Metrics) HTTPMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
