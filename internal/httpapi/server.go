// Package httpapi implements the HTTP Router (C9) from SPEC_FULL.md §4.9:
// gorilla/mux route registration plus the metrics → rate-limit → auth →
// handler middleware chain, grounded on master/cmd/master/main.go's router
// wiring and the teacher's chained-handler middleware style.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kevichi7/bench-sort/internal/auth"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/observability"
	"github.com/kevichi7/bench-sort/internal/ratelimit"
	"github.com/kevichi7/bench-sort/internal/store"
	"github.com/kevichi7/bench-sort/internal/validate"
	"github.com/kevichi7/bench-sort/internal/worker"
)

// maxBodyBytes is the 1 MiB request body cap from SPEC_FULL.md §3.
const maxBodyBytes = 1 << 20

// Server holds every dependency the route handlers need. It has no
// exported mutable state beyond what its fields already guard themselves
// (Store, KeyManager, Limiter are all internally synchronized).
type Server struct {
	Store      store.Store
	Limits     validate.Limits
	MaxJobs    int
	Keys       *auth.KeyManager
	RateLimit  *ratelimit.Limiter
	Metrics    *observability.Metrics
	Registry   *prometheus.Registry
	Plugins     []engine.LoadedPlugin
	CancelReg   *worker.CancelRegistry
	TrustXFF    bool
	DurableMode bool
	StartedAt   time.Time
}

// NewRouter builds the complete gorilla/mux router: public routes with no
// auth, protected routes behind auth.Middleware, every route except /metrics
// wrapped by the metrics middleware, and /run plus the /jobs routes also
// rate-limited, in §4.9's outer-to-inner order (metrics wrapper → rate
// limit → auth → handler).
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", s.wrap("/healthz", false, http.HandlerFunc(s.handleHealthz))).Methods(http.MethodGet)
	r.Handle("/readyz", s.wrap("/readyz", false, http.HandlerFunc(s.handleReadyz))).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler(s.Registry)).Methods(http.MethodGet)
	r.Handle("/meta", s.wrap("/meta", false, http.HandlerFunc(s.handleMeta))).Methods(http.MethodGet)
	r.Handle("/limits", s.wrap("/limits", false, http.HandlerFunc(s.handleLimits))).Methods(http.MethodGet)

	r.Handle("/run", s.wrap("/run", true, http.HandlerFunc(s.handleRun))).Methods(http.MethodPost)

	r.Handle("/jobs", s.wrap("/jobs", true, s.protect(http.HandlerFunc(s.handleJobsSubmit)))).Methods(http.MethodPost)
	r.Handle("/jobs/{id}", s.wrap("/jobs/{id}", true, s.protect(http.HandlerFunc(s.handleJobGet)))).Methods(http.MethodGet)
	r.Handle("/jobs/{id}/cancel", s.wrap("/jobs/{id}/cancel", true, s.protect(http.HandlerFunc(s.handleJobCancel)))).Methods(http.MethodPost)

	return r
}

// wrap applies the metrics middleware and, when rateLimited is true, the
// rate-limit middleware, in that outer-to-inner order.
func (s *Server) wrap(route string, rateLimited bool, h http.Handler) http.Handler {
	h = http.MaxBytesHandler(h, maxBodyBytes)
	if rateLimited && s.RateLimit != nil {
		keyFn := ratelimit.APIKeyFunc(s.TrustXFF)
		h = s.RateLimit.Middleware(keyFn)(h)
	}
	if s.Metrics != nil {
		h = s.Metrics.HTTPMiddleware(route, h)
	}
	return h
}

// protect applies the auth gate. Only routes documented as "Auth: yes" in
// SPEC_FULL.md §6 call this.
func (s *Server) protect(h http.Handler) http.Handler {
	return auth.Middleware(s.Keys)(h)
}
