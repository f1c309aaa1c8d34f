// Command sortbenchd is the sort-benchmarking server: it wires every
// internal package from SPEC_FULL.md's component table into an HTTP
// service and a worker pool that runs async jobs in either store mode.
// Startup/shutdown sequencing
// is grounded on master/cmd/master/main.go; the command tree is grounded on
// cmd/ffrtmp/cmd/root.go's cobra+viper wiring.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kevichi7/bench-sort/internal/auth"
	"github.com/kevichi7/bench-sort/internal/config"
	"github.com/kevichi7/bench-sort/internal/httpapi"
	"github.com/kevichi7/bench-sort/internal/lifecycle"
	"github.com/kevichi7/bench-sort/internal/observability"
	"github.com/kevichi7/bench-sort/internal/ratelimit"
	"github.com/kevichi7/bench-sort/internal/store"
	"github.com/kevichi7/bench-sort/internal/worker"
)

func main() {
	root := &cobra.Command{
		Use:   "sortbenchd",
		Short: "sort-benchmarking service",
	}
	root.AddCommand(serveCmd(), migrateCmd())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "run pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("migrate: DATABASE_URL is not set")
			}
			st, err := store.Open(cfg.DatabaseURL, cfg.DBMaxConns)
			if err != nil {
				return err
			}
			return st.Close()
		},
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func runServe() error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	slog.Info("starting sortbenchd", "port", cfg.Port, "durable", cfg.DatabaseURL != "")

	keys := auth.NewKeyManager()
	if err := keys.LoadFromEnv(cfg.APIKeys, cfg.APIKeysFile); err != nil {
		return fmt.Errorf("load api keys: %w", err)
	}
	log.Printf("[startup] loaded %d API key(s)", keys.Count())

	var (
		st          store.Store
		durableMode bool
	)
	if cfg.DatabaseURL != "" {
		sqlStore, err := store.Open(cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("open durable store: %w", err)
		}
		st = sqlStore
		durableMode = true
		log.Println("[startup] durable mode: store backed by DATABASE_URL")
	} else {
		st = store.NewMemoryStore()
		log.Println("[startup] in-memory store (data will not persist restarts)")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	limiter := ratelimit.NewLimiter(cfg.RateLimitR, cfg.RateLimitB)

	srv := &httpapi.Server{
		Store:       st,
		Limits:      cfg.Limits,
		MaxJobs:     cfg.MaxJobs,
		Keys:        keys,
		RateLimit:   limiter,
		Metrics:     metrics,
		Registry:    registry,
		TrustXFF:    cfg.TrustXFF,
		DurableMode: durableMode,
		StartedAt:   time.Now(),
	}

	lm := lifecycle.New(lifecycle.DefaultGracePeriod)

	// A worker pool leases and runs jobs against the Store interface
	// regardless of which variant backs it (§9's "two-variant store
	// abstraction": code above the interface must not special-case either
	// side of it). In durable mode the lease is a SQL transaction (with SKIP
	// LOCKED on Postgres); in-memory it is a scan under the store's own
	// locks. Either way this is the only thing that ever moves a job from
	// "pending" to "running".
	pool := worker.New(st, nil, metrics, cfg.Workers)
	srv.CancelReg = pool.Registry()
	pool.Start()
	log.Printf("[startup] worker pool running with %d workers (durable=%v)", cfg.Workers, durableMode)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.NewRouter(),
	}

	// Manager.Shutdown runs registered functions LIFO, so the cancel
	// broadcast — which §4.11 calls for first, ahead of server shutdown —
	// is registered last, after the listener/workers/store steps below.
	lm.Register(lifecycle.StopHTTPServer(httpServer, "sortbenchd"))
	lm.Register(lifecycle.StopWorkers(pool, "worker pool"))
	lm.Register(lifecycle.CloseResource(st, "store"))
	lm.Register(func(ctx context.Context) error {
		running := pool.Registry().CancelAll()
		pending, err := st.CancelAllPending(ctx)
		log.Printf("[lifecycle] broadcast cancel: %d running, %d pending", running, pending)
		return err
	})

	go func() {
		log.Printf("[startup] listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[startup] serve: %v", err)
		}
	}()

	lm.Wait()
	return nil
}
