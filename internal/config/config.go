// Package config loads the server's environment-variable configuration via
// spf13/viper, grounded on cmd/ffrtmp/cmd/root.go's
// viper.AutomaticEnv()/SetDefault initialization.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/kevichi7/bench-sort/internal/validate"
)

// Config is the fully-resolved server configuration, read once at startup
// per SPEC_FULL.md §9's "global mutable state... initialized once".
type Config struct {
	Port         string
	Limits       validate.Limits
	MaxJobs      int
	Workers      int
	RateLimitR   float64
	RateLimitB   int
	TrustXFF     bool
	LogLevel     string
	APIKeys      string
	APIKeysFile  string
	DatabaseURL  string
	DBMaxConns   int
}

// Load reads every environment variable SPEC_FULL.md §6 names, applying
// the same defaults internal/validate.DefaultLimits() uses for the
// engine-facing caps.
func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := validate.DefaultLimits()
	v.SetDefault("PORT", "8080")
	v.SetDefault("MAX_N", defaults.MaxN)
	v.SetDefault("MAX_REPEATS", defaults.MaxRepeats)
	v.SetDefault("MAX_THREADS", defaults.MaxThreads)
	v.SetDefault("MAX_JOBS", 1000)
	v.SetDefault("TIMEOUT_MS", defaults.DefaultTimeoutMS)
	v.SetDefault("WORKERS", 4)
	v.SetDefault("RATE_LIMIT_R", 600.0)
	v.SetDefault("RATE_LIMIT_B", 20)
	v.SetDefault("TRUST_XFF", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_KEYS", "")
	v.SetDefault("API_KEYS_FILE", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)

	return Config{
		Port: v.GetString("PORT"),
		Limits: validate.Limits{
			MaxN:             v.GetInt("MAX_N"),
			MaxRepeats:       v.GetInt("MAX_REPEATS"),
			MaxThreads:       v.GetInt("MAX_THREADS"),
			DefaultTimeoutMS: v.GetInt("TIMEOUT_MS"),
		},
		MaxJobs:     v.GetInt("MAX_JOBS"),
		Workers:     v.GetInt("WORKERS"),
		RateLimitR:  v.GetFloat64("RATE_LIMIT_R"),
		RateLimitB:  v.GetInt("RATE_LIMIT_B"),
		TrustXFF:    v.GetBool("TRUST_XFF"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		APIKeys:     v.GetString("API_KEYS"),
		APIKeysFile: v.GetString("API_KEYS_FILE"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		DBMaxConns:  v.GetInt("DB_MAX_CONNS"),
	}
}
