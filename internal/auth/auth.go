// Package auth implements the API-key gate from SPEC_FULL.md §4.3, adapted
// from the teacher's pkg/auth/auth.go APIKeyManager: a guarded set of opaque
// keys plus a constant-time membership check.
package auth

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
)

// KeyManager holds the active set of accepted API keys.
type KeyManager struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewKeyManager builds an empty KeyManager. An empty set means every
// protected route returns 401 — there is no "auth disabled" escape hatch.
func NewKeyManager() *KeyManager {
	return &KeyManager{keys: make(map[string]struct{})}
}

// LoadFromEnv populates km from a comma-separated API_KEYS value and/or an
// API_KEYS_FILE path (one key per line, blank lines and lines starting with
// '#' ignored). Either or both may be empty.
func (km *KeyManager) LoadFromEnv(commaSeparated, filePath string) error {
	keys := make(map[string]struct{})
	for _, k := range strings.Split(commaSeparated, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys[k] = struct{}{}
		}
	}
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("auth: open %s: %w", filePath, err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			keys[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("auth: read %s: %w", filePath, err)
		}
	}

	km.mu.Lock()
	km.keys = keys
	km.mu.Unlock()
	return nil
}

// Reload atomically replaces the active key set. It exists for tests and as
// a hook for a future SIGHUP handler; live reload is out of scope (§4.3) and
// this build never wires it to a signal.
func (km *KeyManager) Reload(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	km.mu.Lock()
	km.keys = set
	km.mu.Unlock()
}

// Valid reports whether candidate is a member of the active key set, via a
// constant-time comparison against every key so membership timing does not
// leak which key (if any) matched.
func (km *KeyManager) Valid(candidate string) bool {
	if candidate == "" {
		return false
	}
	km.mu.RLock()
	defer km.mu.RUnlock()

	var match int
	for k := range km.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			match = 1
		}
	}
	return match == 1
}

// Count reports how many keys are currently active, for /limits.
func (km *KeyManager) Count() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.keys)
}

// keyFromRequest extracts a presented key from X-API-Key or
// Authorization: Bearer, preferring the former.
func keyFromRequest(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Middleware rejects any request whose presented key is not in km's set
// with a bare 401 — no descriptive body, to avoid giving an attacker an
// oracle for which keys are "close".
func Middleware(km *KeyManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !km.Valid(keyFromRequest(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
