// Package profiling mounts the runtime profiler on the API router. The endpoints
// expose stacks and memory contents, so they are off unless configured.
package profiling

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Config holds profiling configuration
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// BlockRate and MutexFraction enable the block and mutex profiles when positive
	BlockRate     int `mapstructure:"block_rate"`
	MutexFraction int `mapstructure:"mutex_fraction"`
}

// DefaultConfig returns the default profiling configuration, disabled
func DefaultConfig() Config {
	return Config{Path: "/debug/pprof"}
}

// Mount registers the pprof handlers under cfg.Path when profiling is enabled
func Mount(r chi.Router, cfg Config) {
	if !cfg.Enabled {
		return
	}
	path := strings.TrimRight(cfg.Path, "/")
	if path == "" {
		path = DefaultConfig().Path
	}

	if cfg.BlockRate > 0 {
		runtime.SetBlockProfileRate(cfg.BlockRate)
	}
	if cfg.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(cfg.MutexFraction)
	}

	r.Route(path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Get("/stats", StatsHandler())
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
}

// Runtime summarizes the process
type Runtime struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	NumGC      uint32 `json:"numGc"`
}

// RuntimeStats reads the current runtime statistics
func RuntimeStats() Runtime {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Runtime{Goroutines: runtime.NumGoroutine(), HeapAlloc: m.HeapAlloc, NumGC: m.NumGC}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(RuntimeStats())
	}
}
