package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/dictquery/internal/web/ratelimit"
)

type stubLimiter struct {
	keys []string
	err  error
}

func (s *stubLimiter) Allow(_ context.Context, key string) (*ratelimit.Info, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.Info{Limit: 1, Remaining: 0, ResetAt: time.Now().Add(30 * time.Second), Allowed: len(s.keys) == 1}, nil
}

func (s *stubLimiter) Close() error { return nil }

func TestRateLimit(t *testing.T) {
	limiter := &stubLimiter{}
	handler := Principal()(RateLimit(limiter, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/containers/products/rows", nil)
	req.Header.Set(PrincipalIDHeader, "alice")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected rate limit headers: %v", w.Header())
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 30 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "10.1.2.3:5555"
	handler.ServeHTTP(httptest.NewRecorder(), anon)

	want := []string{"principal:alice", "principal:alice", "addr:10.1.2.3"}
	for i, key := range want {
		if limiter.keys[i] != key {
			t.Errorf("key %d = %q, want %q", i, limiter.keys[i], key)
		}
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	limiter := &stubLimiter{err: errors.New("redis down")}
	handler := RateLimit(limiter, zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}
