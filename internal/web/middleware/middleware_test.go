package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/dictquery/internal/access"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated request id %q not echoed, header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != "upstream-1" {
		t.Errorf("request id = %q, want upstream-1", seen)
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := RequestID()(Logging(zap.New(core), "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
		w.Write([]byte("ok"))
	})))

	for _, path := range []string{"/rows", "/missing", "/healthz"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["status"] != int64(200) {
		t.Errorf("unexpected entry for /rows: %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["bytes"] != int64(2) {
		t.Errorf("unexpected entry for /missing: %v", entries[1].ContextMap())
	}
	if entries[0].ContextMap()["request_id"] == "" {
		t.Error("request id missing from access log")
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %v, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Errorf("panic value leaked to client: %s", w.Body.String())
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["panic"] != "boom" {
		t.Errorf("panic not logged: %v", logs.All())
	}
}

func TestPrincipal(t *testing.T) {
	var p access.Principal
	handler := Principal()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p = GetPrincipal(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PrincipalIDHeader, "u1")
	req.Header.Set(PrincipalRolesHeader, "sales, admin,")
	req.Header.Set(PrincipalAttributesHeader, "AD_Client_ID=11&AD_Org_ID=0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if p.ID != "u1" || len(p.Roles) != 2 || !p.HasRole("ADMIN") {
		t.Errorf("unexpected principal: %+v", p)
	}
	if p.Attributes["AD_Client_ID"] != "11" {
		t.Errorf("attributes = %v", p.Attributes)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set(PrincipalAttributesHeader, "a=%zz")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %v, want 400", w.Code)
	}
}
