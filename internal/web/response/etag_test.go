package response

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWeakETag(t *testing.T) {
	a := WeakETag([]byte(`{"fields":[]}`))
	if !strings.HasPrefix(a, `W/"`) || len(a) != 36 {
		t.Errorf("unexpected etag %q", a)
	}
	if a != WeakETag([]byte(`{"fields":[]}`)) {
		t.Error("etag is not stable")
	}
	if a == WeakETag([]byte(`{"fields":[1]}`)) {
		t.Error("different content produced the same etag")
	}
}

func TestParseIfNoneMatch(t *testing.T) {
	tags := ParseIfNoneMatch(` "a", W/"b" , junk`)
	if len(tags) != 2 || tags[0] != `"a"` || tags[1] != `W/"b"` {
		t.Errorf("tags = %v", tags)
	}
	if tags := ParseIfNoneMatch("*"); len(tags) != 1 || tags[0] != "*" {
		t.Errorf("wildcard tags = %v", tags)
	}
	if ParseIfNoneMatch("") != nil {
		t.Error("empty header should yield no tags")
	}

	if !MatchesETag(`W/"b"`, []string{`"b"`}) {
		t.Error("weak comparison should ignore the W/ prefix")
	}
	if MatchesETag(`W/"b"`, []string{`"c"`}) {
		t.Error("unexpected match")
	}
}

func TestRenderCachedJSON(t *testing.T) {
	body := map[string]string{"column": "DocStatus"}

	w := httptest.NewRecorder()
	RenderCachedJSON(w, httptest.NewRequest(http.MethodGet, "/", nil), body)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" {
		t.Fatalf("status = %d, etag = %q", w.Code, etag)
	}
	if strings.TrimSpace(w.Body.String()) != `{"column":"DocStatus"}` {
		t.Errorf("body = %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	RenderCachedJSON(w, req, body)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Errorf("conditional request: status = %d, body = %q", w.Code, w.Body.String())
	}
}
