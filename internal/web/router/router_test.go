package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/engine"
	"github.com/conduit-lang/dictquery/internal/executor"
	"github.com/conduit-lang/dictquery/internal/lookup"
	"github.com/conduit-lang/dictquery/internal/query"
	"github.com/conduit-lang/dictquery/internal/testutil"
	"github.com/conduit-lang/dictquery/internal/web/middleware"
	"github.com/conduit-lang/dictquery/internal/web/profiling"
	"github.com/conduit-lang/dictquery/internal/web/ratelimit"
	"github.com/conduit-lang/dictquery/internal/web/response"
)

func newTestHandler(t *testing.T, opts engine.Options) http.Handler {
	t.Helper()
	db := testutil.OpenSQLite(t)
	testutil.SeedProducts(t, db)
	registry := testutil.MustParse(t, testutil.ProductDictionaryYAML)
	e := engine.New(registry, executor.New(db, executor.DialectQuestion), opts)
	return New(e, zap.NewNop())
}

func get(t *testing.T, h http.Handler, url string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestListRows_Paging(t *testing.T) {
	h := newTestHandler(t, engine.Options{})

	w := get(t, h, "/v1/containers/products/rows?q=widget&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	scope := w.Header().Get(ScopeIDHeader)
	require.NotEmpty(t, scope)

	var page query.ListResult
	decode(t, w, &page)
	assert.Equal(t, int64(25), page.TotalCount)
	assert.Len(t, page.Rows, 10)
	require.NotEmpty(t, page.NextPageToken)

	w = get(t, h, "/v1/containers/products/rows?q=widget&page_size=10&page_token="+page.NextPageToken,
		map[string]string{ScopeIDHeader: scope})
	require.Equal(t, http.StatusOK, w.Code)
	var next query.ListResult
	decode(t, w, &next)
	assert.NotEqual(t, page.Rows[0]["ID"], next.Rows[0]["ID"])
}

func TestListRows_FiltersAndSort(t *testing.T) {
	h := newTestHandler(t, engine.Options{})

	w := get(t, h, "/v1/containers/products/rows?filter[Name][like]=gadget&filter[ID][in]=31,32,33&sort=-Name", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page query.ListResult
	decode(t, w, &page)
	require.Len(t, page.Rows, 3)
	assert.Equal(t, "Gadget 3", page.Rows[0]["Name"])
	assert.Equal(t, "Gadget 1", page.Rows[2]["Name"])
}

func TestListRows_Errors(t *testing.T) {
	provider, err := access.NewRuleProvider(nil, true)
	require.NoError(t, err)
	denied := newTestHandler(t, engine.Options{Access: provider})
	h := newTestHandler(t, engine.Options{})

	tests := []struct {
		name    string
		handler http.Handler
		url     string
		status  int
		code    string
	}{
		{"unknown container", h, "/v1/containers/nope/rows", http.StatusNotFound, "not_found"},
		{"bad page size", h, "/v1/containers/products/rows?page_size=x", http.StatusBadRequest, "invalid_argument"},
		{"unknown column", h, "/v1/containers/products/rows?filter[Color]=red", http.StatusBadRequest, "invalid_argument"},
		{"access denied", denied, "/v1/containers/products/rows", http.StatusForbidden, "access_denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, tt.handler, tt.url, nil)
			assert.Equal(t, tt.status, w.Code)

			var body response.ErrorResponse
			decode(t, w, &body)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestDependents(t *testing.T) {
	registry := testutil.SalesRegistry(t)
	h := New(engine.New(registry, nil, engine.Options{}), zap.NewNop())

	w := get(t, h, "/v1/windows/w-order/dependents?column=DocStatus", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body DependentsResponse
	decode(t, w, &body)
	assert.Equal(t, "window:w-order", body.Scope)
	require.Len(t, body.Fields, 3)
	assert.Equal(t, "f-docaction", body.Fields[0].FieldID)

	w = get(t, h, "/v1/containers/c-product/dependents?column=Name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"column":"Name","scope":"container:c-product","fields":[]}`, w.Body.String())

	w = get(t, h, "/v1/containers/c-order/dependents", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, h, "/v1/windows/nope/dependents?column=DocStatus", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLookup(t *testing.T) {
	h := newTestHandler(t, engine.Options{})

	w := get(t, h, "/v1/references/Product/lookup?q=GAD&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list lookup.Result
	decode(t, w, &list)
	assert.Equal(t, int64(7), list.TotalCount)
	assert.Len(t, list.Records, 5)
	assert.NotEmpty(t, w.Header().Get(ScopeIDHeader))

	w = get(t, h, "/v1/references/Product/lookup?mode=direct&key=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var direct lookup.Result
	decode(t, w, &direct)
	require.Len(t, direct.Records, 1)
	assert.Equal(t, "Widget 03", direct.Records[0].DisplayText)

	w = get(t, h, "/v1/references/ClientProduct/lookup", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = get(t, h, "/v1/references/ClientProduct/lookup?ctx[%23AD_Client_ID]=12&page_size=100", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var client lookup.Result
	decode(t, w, &client)
	assert.Equal(t, int64(12), client.TotalCount)

	w = get(t, h, "/v1/references/Product/lookup?mode=bulk", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, h, "/v1/references/Product/lookup?mode=direct", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookup_PrincipalHeaders(t *testing.T) {
	provider, err := access.NewRuleProvider([]access.Rule{
		{Table: "Product", Roles: []string{"sales"}, Predicate: "{alias}.AD_Client_ID=@AD_Client_ID@"},
	}, false)
	require.NoError(t, err)
	h := newTestHandler(t, engine.Options{Access: provider})

	w := get(t, h, "/v1/references/Product/lookup?q=widget&page_size=1", map[string]string{
		middleware.PrincipalIDHeader:         "u1",
		middleware.PrincipalRolesHeader:      "sales",
		middleware.PrincipalAttributesHeader: "AD_Client_ID=12",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result lookup.Result
	decode(t, w, &result)
	assert.Equal(t, int64(12), result.TotalCount)
}

func TestHealthAndNotFound(t *testing.T) {
	h := newTestHandler(t, engine.Options{})

	w := get(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(t, h, "/v2/anything", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDependents_ConditionalRequest(t *testing.T) {
	h := New(engine.New(testutil.SalesRegistry(t), nil, engine.Options{}), zap.NewNop())

	w := get(t, h, "/v1/windows/w-order/dependents?column=DocStatus", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = get(t, h, "/v1/windows/w-order/dependents?column=DocStatus", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = get(t, h, "/v1/windows/w-order/dependents?column=C_BPartner_ID", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptions(t *testing.T) {
	registry := testutil.SalesRegistry(t)
	h := New(engine.New(registry, nil, engine.Options{}), zap.NewNop(),
		WithRateLimit(ratelimit.NewTokenBucket(1, time.Minute)),
		WithProfiling(profiling.Config{Enabled: true, Path: "/debug/pprof"}),
	)

	url := "/v1/windows/w-order/dependents?column=DocStatus"
	w := get(t, h, url, map[string]string{middleware.PrincipalIDHeader: "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = get(t, h, url, map[string]string{middleware.PrincipalIDHeader: "u1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body response.ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, "rate_limited", body.Code)

	w = get(t, h, url, map[string]string{middleware.PrincipalIDHeader: "u2"})
	assert.Equal(t, http.StatusOK, w.Code)

	// health and profiling sit outside the limited routes
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/debug/pprof/stats", nil).Code)
}
