// Package router maps the HTTP API onto the engine. Handlers only decode
// parameters and render results.
package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/dependency"
	"github.com/conduit-lang/dictquery/internal/engine"
	"github.com/conduit-lang/dictquery/internal/lookup"
	"github.com/conduit-lang/dictquery/internal/query"
	"github.com/conduit-lang/dictquery/internal/web/middleware"
	"github.com/conduit-lang/dictquery/internal/web/params"
	"github.com/conduit-lang/dictquery/internal/web/profiling"
	"github.com/conduit-lang/dictquery/internal/web/ratelimit"
	"github.com/conduit-lang/dictquery/internal/web/response"
)

// ScopeIDHeader carries the paging scope. Requests without one get a fresh scope,
// echoed back so the client can continue paging.
const ScopeIDHeader = "X-Scope-ID"

// Service is the engine surface the router needs
type Service interface {
	ListContainerRows(ctx context.Context, req query.ListRequest, principal access.Principal) (*query.ListResult, error)
	ResolveDependents(ctx context.Context, sourceColumn string, scope dependency.ScopeRef) ([]dependency.DependentField, error)
	ResolveLookup(ctx context.Context, req engine.LookupRequest) (*lookup.Result, error)
}

// DependentsResponse is the body of the dependents endpoints
type DependentsResponse struct {
	Column string                      `json:"column"`
	Scope  string                      `json:"scope"`
	Fields []dependency.DependentField `json:"fields"`
}

type handlers struct {
	svc Service
}

type options struct {
	limiter   ratelimit.Limiter
	profiling profiling.Config
}

// Option configures optional parts of the handler
type Option func(*options)

// WithRateLimit throttles the /v1 routes per caller
func WithRateLimit(limiter ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

// WithProfiling mounts the pprof routes when cfg.Enabled is set
func WithProfiling(cfg profiling.Config) Option {
	return func(o *options) { o.profiling = cfg }
}

// New builds the HTTP handler with its middleware stack
func New(svc Service, logger *zap.Logger, opts ...Option) http.Handler {
	h := &handlers{svc: svc}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger, "/healthz"))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Principal())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	profiling.Mount(r, o.profiling)

	r.Route("/v1", func(r chi.Router) {
		if o.limiter != nil {
			r.Use(middleware.RateLimit(o.limiter, logger))
		}
		r.Get("/containers/{id}/rows", h.listRows)
		r.Get("/containers/{id}/dependents", h.dependents(dependency.ContainerScope))
		r.Get("/windows/{id}/dependents", h.dependents(dependency.WindowScope))
		r.Get("/references/{id}/lookup", h.lookup)
		r.Get("/tables/{table}/columns/{column}/lookup", h.lookup)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderError(w, http.StatusNotFound, response.ErrorResponse{
			Error:     "error",
			Message:   "route not found",
			Code:      "not_found",
			RequestID: middleware.GetRequestID(r.Context()),
		})
	})

	return r
}

func scopeID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(ScopeIDHeader)
	if id == "" {
		id = r.URL.Query().Get("scope")
	}
	if id == "" {
		id = uuid.New().String()
	}
	w.Header().Set(ScopeIDHeader, id)
	return id
}

func (h *handlers) listRows(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	list, err := params.ParseList(r)
	if err != nil {
		response.RenderBadRequest(w, requestID, err.Error())
		return
	}

	result, err := h.svc.ListContainerRows(r.Context(), query.ListRequest{
		ContainerID: chi.URLParam(r, "id"),
		Context:     list.Context,
		Filters:     list.Filters,
		SearchValue: list.SearchValue,
		Sort:        list.Sort,
		ScopeID:     scopeID(w, r),
		PageToken:   list.PageToken,
		PageSize:    list.PageSize,
	}, middleware.GetPrincipal(r.Context()))
	if err != nil {
		response.RenderFault(w, requestID, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, result)
}

func (h *handlers) dependents(scopeOf func(string) dependency.ScopeRef) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())

		column := strings.TrimSpace(r.URL.Query().Get("column"))
		if column == "" {
			response.RenderBadRequest(w, requestID, "column query parameter is required")
			return
		}

		scope := scopeOf(chi.URLParam(r, "id"))
		fields, err := h.svc.ResolveDependents(r.Context(), column, scope)
		if err != nil {
			response.RenderFault(w, requestID, err)
			return
		}
		if fields == nil {
			fields = []dependency.DependentField{}
		}
		response.RenderCachedJSON(w, r, DependentsResponse{Column: column, Scope: scope.String(), Fields: fields})
	}
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	mode, err := lookup.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		response.RenderBadRequest(w, requestID, err.Error())
		return
	}
	list, err := params.ParseList(r)
	if err != nil {
		response.RenderBadRequest(w, requestID, err.Error())
		return
	}

	req := engine.LookupRequest{
		ReferenceID: chi.URLParam(r, "id"),
		TableName:   chi.URLParam(r, "table"),
		ColumnName:  chi.URLParam(r, "column"),
		Context:     list.Context,
		Mode:        mode,
		Principal:   middleware.GetPrincipal(r.Context()),
	}
	if mode == lookup.ModeDirect {
		req.Args = lookup.ListArgs{Key: r.URL.Query().Get("key")}
	} else {
		req.Args = lookup.ListArgs{
			Filters:     list.Filters,
			SearchValue: list.SearchValue,
			Sort:        list.Sort,
			ScopeID:     scopeID(w, r),
			PageToken:   list.PageToken,
			PageSize:    list.PageSize,
		}
	}

	result, err := h.svc.ResolveLookup(r.Context(), req)
	if err != nil {
		response.RenderFault(w, requestID, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, result)
}
