// Package engine exposes the three public calls of dictquery: container listing,
// dependent-field resolution and reference lookup.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/cache"
	"github.com/conduit-lang/dictquery/internal/dependency"
	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/executor"
	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
	"github.com/conduit-lang/dictquery/internal/lookup"
	"github.com/conduit-lang/dictquery/internal/pagination"
	"github.com/conduit-lang/dictquery/internal/query"
)

// Options configures optional engine collaborators. The zero value gives default
// paging, no cache, unrestricted access and a no-op logger.
type Options struct {
	Pages    *pagination.Manager
	Cache    cache.Cache
	CacheTTL time.Duration
	Access   access.Provider
	Logger   *zap.Logger
}

// Engine wires the assembler, dependency resolver and lookup resolver over one
// dictionary and executor. It is safe for concurrent use.
type Engine struct {
	repo       dictionary.Repository
	assembler  *query.Assembler
	dependents *dependency.Resolver
	lookups    *lookup.Resolver

	cache    cache.Cache
	cacheTTL time.Duration
	access   access.Provider
	logger   *zap.Logger
}

// New creates an engine
func New(repo dictionary.Repository, exec executor.Executor, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	assembler := query.NewAssembler(repo, exec, opts.Pages)
	return &Engine{
		repo:       repo,
		assembler:  assembler,
		dependents: dependency.NewResolver(repo),
		lookups:    lookup.NewResolver(assembler),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		access:     opts.Access,
		logger:     logger.Named("engine"),
	}
}

// Repository returns the dictionary the engine serves
func (e *Engine) Repository() dictionary.Repository {
	return e.repo
}

// ListContainerRows returns one page of a container's rows as seen by principal.
// An access callback already set on req takes precedence over the engine's provider.
func (e *Engine) ListContainerRows(ctx context.Context, req query.ListRequest, principal access.Principal) (*query.ListResult, error) {
	start := time.Now()
	if req.Access == nil {
		req.Access = access.Bind(ctx, e.access, principal)
	}

	result, err := e.assembler.ListContainerRows(ctx, req)
	if err != nil {
		e.failed("list container rows", err, zap.String("container", req.ContainerID))
		return nil, err
	}

	e.logger.Debug("listed container rows",
		zap.String("container", req.ContainerID),
		zap.Int("rows", len(result.Rows)),
		zap.Int64("total", result.TotalCount),
		zap.Bool("more", result.NextPageToken != ""),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// ResolveDependents lists the fields whose logic references sourceColumn within scope.
// Results are cached when the engine has a cache; a failing cache only costs a rescan.
func (e *Engine) ResolveDependents(ctx context.Context, sourceColumn string, scope dependency.ScopeRef) ([]dependency.DependentField, error) {
	start := time.Now()
	key := cache.DependentsKey(scope.String(), sourceColumn)

	if fields, ok := e.cachedDependents(ctx, key); ok {
		e.logger.Debug("dependents served from cache",
			zap.Stringer("scope", scope),
			zap.String("column", sourceColumn),
			zap.Int("fields", len(fields)),
		)
		return fields, nil
	}

	fields, err := e.dependents.ResolveDependents(ctx, sourceColumn, scope)
	if err != nil {
		e.failed("resolve dependents", err, zap.Stringer("scope", scope), zap.String("column", sourceColumn))
		return nil, err
	}
	e.storeDependents(ctx, key, fields)

	e.logger.Debug("resolved dependents",
		zap.Stringer("scope", scope),
		zap.String("column", sourceColumn),
		zap.Int("fields", len(fields)),
		zap.Duration("duration", time.Since(start)),
	)
	return fields, nil
}

func (e *Engine) cachedDependents(ctx context.Context, key string) ([]dependency.DependentField, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, err := e.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			e.logger.Warn("dependents cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var fields []dependency.DependentField
	if err := json.Unmarshal(data, &fields); err != nil {
		e.logger.Warn("dependents cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return fields, true
}

func (e *Engine) storeDependents(ctx context.Context, key string, fields []dependency.DependentField) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
		e.logger.Warn("dependents cache write failed", zap.Error(err))
	}
}

// LookupRequest identifies a reference either by id or by the table column that uses it
type LookupRequest struct {
	ReferenceID string
	TableName   string
	ColumnName  string

	Context   expression.Snapshot
	Mode      lookup.Mode
	Args      lookup.ListArgs
	Principal access.Principal
}

// ResolveLookup runs a direct or list lookup. When the request names a column, the
// column's own validation rule and list reference value override the descriptor's.
func (e *Engine) ResolveLookup(ctx context.Context, req LookupRequest) (*lookup.Result, error) {
	start := time.Now()

	ref, err := e.referenceFor(ctx, req)
	if err != nil {
		e.failed("resolve lookup", err, zap.String("reference", req.ReferenceID), zap.String("column", req.ColumnName))
		return nil, err
	}

	args := req.Args
	if args.Access == nil {
		args.Access = access.Bind(ctx, e.access, req.Principal)
	}

	result, err := e.lookups.Resolve(ctx, ref, req.Context, req.Mode, args)
	if err != nil {
		e.failed("resolve lookup", err, zap.String("reference", ref.ID), zap.Stringer("mode", req.Mode))
		return nil, err
	}

	e.logger.Debug("resolved lookup",
		zap.String("reference", ref.ID),
		zap.Stringer("mode", req.Mode),
		zap.Int("records", len(result.Records)),
		zap.Int64("total", result.TotalCount),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (e *Engine) referenceFor(ctx context.Context, req LookupRequest) (*dictionary.ReferenceDescriptor, error) {
	const op = "engine.ResolveLookup"

	if req.TableName == "" && req.ColumnName == "" {
		if req.ReferenceID == "" {
			return nil, fault.New(fault.InvalidArgument, op, "", "a reference id or a table column is required")
		}
		return e.repo.Reference(ctx, req.ReferenceID)
	}
	if req.TableName == "" || req.ColumnName == "" {
		return nil, fault.New(fault.InvalidArgument, op, req.ColumnName, "both table and column are required")
	}

	table, err := e.repo.Table(ctx, req.TableName)
	if err != nil {
		return nil, err
	}
	col, ok := table.Column(req.ColumnName)
	if !ok {
		return nil, fault.New(fault.NotFound, op, req.TableName+"."+req.ColumnName, "column not found")
	}
	if col.ReferenceID == "" {
		return nil, fault.New(fault.InvalidArgument, op, table.Name+"."+col.Name, "column has no reference")
	}

	ref, err := e.repo.Reference(ctx, col.ReferenceID)
	if err != nil {
		return nil, err
	}
	if col.ValidationRuleID == "" && col.ReferenceValueID == "" {
		return ref, nil
	}

	scoped := *ref
	if col.ValidationRuleID != "" {
		scoped.ValidationRuleID = col.ValidationRuleID
	}
	if col.ReferenceValueID != "" {
		scoped.ReferenceValueID = col.ReferenceValueID
	}
	return &scoped, nil
}

// failed logs a failed call. Caller errors are logged at debug with their SQL;
// execution failures are logged at error without it.
func (e *Engine) failed(call string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", fault.KindOf(err).String()))

	diagnostic := err.Error()
	var fe *fault.Error
	if errors.As(err, &fe) {
		diagnostic = fe.Diagnostic()
	}

	if fault.Is(err, fault.ExecutionFailure) {
		e.logger.Error(call+" failed", append(fields, zap.Error(err))...)
	}
	e.logger.Debug(call+" failed", append(fields, zap.String("diagnostic", diagnostic))...)
}
