// Package lookup resolves reference lookups: the single record behind a key
// (direct mode) or a paged, searchable list of candidates (list mode).
package lookup

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
	"github.com/conduit-lang/dictquery/internal/query"
)

// Mode selects direct or list resolution
type Mode int

const (
	// ModeDirect fetches the record for one key
	ModeDirect Mode = iota
	// ModeList fetches a page of candidate records
	ModeList
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeDirect {
		return "direct"
	}
	return "list"
}

// ParseMode converts "direct" or "list" to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ModeDirect, nil
	case "", "list":
		return ModeList, nil
	default:
		return 0, fmt.Errorf("unknown lookup mode: %s", s)
	}
}

// ListArgs carries the mode-specific arguments of a lookup
type ListArgs struct {
	// Key is required in direct mode
	Key interface{}

	Filters     []query.Criterion
	SearchValue string
	Sort        []query.SortField
	ScopeID     string
	PageToken   string
	PageSize    int32
	Access      access.Fn
}

// Record is one lookup candidate
type Record struct {
	Key         interface{} `json:"key"`
	Value       interface{} `json:"value,omitempty"`
	DisplayText string      `json:"displayText"`
}

// Result holds the resolved records. Direct lookups return at most one record.
type Result struct {
	Records       []Record `json:"records"`
	TotalCount    int64    `json:"totalCount"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

const opResolve = "lookup.Resolve"

// Resolver builds and runs reference lookups through a query assembler
type Resolver struct {
	assembler *query.Assembler
	repo      dictionary.Repository
}

// NewResolver creates a resolver sharing the assembler's metadata and executor
func NewResolver(assembler *query.Assembler) *Resolver {
	return &Resolver{assembler: assembler, repo: assembler.Repository()}
}

// Resolve runs a direct or list lookup for ref against snapshot. The reference's
// validation rule must bind completely against snapshot: if it cannot, the lookup
// fails with fault.Unparseable before any query is issued.
func (r *Resolver) Resolve(ctx context.Context, ref *dictionary.ReferenceDescriptor, snapshot expression.Snapshot, mode Mode, extra ListArgs) (*Result, error) {
	if ref == nil {
		return nil, fault.New(fault.InvalidArgument, opResolve, "", "reference descriptor is required")
	}

	src, err := sourceFor(ctx, r.repo, ref)
	if err != nil {
		return nil, err
	}

	template := ref.ListQuery
	if mode == ModeDirect {
		template = ref.DirectQuery
	}
	base := src.base
	if strings.TrimSpace(template) != "" {
		bound, err := expression.Bind(template, snapshot)
		if err != nil {
			return nil, fault.Wrap(fault.Unparseable, opResolve, ref.ID, err)
		}
		base = bound
	}

	stmt := query.NewStatement(base)
	for _, pred := range src.fixed {
		stmt.Where(pred)
	}

	if strings.TrimSpace(ref.WhereClause) != "" {
		where, err := expression.Bind(ref.WhereClause, snapshot)
		if err != nil {
			return nil, fault.Wrap(fault.Unparseable, opResolve, ref.ID, err)
		}
		stmt.Where(parenthesize(where))
	}

	rule, err := r.validationPredicate(ctx, ref, snapshot)
	if err != nil {
		return nil, err
	}
	stmt.Where(rule)

	if err := query.ApplyAccess(stmt, extra.Access, src.table.Name, src.alias); err != nil {
		return nil, fault.Wrap(fault.AccessDenied, opResolve, ref.ID, err)
	}

	if mode == ModeDirect {
		return r.direct(ctx, ref, src, stmt, extra.Key)
	}
	return r.list(ctx, ref, src, stmt, snapshot, extra)
}

// validationPredicate binds the reference's validation rule. A rule whose code is
// non-blank but resolves to nothing fails rather than widening the lookup.
func (r *Resolver) validationPredicate(ctx context.Context, ref *dictionary.ReferenceDescriptor, snapshot expression.Snapshot) (sq.Sqlizer, error) {
	if ref.ValidationRuleID == "" {
		return nil, nil
	}
	rule, err := r.repo.ValidationRule(ctx, ref.ValidationRuleID)
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opResolve, ref.ID, err)
	}
	if strings.TrimSpace(rule.Code) == "" {
		return nil, nil
	}

	text, err := expression.Substitute(rule.Code, snapshot)
	if err != nil {
		return nil, fault.Wrap(fault.Unparseable, opResolve, ref.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fault.New(fault.Unparseable, opResolve, ref.ID, "validation rule %s resolved to an empty predicate", rule.ID)
	}

	bound, err := expression.Bind(rule.Code, snapshot)
	if err != nil {
		return nil, fault.Wrap(fault.Unparseable, opResolve, ref.ID, err)
	}
	if bound.IsBlank() {
		return nil, fault.New(fault.Unparseable, opResolve, ref.ID, "validation rule %s resolved to an empty predicate", rule.ID)
	}
	return parenthesize(bound), nil
}

func (r *Resolver) direct(ctx context.Context, ref *dictionary.ReferenceDescriptor, src *source, stmt *query.Statement, key interface{}) (*Result, error) {
	if key == nil || (isString(key) && strings.TrimSpace(key.(string)) == "") {
		return nil, fault.New(fault.InvalidArgument, opResolve, ref.ID, "direct lookup requires a key")
	}
	stmt.Where(sq.Expr(src.key+" = ?", key))

	row, ok, err := r.assembler.First(ctx, opResolve, ref.ID, stmt)
	if err != nil {
		return nil, err
	}
	result := &Result{Records: make([]Record, 0, 1)}
	if ok {
		result.Records = append(result.Records, toRecord(row))
		result.TotalCount = 1
	}
	return result, nil
}

func (r *Resolver) list(ctx context.Context, ref *dictionary.ReferenceDescriptor, src *source, stmt *query.Statement, snapshot expression.Snapshot, extra ListArgs) (*Result, error) {
	criteria, err := query.CriteriaPredicate(src.table, src.alias, extra.Filters)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidArgument, opResolve, ref.ID, err)
	}
	stmt.Where(criteria)
	stmt.Where(query.SearchPredicate(src.search, src.alias, extra.SearchValue))

	orderBy := src.order
	switch {
	case len(extra.Sort) > 0:
		orderBy, err = query.ExplicitOrder(src.table, src.alias, extra.Sort)
		if err != nil {
			return nil, fault.Wrap(fault.InvalidArgument, opResolve, ref.ID, err)
		}
	case strings.TrimSpace(ref.OrderBy) != "":
		orderBy, err = query.TemplateOrder(ref.OrderBy, snapshot)
		if err != nil {
			return nil, fault.Wrap(fault.Unparseable, opResolve, ref.ID, err)
		}
	}
	stmt.OrderBy(orderBy)

	page, err := r.assembler.Execute(ctx, opResolve, ref.ID, stmt, query.Page{
		ScopeID: extra.ScopeID,
		Token:   extra.PageToken,
		Size:    extra.PageSize,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Records:       make([]Record, 0, len(page.Rows)),
		TotalCount:    page.TotalCount,
		NextPageToken: page.NextPageToken,
	}
	for _, row := range page.Rows {
		result.Records = append(result.Records, toRecord(row))
	}
	return result, nil
}

func toRecord(row query.Row) Record {
	rec := Record{
		Key:   column(row, KeyAlias),
		Value: column(row, ValueAlias),
	}
	if display := column(row, DisplayAlias); display != nil {
		rec.DisplayText = fmt.Sprint(display)
	}
	return rec
}

// column reads an aliased column; some databases fold unquoted aliases to lower case
func column(row query.Row, name string) interface{} {
	if v, ok := row[name]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func parenthesize(f expression.Fragment) sq.Sqlizer {
	return sq.ConcatExpr("(", f, ")")
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}
