// Package params decodes list and lookup query parameters.
package params

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/query"
)

// filterPattern matches filter[Column] and filter[Column][operator]
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\](?:\[([^\]]+)\])?$`)

// contextPattern matches ctx[Name]
var contextPattern = regexp.MustCompile(`^ctx\[([^\]]+)\]$`)

// List holds the decoded parameters shared by row listings and list lookups
type List struct {
	Filters     []query.Criterion
	SearchValue string
	Sort        []query.SortField
	PageToken   string
	PageSize    int32
	Context     expression.Snapshot
}

// ParseList decodes
//
//	filter[Col]=v, filter[Col][op]=v1,v2   criteria, ANDed
//	q=text                                search value
//	sort=Col,-Col                         explicit ordering
//	page_token=..., page_size=n           paging
//	ctx[Name]=value                       context snapshot
func ParseList(r *http.Request) (List, error) {
	values := r.URL.Query()
	out := List{
		SearchValue: strings.TrimSpace(values.Get("q")),
		Sort:        query.ParseSort(values.Get("sort")),
		PageToken:   values.Get("page_token"),
	}

	filters, err := ParseFilters(r)
	if err != nil {
		return List{}, err
	}
	out.Filters = filters

	if raw := values.Get("page_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return List{}, fmt.Errorf("page_size must be a number, got %q", raw)
		}
		out.PageSize = int32(size)
	}

	out.Context = ParseContext(r)
	return out, nil
}

// ParseFilters decodes the filter[...] parameters. Filters are sorted by parameter
// name so the generated SQL is stable.
func ParseFilters(r *http.Request) ([]query.Criterion, error) {
	values := r.URL.Query()
	keys := make([]string, 0, len(values))
	for key := range values {
		if filterPattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	criteria := make([]query.Criterion, 0, len(keys))
	for _, key := range keys {
		matches := filterPattern.FindStringSubmatch(key)
		c, err := ParseCriterion(matches[1], matches[2], values.Get(key))
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

// ParseCriterion builds one criterion from a column, an optional operator name
// (equals when blank) and the raw value. List operators take comma separated values.
func ParseCriterion(column, opName, raw string) (query.Criterion, error) {
	op := query.OpEquals
	if opName != "" {
		parsed, ok := query.ParseOperator(opName)
		if !ok {
			return query.Criterion{}, fmt.Errorf("unknown filter operator %q on %s", opName, column)
		}
		op = parsed
	}
	return query.Where(column, op, filterValues(op, raw)...), nil
}

func filterValues(op query.Operator, raw string) []interface{} {
	switch op {
	case query.OpIsNull, query.OpIsNotNull:
		return nil
	case query.OpIn, query.OpNotIn, query.OpBetween:
		parts := strings.Split(raw, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []interface{}{raw}
	}
}

// ParseContext collects ctx[Name]=value parameters into a snapshot
func ParseContext(r *http.Request) expression.Snapshot {
	vars := make(map[string]string)
	for key, values := range r.URL.Query() {
		matches := contextPattern.FindStringSubmatch(key)
		if len(matches) != 2 || len(values) == 0 {
			continue
		}
		vars[matches[1]] = values[0]
	}
	return expression.SnapshotFromStrings(vars)
}
