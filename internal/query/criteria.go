package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/dictquery/internal/dictionary"
)

// Criterion is one filter condition on a column, or, when AnyOf is set, an
// explicit OR group of nested criteria. Criteria in a list combine with AND.
type Criterion struct {
	Column   string        `json:"column,omitempty"`
	Operator Operator      `json:"operator,omitempty"`
	Values   []interface{} `json:"values,omitempty"`
	AnyOf    []Criterion   `json:"anyOf,omitempty"`
}

// Where builds a single-column criterion
func Where(column string, op Operator, values ...interface{}) Criterion {
	return Criterion{Column: column, Operator: op, Values: values}
}

// AnyOf builds an OR group
func AnyOf(criteria ...Criterion) Criterion {
	return Criterion{AnyOf: criteria}
}

// SortField orders by one column
type SortField struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

// ParseSort parses "Name,-Created" into sort fields; a leading "-" sorts descending
func ParseSort(spec string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			fields = append(fields, SortField{Column: strings.TrimSpace(part[1:]), Descending: true})
		} else {
			fields = append(fields, SortField{Column: strings.TrimPrefix(part, "+")})
		}
	}
	return fields
}

// CriteriaPredicate translates criteria over table (referenced as alias) into one
// ANDed predicate. It returns nil when there are no criteria. Unknown columns,
// unknown operators and wrong value counts are reported as errors.
func CriteriaPredicate(table *dictionary.TableSchema, alias string, criteria []Criterion) (sq.Sqlizer, error) {
	if len(criteria) == 0 {
		return nil, nil
	}
	and := make(sq.And, 0, len(criteria))
	for i, c := range criteria {
		pred, err := criterionPredicate(table, alias, c)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i, err)
		}
		and = append(and, pred)
	}
	return and, nil
}

func criterionPredicate(table *dictionary.TableSchema, alias string, c Criterion) (sq.Sqlizer, error) {
	if len(c.AnyOf) > 0 {
		if c.Column != "" || c.Operator != "" {
			return nil, fmt.Errorf("an OR group cannot also name a column or operator")
		}
		or := make(sq.Or, 0, len(c.AnyOf))
		for _, nested := range c.AnyOf {
			pred, err := criterionPredicate(table, alias, nested)
			if err != nil {
				return nil, err
			}
			or = append(or, pred)
		}
		return or, nil
	}

	col, ok := table.Column(c.Column)
	if !ok {
		return nil, fmt.Errorf("unknown column %q on %s", c.Column, table.Name)
	}

	op, ok := ParseOperator(string(c.Operator))
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", c.Operator)
	}

	minValues, maxValues, _ := op.arity()
	if len(c.Values) < minValues || (maxValues >= 0 && len(c.Values) > maxValues) {
		return nil, fmt.Errorf("operator %s on %s takes %s, got %d", op, col.Name, arityText(minValues, maxValues), len(c.Values))
	}

	return predicate(qualify(alias, col.Name), op, c.Values)
}

func arityText(minValues, maxValues int) string {
	switch {
	case maxValues < 0:
		return fmt.Sprintf("at least %d value(s)", minValues)
	case minValues == maxValues:
		return fmt.Sprintf("exactly %d value(s)", minValues)
	default:
		return fmt.Sprintf("%d to %d values", minValues, maxValues)
	}
}

// SearchPredicate matches value case-insensitively against the searchable columns
// of table, as one parenthesized OR group. It returns nil for a blank value or a
// table without searchable columns.
func SearchPredicate(table *dictionary.TableSchema, alias, value string) sq.Sqlizer {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	cols := table.SearchableColumns()
	if len(cols) == 0 {
		return nil
	}
	pattern := likePattern(strings.TrimSpace(value))
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Expr(fmt.Sprintf("UPPER(%s) LIKE ?"+likeEscape, qualify(alias, col.Name)), pattern))
	}
	return or
}

func qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}
