// Package query assembles paged list queries over dictionary containers: projection
// with reference display joins, scope and access predicates, dynamic criteria,
// search, ordering and pagination.
package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Operator is a filter criterion operator
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "notEquals"
	OpLike         Operator = "like"
	OpNotLike      Operator = "notLike"
	OpIn           Operator = "in"
	OpNotIn        Operator = "notIn"
	OpBetween      Operator = "between"
	OpIsNull       Operator = "isNull"
	OpIsNotNull    Operator = "isNotNull"
	OpGreater      Operator = "greater"
	OpGreaterEqual Operator = "greaterEqual"
	OpLess         Operator = "less"
	OpLessEqual    Operator = "lessEqual"
)

var operators = []Operator{
	OpEquals, OpNotEquals, OpLike, OpNotLike, OpIn, OpNotIn, OpBetween,
	OpIsNull, OpIsNotNull, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
}

// ParseOperator matches an operator name case-insensitively
func ParseOperator(s string) (Operator, bool) {
	for _, op := range operators {
		if strings.EqualFold(string(op), s) {
			return op, true
		}
	}
	return "", false
}

// arity returns the minimum and maximum number of values an operator takes.
// A negative maximum means unbounded.
func (o Operator) arity() (int, int, bool) {
	switch o {
	case OpEquals, OpNotEquals, OpLike, OpNotLike, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return 1, 1, true
	case OpIn, OpNotIn:
		return 1, -1, true
	case OpBetween:
		return 2, 2, true
	case OpIsNull, OpIsNotNull:
		return 0, 0, true
	default:
		return 0, 0, false
	}
}

var comparisons = map[Operator]string{
	OpEquals:       "=",
	OpNotEquals:    "<>",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpLess:         "<",
	OpLessEqual:    "<=",
}

// predicate renders one operator over an already qualified column expression.
// Values have been arity-checked by the caller.
func predicate(column string, op Operator, values []interface{}) (sq.Sqlizer, error) {
	if sym, ok := comparisons[op]; ok {
		return sq.Expr(fmt.Sprintf("%s %s ?", column, sym), values[0]), nil
	}

	switch op {
	case OpLike:
		return sq.Expr(fmt.Sprintf("UPPER(%s) LIKE ?"+likeEscape, column), likePattern(values[0])), nil
	case OpNotLike:
		return sq.Expr(fmt.Sprintf("UPPER(%s) NOT LIKE ?"+likeEscape, column), likePattern(values[0])), nil
	case OpIn:
		return sq.Expr(fmt.Sprintf("%s IN (%s)", column, sq.Placeholders(len(values))), values...), nil
	case OpNotIn:
		return sq.Expr(fmt.Sprintf("%s NOT IN (%s)", column, sq.Placeholders(len(values))), values...), nil
	case OpBetween:
		return sq.Expr(fmt.Sprintf("%s BETWEEN ? AND ?", column), values[0], values[1]), nil
	case OpIsNull:
		return sq.Expr(column + " IS NULL"), nil
	case OpIsNotNull:
		return sq.Expr(column + " IS NOT NULL"), nil
	default:
		return nil, fmt.Errorf("unsupported operator: %s", op)
	}
}

// likeEscape declares the escape character of likePattern. "!" reads the same on
// PostgreSQL, MySQL and SQLite, unlike a backslash.
const likeEscape = " ESCAPE '!'"

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern upper-cases v, escapes its wildcards and wraps it in %...%
func likePattern(v interface{}) string {
	return "%" + likeEscaper.Replace(strings.ToUpper(fmt.Sprint(v))) + "%"
}

// group parenthesizes a raw predicate so it combines safely with AND
func group(s sq.Sqlizer) sq.Sqlizer {
	return sq.ConcatExpr("(", s, ")")
}
