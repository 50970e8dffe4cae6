package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Statement is a SELECT ... FROM base plus the predicates and ordering applied to it.
// Every predicate carries its own arguments, so fragments and parameters can never
// drift apart. Placeholders are "?" until Render applies the dialect's format.
type Statement struct {
	base    sq.Sqlizer
	where   sq.And
	orderBy string
}

// NewStatement starts a statement from a base SELECT without WHERE or ORDER BY
func NewStatement(base sq.Sqlizer) *Statement {
	return &Statement{base: base}
}

// Where ANDs pred into the statement. A nil predicate is ignored.
func (s *Statement) Where(pred sq.Sqlizer) *Statement {
	if pred != nil {
		s.where = append(s.where, pred)
	}
	return s
}

// OrderBy sets the ORDER BY list
func (s *Statement) OrderBy(orderBy string) *Statement {
	s.orderBy = orderBy
	return s
}

// Predicates returns the number of ANDed predicates
func (s *Statement) Predicates() int {
	return len(s.where)
}

func (s *Statement) filtered() sq.Sqlizer {
	if len(s.where) == 0 {
		return s.base
	}
	return sq.ConcatExpr(s.base, " WHERE ", s.where)
}

// Count returns the COUNT(*) variant of the filtered statement, without order or paging
func (s *Statement) Count() sq.Sqlizer {
	return sq.ConcatExpr("SELECT COUNT(*) FROM (", s.filtered(), ") counted")
}

// Page returns the ordered statement restricted to limit rows after offset
func (s *Statement) Page(limit uint64, offset uint64) sq.Sqlizer {
	parts := []interface{}{s.filtered()}
	if s.orderBy != "" {
		parts = append(parts, " ORDER BY "+s.orderBy)
	}
	parts = append(parts, fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))
	return sq.ConcatExpr(parts...)
}

// Single returns the filtered statement with at most one row
func (s *Statement) Single() sq.Sqlizer {
	return sq.ConcatExpr(s.filtered(), " LIMIT 1")
}

// Render converts a statement part to SQL in the given placeholder format
func Render(part sq.Sqlizer, format sq.PlaceholderFormat) (string, []interface{}, error) {
	sql, args, err := part.ToSql()
	if err != nil {
		return "", nil, err
	}
	sql, err = format.ReplacePlaceholders(sql)
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}
