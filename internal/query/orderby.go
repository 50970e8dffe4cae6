package query

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/expression"
)

// ExplicitOrder renders sort fields over table columns qualified by alias.
// Unknown columns are an error.
func ExplicitOrder(table *dictionary.TableSchema, alias string, fields []SortField) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := table.Column(f.Column)
		if !ok {
			return "", fmt.Errorf("unknown sort column %q on %s", f.Column, table.Name)
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, qualify(alias, col.Name)+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

// TemplateOrder substitutes context into an ORDER BY template and checks that the
// result is a plain column list.
func TemplateOrder(template string, snapshot expression.Snapshot) (string, error) {
	orderBy, err := expression.Substitute(template, snapshot)
	if err != nil {
		return "", err
	}
	if !IsSafeOrderBy(orderBy) {
		return "", fmt.Errorf("order by %q is not a column list", orderBy)
	}
	return orderBy, nil
}

// KeyOrder orders by the key columns of table
func KeyOrder(table *dictionary.TableSchema, alias string) string {
	keys := table.KeyColumns()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, qualify(alias, k.Name))
	}
	return strings.Join(parts, ", ")
}

// IsSafeOrderBy reports whether s is a comma-separated list of optionally qualified
// identifiers, each optionally followed by ASC/DESC and NULLS FIRST/LAST.
func IsSafeOrderBy(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, item := range strings.Split(s, ",") {
		words := strings.Fields(item)
		if len(words) == 0 || !isQualifiedIdentifier(words[0]) {
			return false
		}
		rest := words[1:]
		if len(rest) > 0 && (strings.EqualFold(rest[0], "ASC") || strings.EqualFold(rest[0], "DESC")) {
			rest = rest[1:]
		}
		if len(rest) == 2 && strings.EqualFold(rest[0], "NULLS") &&
			(strings.EqualFold(rest[1], "FIRST") || strings.EqualFold(rest[1], "LAST")) {
			rest = rest[2:]
		}
		if len(rest) != 0 {
			return false
		}
	}
	return true
}

func isQualifiedIdentifier(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !dictionary.IsValidIdentifier(part) {
			return false
		}
	}
	return true
}
