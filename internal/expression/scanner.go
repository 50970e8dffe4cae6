// Package expression scans dictionary logic expressions for column references and binds
// @Name@ context placeholders against an immutable Snapshot.
//
// Scanning is pure text analysis: no expression is ever evaluated. Logic strings such as
// "@DocStatus@='DR' & @IsSOTrx@='Y'" and SQL fragments such as
// "C_Order.DocStatus IN ('CO','CL')" are both treated as free text containing
// identifier tokens.
package expression

// isIdentByte reports whether c can be part of an identifier token.
// '#' and '$' prefix global and accounting context variables.
func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '#' || c == '$'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanTokens calls fn for every identifier token in expr, stopping when fn returns false.
// Tokens starting with a digit are numeric literals and are skipped.
func scanTokens(expr string, fn func(token string) bool) {
	start := -1
	for current := 0; current <= len(expr); current++ {
		if current < len(expr) && isIdentByte(expr[current]) {
			if start < 0 {
				start = current
			}
			continue
		}
		if start < 0 {
			continue
		}
		token := expr[start:current]
		start = -1
		if isDigit(token[0]) {
			continue
		}
		if !fn(token) {
			return
		}
	}
}

// ReferencesColumn reports whether expression references columnName as a whole token.
// "DocStatus" matches "@DocStatus@='DR'" but not "@DocStatusAlt@='DR'".
func ReferencesColumn(expression, columnName string) bool {
	if columnName == "" || expression == "" {
		return false
	}
	found := false
	scanTokens(expression, func(token string) bool {
		if token == columnName {
			found = true
			return false
		}
		return true
	})
	return found
}

// ReferencesAny reports whether columnName is referenced by any of the expressions
func ReferencesAny(columnName string, expressions ...string) bool {
	for _, expr := range expressions {
		if ReferencesColumn(expr, columnName) {
			return true
		}
	}
	return false
}

// ExtractReferencedColumns returns the union of identifier tokens referenced by the
// expressions. Blank expressions contribute nothing.
func ExtractReferencedColumns(expressions ...string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, expr := range expressions {
		scanTokens(expr, func(token string) bool {
			result[token] = struct{}{}
			return true
		})
	}
	return result
}
