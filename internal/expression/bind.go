package expression

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/dictquery/internal/fault"
)

// Fragment is a SQL fragment paired with its positional "?" arguments.
// It satisfies squirrel.Sqlizer.
type Fragment struct {
	SQL  string
	Args []interface{}
}

// ToSql implements squirrel.Sqlizer
func (f Fragment) ToSql() (string, []interface{}, error) {
	return f.SQL, f.Args, nil
}

// IsBlank reports whether the fragment has no SQL text
func (f Fragment) IsBlank() bool {
	return strings.TrimSpace(f.SQL) == ""
}

// placeholder is a parsed @Name@ or @Name:default@ reference
type placeholder struct {
	name       string
	def        string
	hasDefault bool
}

func parsePlaceholder(body string) placeholder {
	if idx := strings.Index(body, ":"); idx >= 0 {
		return placeholder{name: body[:idx], def: body[idx+1:], hasDefault: true}
	}
	return placeholder{name: body}
}

func (p placeholder) resolve(snapshot Snapshot) (interface{}, error) {
	if v, ok := snapshot.Lookup(p.name); ok {
		return v, nil
	}
	if p.hasDefault {
		return p.def, nil
	}
	return nil, fault.New(fault.Unparseable, "expression.Bind", "", "context variable %s is not set", p.name)
}

// Bind resolves every @Name@ placeholder in template against snapshot. Placeholders
// outside string literals become "?" parameters carrying the value. A literal that
// contains placeholders, such as '%@Name@%', becomes a single "?" parameter holding
// the substituted text; a whole-literal placeholder such as '@IsSOTrx@' keeps the
// value's type. Context values never reach the SQL text. A missing variable fails
// with fault.Unparseable.
func Bind(template string, snapshot Snapshot) (Fragment, error) {
	var out strings.Builder
	args := make([]interface{}, 0)

	for i := 0; i < len(template); i++ {
		c := template[i]

		switch c {
		case '\'':
			if end, body, ok := wholeLiteralPlaceholder(template, i); ok {
				v, err := parsePlaceholder(body).resolve(snapshot)
				if err != nil {
					return Fragment{}, err
				}
				out.WriteString("?")
				args = append(args, v)
				i = end
				continue
			}

			end, text, ok := readLiteral(template, i)
			if !ok {
				return Fragment{}, fault.New(fault.Unparseable, "expression.Bind", "", "unterminated string literal")
			}
			value, bound, err := substitute(text, snapshot, "expression.Bind")
			if err != nil {
				return Fragment{}, err
			}
			if bound {
				out.WriteString("?")
				args = append(args, value)
			} else {
				out.WriteString(template[i : end+1])
			}
			i = end

		case '@':
			end := strings.IndexByte(template[i+1:], '@')
			if end < 0 {
				return Fragment{}, fault.New(fault.Unparseable, "expression.Bind", "", "unterminated placeholder at offset %d", i)
			}
			body := template[i+1 : i+1+end]
			i += end + 1
			if body == "" {
				out.WriteByte('@')
				continue
			}
			v, err := parsePlaceholder(body).resolve(snapshot)
			if err != nil {
				return Fragment{}, err
			}
			out.WriteString("?")
			args = append(args, v)

		default:
			out.WriteByte(c)
		}
	}

	return Fragment{SQL: strings.TrimSpace(out.String()), Args: args}, nil
}

// readLiteral reads the string literal opening at position i. It returns the index of
// the closing quote and the literal's text with doubled quotes collapsed.
func readLiteral(template string, i int) (int, string, bool) {
	var text strings.Builder
	for j := i + 1; j < len(template); j++ {
		if template[j] != '\'' {
			text.WriteByte(template[j])
			continue
		}
		if j+1 < len(template) && template[j+1] == '\'' {
			text.WriteByte('\'')
			j++
			continue
		}
		return j, text.String(), true
	}
	return 0, "", false
}

// wholeLiteralPlaceholder detects '@Name@' starting at the quote at position i.
// It returns the index of the closing quote and the placeholder body.
func wholeLiteralPlaceholder(template string, i int) (int, string, bool) {
	if i+1 >= len(template) || template[i+1] != '@' {
		return 0, "", false
	}
	closeAt := strings.IndexByte(template[i+2:], '@')
	if closeAt <= 0 {
		return 0, "", false
	}
	closeAt += i + 2
	quoteAt := closeAt + 1
	if quoteAt >= len(template) || template[quoteAt] != '\'' {
		return 0, "", false
	}
	if quoteAt+1 < len(template) && template[quoteAt+1] == '\'' {
		return 0, "", false
	}
	body := template[i+2 : closeAt]
	if strings.ContainsAny(body, "' ") {
		return 0, "", false
	}
	return quoteAt, body, true
}

// Substitute replaces every @Name@ placeholder with the text of its value.
// It is meant for fragments that cannot carry parameters, such as ORDER BY templates.
func Substitute(template string, snapshot Snapshot) (string, error) {
	text, _, err := substitute(template, snapshot, "expression.Substitute")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// substitute replaces placeholders textually and reports whether any was replaced.
// "@@" stands for a literal "@".
func substitute(template string, snapshot Snapshot, op string) (string, bool, error) {
	var out strings.Builder
	bound := false
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '@' {
			out.WriteByte(c)
			continue
		}
		end := strings.IndexByte(template[i+1:], '@')
		if end < 0 {
			return "", false, fault.New(fault.Unparseable, op, "", "unterminated placeholder at offset %d", i)
		}
		body := template[i+1 : i+1+end]
		i += end + 1
		if body == "" {
			out.WriteByte('@')
			continue
		}
		v, err := parsePlaceholder(body).resolve(snapshot)
		if err != nil {
			return "", false, err
		}
		out.WriteString(fmt.Sprint(v))
		bound = true
	}
	return out.String(), bound, nil
}

// HasPlaceholders reports whether template contains at least one @Name@ reference
func HasPlaceholders(template string) bool {
	first := strings.IndexByte(template, '@')
	if first < 0 {
		return false
	}
	return strings.IndexByte(template[first+1:], '@') > 0
}
