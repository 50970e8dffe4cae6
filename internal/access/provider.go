// Package access supplies the row-level predicates that restrict which rows a
// principal can see in a list or lookup query.
package access

import (
	"context"
	"strings"

	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
)

// Principal is the caller on whose behalf a query runs
type Principal struct {
	ID         string
	Roles      []string
	Attributes map[string]interface{}
}

// HasRole reports whether the principal carries role (case-insensitive)
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Snapshot exposes the principal's attributes as context variables.
// The principal id is available as Principal_ID.
func (p Principal) Snapshot() expression.Snapshot {
	values := make(map[string]interface{}, len(p.Attributes)+1)
	for k, v := range p.Attributes {
		values[k] = v
	}
	if p.ID != "" {
		values["Principal_ID"] = p.ID
	}
	return expression.NewSnapshot(values)
}

// Provider produces the access predicate for one table occurrence in a query
type Provider interface {
	PredicateFor(ctx context.Context, tableName, alias string, principal Principal) (expression.Fragment, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, tableName, alias string, principal Principal) (expression.Fragment, error)

// PredicateFor implements Provider
func (f ProviderFunc) PredicateFor(ctx context.Context, tableName, alias string, principal Principal) (expression.Fragment, error) {
	return f(ctx, tableName, alias, principal)
}

// AllowAll is a Provider that never restricts rows
var AllowAll Provider = ProviderFunc(func(context.Context, string, string, Principal) (expression.Fragment, error) {
	return expression.Fragment{}, nil
})

// Fn is the per-query access callback: it returns the predicate restricting
// tableName when it appears under alias. A blank fragment means unrestricted.
type Fn func(tableName, alias string) (expression.Fragment, error)

// Bind fixes the principal and context of a provider, producing an Fn.
// A nil provider yields nil, which callers treat as unrestricted.
func Bind(ctx context.Context, provider Provider, principal Principal) Fn {
	if provider == nil {
		return nil
	}
	return func(tableName, alias string) (expression.Fragment, error) {
		return provider.PredicateFor(ctx, tableName, alias, principal)
	}
}

// Denied returns the error a provider raises when a principal may not see a table at all.
// The caller fills in the container or reference being queried.
func Denied(tableName string, principal Principal) error {
	who := principal.ID
	if who == "" {
		who = "anonymous"
	}
	return fault.New(fault.AccessDenied, "access.PredicateFor", "", "principal %s may not read %s", who, tableName)
}
