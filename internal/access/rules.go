package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
)

// AliasToken is replaced by the table alias in rule predicates
const AliasToken = "{alias}"

// Rule restricts rows of a table for principals holding one of its roles.
// Table "*" matches every table and an empty Roles list matches every principal.
type Rule struct {
	Table     string   `mapstructure:"table" yaml:"table"`
	Roles     []string `mapstructure:"roles" yaml:"roles"`
	Predicate string   `mapstructure:"predicate" yaml:"predicate"`
	Deny      bool     `mapstructure:"deny" yaml:"deny"`
}

func (r Rule) matches(tableName string, principal Principal) bool {
	if r.Table != "*" && !strings.EqualFold(r.Table, tableName) {
		return false
	}
	if len(r.Roles) == 0 {
		return true
	}
	for _, role := range r.Roles {
		if principal.HasRole(role) {
			return true
		}
	}
	return false
}

// RuleProvider evaluates a static list of rules. All matching predicates are ANDed;
// any matching deny rule rejects the query with AccessDenied.
type RuleProvider struct {
	rules       []Rule
	defaultDeny bool
}

// NewRuleProvider creates a provider from rules. With defaultDeny set, tables
// without a matching rule are denied instead of left unrestricted.
func NewRuleProvider(rules []Rule, defaultDeny bool) (*RuleProvider, error) {
	for i, r := range rules {
		if strings.TrimSpace(r.Table) == "" {
			return nil, fmt.Errorf("access rule %d: table is required", i)
		}
		if !r.Deny && strings.TrimSpace(r.Predicate) == "" {
			return nil, fmt.Errorf("access rule %d (%s): predicate is required unless deny is set", i, r.Table)
		}
	}
	return &RuleProvider{rules: rules, defaultDeny: defaultDeny}, nil
}

// PredicateFor implements Provider
func (p *RuleProvider) PredicateFor(ctx context.Context, tableName, alias string, principal Principal) (expression.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return expression.Fragment{}, fault.Wrap(fault.Cancelled, "access.PredicateFor", "", err)
	}

	var (
		parts   []string
		args    []interface{}
		matched bool
	)
	snapshot := principal.Snapshot()
	for _, rule := range p.rules {
		if !rule.matches(tableName, principal) {
			continue
		}
		matched = true
		if rule.Deny {
			return expression.Fragment{}, Denied(tableName, principal)
		}

		bound, err := expression.Bind(strings.ReplaceAll(rule.Predicate, AliasToken, alias), snapshot)
		if err != nil {
			return expression.Fragment{}, fault.Wrap(fault.Unparseable, "access.PredicateFor", "", err)
		}
		if bound.IsBlank() {
			continue
		}
		parts = append(parts, "("+bound.SQL+")")
		args = append(args, bound.Args...)
	}

	if !matched && p.defaultDeny {
		return expression.Fragment{}, Denied(tableName, principal)
	}
	return expression.Fragment{SQL: strings.Join(parts, " AND "), Args: args}, nil
}
