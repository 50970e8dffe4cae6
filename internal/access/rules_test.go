package access

import (
	"context"
	"testing"

	"github.com/conduit-lang/dictquery/internal/expression"
	"github.com/conduit-lang/dictquery/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesRules(t *testing.T, defaultDeny bool) *RuleProvider {
	t.Helper()
	provider, err := NewRuleProvider([]Rule{
		{Table: "*", Predicate: "{alias}.AD_Client_ID=@#AD_Client_ID@"},
		{Table: "C_Order", Roles: []string{"sales"}, Predicate: "{alias}.SalesRep_ID=@Principal_ID@"},
		{Table: "C_Order", Roles: []string{"guest"}, Deny: true},
		{Table: "AD_Ref_List", Predicate: "{alias}.IsActive='Y'"},
	}, defaultDeny)
	require.NoError(t, err)
	return provider
}

func TestRuleProvider_PredicateFor(t *testing.T) {
	ctx := context.Background()
	provider := salesRules(t, false)

	t.Run("all matching rules are ANDed", func(t *testing.T) {
		principal := Principal{
			ID:         "100",
			Roles:      []string{"Sales"},
			Attributes: map[string]interface{}{"#AD_Client_ID": 11},
		}
		fragment, err := provider.PredicateFor(ctx, "C_Order", "o", principal)
		require.NoError(t, err)
		assert.Equal(t, "(o.AD_Client_ID=?) AND (o.SalesRep_ID=?)", fragment.SQL)
		assert.Equal(t, []interface{}{11, "100"}, fragment.Args)
	})

	t.Run("role mismatch skips rule", func(t *testing.T) {
		principal := Principal{ID: "7", Attributes: map[string]interface{}{"#AD_Client_ID": 11}}
		fragment, err := provider.PredicateFor(ctx, "C_Order", "C_Order", principal)
		require.NoError(t, err)
		assert.Equal(t, "(C_Order.AD_Client_ID=?)", fragment.SQL)
	})

	t.Run("deny rule", func(t *testing.T) {
		principal := Principal{ID: "9", Roles: []string{"guest"}, Attributes: map[string]interface{}{"#AD_Client_ID": 11}}
		_, err := provider.PredicateFor(ctx, "C_Order", "o", principal)
		assert.True(t, fault.Is(err, fault.AccessDenied))
	})

	t.Run("missing attribute is unparseable", func(t *testing.T) {
		_, err := provider.PredicateFor(ctx, "C_Order", "o", Principal{ID: "1"})
		assert.True(t, fault.IsUnparseable(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.PredicateFor(cctx, "C_Order", "o", Principal{})
		assert.True(t, fault.IsCancelled(err))
	})
}

func TestRuleProvider_DefaultDeny(t *testing.T) {
	provider, err := NewRuleProvider([]Rule{
		{Table: "M_Product", Predicate: "{alias}.IsActive='Y'"},
	}, true)
	require.NoError(t, err)

	fragment, err := provider.PredicateFor(context.Background(), "M_Product", "p", Principal{})
	require.NoError(t, err)
	assert.Equal(t, "(p.IsActive='Y')", fragment.SQL)
	assert.Empty(t, fragment.Args)

	_, err = provider.PredicateFor(context.Background(), "C_Order", "o", Principal{})
	assert.True(t, fault.Is(err, fault.AccessDenied))
}

func TestNewRuleProvider_Validation(t *testing.T) {
	_, err := NewRuleProvider([]Rule{{Predicate: "1=1"}}, false)
	assert.Error(t, err)

	_, err = NewRuleProvider([]Rule{{Table: "T"}}, false)
	assert.Error(t, err)

	_, err = NewRuleProvider([]Rule{{Table: "T", Deny: true}}, false)
	assert.NoError(t, err)
}

func TestBind(t *testing.T) {
	assert.Nil(t, Bind(context.Background(), nil, Principal{}))

	var gotAlias string
	provider := ProviderFunc(func(_ context.Context, table, alias string, p Principal) (expression.Fragment, error) {
		gotAlias = alias
		return expression.Fragment{SQL: alias + ".Owner=?", Args: []interface{}{p.ID}}, nil
	})

	fn := Bind(context.Background(), provider, Principal{ID: "u1"})
	fragment, err := fn("C_Order", "o")
	require.NoError(t, err)
	assert.Equal(t, "o", gotAlias)
	assert.Equal(t, []interface{}{"u1"}, fragment.Args)

	fragment, err = AllowAll.PredicateFor(context.Background(), "C_Order", "o", Principal{})
	require.NoError(t, err)
	assert.True(t, fragment.IsBlank())
}
