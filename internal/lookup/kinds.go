package lookup

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/fault"
	"github.com/conduit-lang/dictquery/internal/query"
)

// Result column aliases produced by every lookup source
const (
	KeyAlias     = "RecordKey"
	ValueAlias   = "RecordValue"
	DisplayAlias = "DisplayText"
)

// source is what a reference kind contributes to a lookup: the base SELECT, the
// table its predicates apply to and the predicates inherent to the kind.
type source struct {
	table  *dictionary.TableSchema
	alias  string
	base   sq.Sqlizer
	key    string
	order  string
	search *dictionary.TableSchema
	fixed  []sq.Sqlizer
}

// sourceFor dispatches on the reference kind. Each kind owns how its lookup is built.
func sourceFor(ctx context.Context, repo dictionary.Repository, ref *dictionary.ReferenceDescriptor) (*source, error) {
	switch ref.Kind {
	case dictionary.RefList:
		return listSource(ctx, repo, ref)
	case dictionary.RefTable, dictionary.RefTableDirect:
		return tableSource(ctx, repo, ref, false)
	case dictionary.RefSearch:
		return tableSource(ctx, repo, ref, true)
	case dictionary.RefPlain:
		return nil, fault.New(fault.InvalidArgument, opResolve, ref.ID, "plain references have no lookup")
	default:
		return nil, fault.New(fault.InvalidArgument, opResolve, ref.ID, "unsupported reference kind %s", ref.Kind)
	}
}

// refListSchema is used when the dictionary does not declare AD_Ref_List itself
var refListSchema = &dictionary.TableSchema{
	Name: query.RefListTable,
	Columns: []*dictionary.Column{
		{Name: "AD_Ref_List_ID", DisplayType: dictionary.DisplayID, IsKey: true},
		{Name: "AD_Reference_ID", DisplayType: dictionary.DisplayInteger},
		{Name: "Value", DisplayType: dictionary.DisplayString, IsSearchable: true},
		{Name: "Name", DisplayType: dictionary.DisplayString, IsSearchable: true, IsIdentifier: true},
	},
}

func listSource(ctx context.Context, repo dictionary.Repository, ref *dictionary.ReferenceDescriptor) (*source, error) {
	table, err := repo.Table(ctx, query.RefListTable)
	if err != nil {
		if !fault.IsNotFound(err) {
			return nil, err
		}
		table = refListSchema
	}
	alias := table.Name

	return &source{
		table: table,
		alias: alias,
		base: sq.Select(
			alias+".Value AS "+KeyAlias,
			alias+".Value AS "+ValueAlias,
			alias+".Name AS "+DisplayAlias,
		).From(table.Name),
		key:    alias + ".Value",
		order:  alias + ".Name",
		search: table,
		fixed:  []sq.Sqlizer{sq.Expr(alias+".AD_Reference_ID = ?", ref.ReferenceValueID)},
	}, nil
}

// tableSource serves table, table-direct and search references. Search references
// match the search value against every searchable column of the backing table;
// the others match the displayed column only.
func tableSource(ctx context.Context, repo dictionary.Repository, ref *dictionary.ReferenceDescriptor, searchAll bool) (*source, error) {
	table, err := repo.Table(ctx, ref.BackingTable())
	if err != nil {
		return nil, fault.Wrap(fault.NotFound, opResolve, ref.ID, err)
	}
	alias := table.Name

	display, err := query.DisplayColumn(ctx, repo, ref)
	if err != nil {
		return nil, err
	}
	key := ref.BackingKey()
	value := ref.ValueColumn
	if value == "" {
		value = key
	}

	search := table
	if !searchAll {
		search = &dictionary.TableSchema{
			Name:    table.Name,
			Columns: []*dictionary.Column{{Name: display, DisplayType: dictionary.DisplayString, IsSearchable: true}},
		}
	}

	return &source{
		table: table,
		alias: alias,
		base: sq.Select(
			alias+"."+key+" AS "+KeyAlias,
			alias+"."+value+" AS "+ValueAlias,
			alias+"."+display+" AS "+DisplayAlias,
		).From(table.Name),
		key:    alias + "." + key,
		order:  alias + "." + display,
		search: search,
	}, nil
}
