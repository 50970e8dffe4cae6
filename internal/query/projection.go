package query

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/dictquery/internal/dictionary"
	"github.com/conduit-lang/dictquery/internal/fault"
)

// DisplayColumnPrefix prefixes the alias of every reference display value
const DisplayColumnPrefix = "DisplayColumn_"

// RefListTable holds the values of list references
const RefListTable = "AD_Ref_List"

// Projection builds the base SELECT of a table: every column qualified by alias,
// plus one LEFT JOIN per reference column exposing its display value as
// DisplayColumn_<column>.
func Projection(ctx context.Context, repo dictionary.Repository, table *dictionary.TableSchema, alias string) (sq.SelectBuilder, error) {
	columns := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		columns = append(columns, qualify(alias, col.Name))
	}

	from := table.Name
	if alias != "" && alias != table.Name {
		from = table.Name + " " + alias
	}

	type join struct {
		clause string
		args   []interface{}
	}
	var joins []join

	for _, col := range table.Columns {
		if col.ReferenceID == "" || !col.DisplayType.IsLookup() {
			continue
		}
		ref, err := repo.Reference(ctx, col.ReferenceID)
		if err != nil {
			return sq.SelectBuilder{}, fault.Wrap(fault.NotFound, "query.Projection", col.ReferenceID, err)
		}

		joinAlias := fmt.Sprintf("r%d", len(joins)+1)
		displayAlias := DisplayColumnPrefix + col.Name
		source := qualify(alias, col.Name)

		switch ref.Kind {
		case dictionary.RefList:
			valueID := col.ReferenceValueID
			if valueID == "" {
				valueID = ref.ReferenceValueID
			}
			joins = append(joins, join{
				clause: fmt.Sprintf("%s %s ON %s.AD_Reference_ID = ? AND %s.Value = %s", RefListTable, joinAlias, joinAlias, joinAlias, source),
				args:   []interface{}{valueID},
			})
			columns = append(columns, fmt.Sprintf("%s.Name AS %s", joinAlias, displayAlias))

		case dictionary.RefTable, dictionary.RefTableDirect, dictionary.RefSearch:
			display, err := DisplayColumn(ctx, repo, ref)
			if err != nil {
				return sq.SelectBuilder{}, err
			}
			joins = append(joins, join{
				clause: fmt.Sprintf("%s %s ON %s.%s = %s", ref.BackingTable(), joinAlias, joinAlias, ref.BackingKey(), source),
			})
			columns = append(columns, fmt.Sprintf("%s.%s AS %s", joinAlias, display, displayAlias))

		case dictionary.RefPlain:
			// plain references have nothing to display
		}
	}

	builder := sq.Select(columns...).From(from)
	for _, j := range joins {
		builder = builder.LeftJoin(j.clause, j.args...)
	}
	return builder, nil
}

// DisplayColumn picks the column shown for a table-backed reference: the declared
// display column, else the first identifier column of the backing table, else the
// value column, else the key column.
func DisplayColumn(ctx context.Context, repo dictionary.Repository, ref *dictionary.ReferenceDescriptor) (string, error) {
	if ref.DisplayColumn != "" {
		return ref.DisplayColumn, nil
	}
	table, err := repo.Table(ctx, ref.BackingTable())
	if err != nil {
		return "", fault.Wrap(fault.NotFound, "query.DisplayColumn", ref.ID, err)
	}
	if ids := table.IdentifierColumns(); len(ids) > 0 {
		return ids[0].Name, nil
	}
	if ref.ValueColumn != "" {
		return ref.ValueColumn, nil
	}
	return ref.BackingKey(), nil
}
