package commands

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dictquery/internal/cli/ui"
	"github.com/conduit-lang/dictquery/internal/query"
)

// NewRowsCommand creates the rows command
func NewRowsCommand(flags *globalFlags) *cobra.Command {
	lf := &listFlags{}

	cmd := &cobra.Command{
		Use:   "rows <container-id>",
		Short: "List one page of a container's rows",
		Long: `List one page of the rows a container shows.

The container's scope, the principal's access rules, the filters and the
search value are all applied. Pass the printed --scope and --page-token to
fetch the next page.`,
		Example: `  dictquery rows c-order --ctx IsSOTrx=Y --page-size 20
  dictquery rows products -q widget -f 'AD_Client_ID=11' --sort -Name
  dictquery rows products -f 'ID[in]=1,2,3' -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRows(cmd, flags, lf, args[0])
		},
	}

	addListFlags(cmd, lf)
	return cmd
}

func runRows(cmd *cobra.Command, flags *globalFlags, lf *listFlags, containerID string) error {
	if err := lf.validateOutput(); err != nil {
		return err
	}
	criteria, err := lf.criteria()
	if err != nil {
		return err
	}
	snapshot, err := lf.snapshot()
	if err != nil {
		return err
	}
	principal, err := lf.principal()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), flags, true)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.engine.ListContainerRows(cmd.Context(), query.ListRequest{
		ContainerID: containerID,
		Context:     snapshot,
		Filters:     criteria,
		SearchValue: lf.search,
		Sort:        query.ParseSort(lf.sort),
		ScopeID:     lf.scopeID(),
		PageToken:   lf.pageToken,
		PageSize:    lf.pageSize,
	}, principal)
	if err != nil {
		return withSuggestions(err, containerID, a.registry.ContainerIDs())
	}

	out := cmd.OutOrStdout()
	if lf.output == outputJSON {
		return writeJSON(out, struct {
			ScopeID string `json:"scopeId"`
			*query.ListResult
		}{lf.scope, result})
	}

	columns := rowColumns(result.Rows)
	table := ui.NewTable(out, columns, &ui.TableOptions{NoColor: color.NoColor})
	for _, row := range result.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatCell(row[col])
		}
		table.AddRow(cells...)
	}
	table.Render()

	fmt.Fprintf(out, "\n%d of %d rows\n", len(result.Rows), result.TotalCount)
	if result.NextPageToken != "" {
		fmt.Fprintf(out, "next page: --scope %s --page-token %s\n", lf.scope, result.NextPageToken)
	}
	return nil
}

// rowColumns returns the sorted union of the rows' column names
func rowColumns(rows []query.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)
	return columns
}
