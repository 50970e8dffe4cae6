package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dictquery/internal/cli/ui"
	"github.com/conduit-lang/dictquery/internal/engine"
	"github.com/conduit-lang/dictquery/internal/lookup"
	"github.com/conduit-lang/dictquery/internal/query"
)

// NewLookupCommand creates the lookup command
func NewLookupCommand(flags *globalFlags) *cobra.Command {
	lf := &listFlags{}
	var tableName, columnName, mode, key string

	cmd := &cobra.Command{
		Use:   "lookup [reference-id]",
		Short: "Resolve the records a reference field can take",
		Long: `Resolve a reference lookup, either by reference id or by the table column
that uses the reference. A column's own validation rule replaces the
reference's.

In list mode (the default) one page of candidates is returned. In direct
mode the single record for --key is returned.`,
		Example: `  dictquery lookup C_BPartner -q joe
  dictquery lookup --table C_Order --column C_DocType_ID --ctx IsSOTrx=Y
  dictquery lookup Product --mode direct --key 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			referenceID := ""
			if len(args) == 1 {
				referenceID = args[0]
			}
			if referenceID == "" && (tableName == "" || columnName == "") {
				return fmt.Errorf("a reference id or both --table and --column are required")
			}
			if referenceID != "" && (tableName != "" || columnName != "") {
				return fmt.Errorf("pass either a reference id or --table and --column, not both")
			}
			if err := lf.validateOutput(); err != nil {
				return err
			}

			m, err := lookup.ParseMode(mode)
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

			req := engine.LookupRequest{
				ReferenceID: referenceID,
				TableName:   tableName,
				ColumnName:  columnName,
				Context:     snapshot,
				Mode:        m,
				Principal:   principal,
			}
			if m == lookup.ModeDirect {
				req.Args = lookup.ListArgs{Key: key}
			} else {
				criteria, err := lf.criteria()
				if err != nil {
					return err
				}
				req.Args = lookup.ListArgs{
					Filters:     criteria,
					SearchValue: lf.search,
					Sort:        query.ParseSort(lf.sort),
					ScopeID:     lf.scopeID(),
					PageToken:   lf.pageToken,
					PageSize:    lf.pageSize,
				}
			}

			a, err := newApp(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.ResolveLookup(cmd.Context(), req)
			if err != nil {
				if referenceID != "" {
					return withSuggestions(err, referenceID, a.registry.ReferenceIDs())
				}
				return err
			}

			out := cmd.OutOrStdout()
			if lf.output == outputJSON {
				return writeJSON(out, result)
			}

			if len(result.Records) == 0 {
				fmt.Fprintln(out, ui.Info("no matching records", color.NoColor))
				return nil
			}
			table := ui.NewTable(out, []string{"Key", "Value", "Display"}, &ui.TableOptions{NoColor: color.NoColor})
			for _, r := range result.Records {
				table.AddRow(formatCell(r.Key), formatCell(r.Value), r.DisplayText)
			}
			table.Render()

			if m == lookup.ModeList {
				fmt.Fprintf(out, "\n%d of %d records\n", len(result.Records), result.TotalCount)
				if result.NextPageToken != "" {
					fmt.Fprintf(out, "next page: --scope %s --page-token %s\n", lf.scope, result.NextPageToken)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "table of the column using the reference")
	cmd.Flags().StringVar(&columnName, "column", "", "column using the reference")
	cmd.Flags().StringVar(&mode, "mode", "list", "lookup mode: list or direct")
	cmd.Flags().StringVar(&key, "key", "", "record key for direct mode")
	addListFlags(cmd, lf)
	return cmd
}
