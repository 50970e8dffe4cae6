package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dictquery/internal/cli/ui"
	"github.com/conduit-lang/dictquery/internal/dependency"
)

// NewDependentsCommand creates the dependents command
func NewDependentsCommand(flags *globalFlags) *cobra.Command {
	var containerID, windowID, output string

	cmd := &cobra.Command{
		Use:   "dependents <column>",
		Short: "List the fields whose logic depends on a column",
		Long: `List the fields that must be re-evaluated when a column's value changes.

Display, read-only and mandatory logic of every active field in the scope is
scanned, as is the validation rule of each field's column. Only the dictionary
is read; no database connection is made.`,
		Example: `  dictquery dependents DocStatus --window w-order
  dictquery dependents IsSOTrx --container c-order -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (containerID == "") == (windowID == "") {
				return fmt.Errorf("exactly one of --container or --window is required")
			}
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("unknown output format %q: use table or json", output)
			}

			a, err := newApp(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			scope := dependency.WindowScope(windowID)
			if containerID != "" {
				scope = dependency.ContainerScope(containerID)
			}

			fields, err := a.engine.ResolveDependents(cmd.Context(), args[0], scope)
			if err != nil {
				if containerID != "" {
					return withSuggestions(err, containerID, a.registry.ContainerIDs())
				}
				return err
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				if fields == nil {
					fields = []dependency.DependentField{}
				}
				return writeJSON(out, fields)
			}

			if len(fields) == 0 {
				fmt.Fprintln(out, ui.Info(fmt.Sprintf("no fields in %s depend on %s", scope, args[0]), color.NoColor))
				return nil
			}
			table := ui.NewTable(out, []string{"Container", "Field", "Column"}, &ui.TableOptions{NoColor: color.NoColor})
			for _, f := range fields {
				table.AddRow(f.ContainerName+" ("+f.ContainerID+")", f.FieldID, f.ColumnName)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&containerID, "container", "", "search one container")
	cmd.Flags().StringVar(&windowID, "window", "", "search every container of a window")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}
