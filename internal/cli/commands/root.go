// Package commands implements the dictquery command line.
package commands

import (
	"errors"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dictquery/internal/cli/ui"
	"github.com/conduit-lang/dictquery/internal/fault"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	configPath string
	dictionary string
	driver     string
	dsn        string
	logLevel   string
	noColor    bool
	verbose    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *globalFlags) {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "dictquery",
		Short: "Metadata-driven queries over an application dictionary",
		Long: color.CyanString(`dictquery - metadata-driven query engine

dictquery reads an application dictionary (tables, containers, windows,
references and validation rules) and answers three questions against a
live database:

  • which rows does a container show, page by page
  • which fields depend on a column
  • which records can a reference field take`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ./dictquery.yaml)")
	pf.StringVar(&flags.dictionary, "dictionary", "", "dictionary file, overrides dictionary.path")
	pf.StringVar(&flags.driver, "driver", "", "database driver: pgx, postgres, mysql or sqlite3")
	pf.StringVar(&flags.dsn, "dsn", "", "database connection string")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "include SQL diagnostics in query errors")

	rootCmd.AddCommand(NewRowsCommand(flags))
	rootCmd.AddCommand(NewDependentsCommand(flags))
	rootCmd.AddCommand(NewLookupCommand(flags))
	rootCmd.AddCommand(NewServeCommand(flags))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd, flags
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the dictquery version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			table := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			table.AddRow("dictquery version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", goVer)
			table.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd, flags := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		reportError(rootCmd.ErrOrStderr(), err, flags)
		return err
	}
	return nil
}

func reportError(w io.Writer, err error, flags *globalFlags) {
	opts := ui.FaultOptions{Verbose: flags.verbose, NoColor: flags.noColor || color.NoColor}
	var se *suggestedError
	if errors.As(err, &se) {
		opts.Suggestions = se.suggestions
	}
	io.WriteString(w, ui.FaultError(err, opts))
}

// suggestedError carries "did you mean" candidates for an unknown id
type suggestedError struct {
	err         error
	suggestions []string
}

func (e *suggestedError) Error() string { return e.err.Error() }
func (e *suggestedError) Unwrap() error { return e.err }

// withSuggestions attaches the ids closest to id when err reports id as not found
func withSuggestions(err error, id string, candidates []string) error {
	var fe *fault.Error
	if !errors.As(err, &fe) || fe.Kind != fault.NotFound || fe.Ref != id {
		return err
	}
	suggestions := ui.FindSimilar(id, candidates, nil)
	if len(suggestions) == 0 {
		return err
	}
	return &suggestedError{err: err, suggestions: suggestions}
}
