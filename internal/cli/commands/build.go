package commands

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	File       string
	Datasource string
	Inline     bool
	Dialect    string
	Pretty     bool
	Format     string
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the SQL for a query configuration",
		Long: `Validate a query configuration and print the SQL it compiles to.

By default the statement uses the placeholders of the datasource dialect and
the bound values are listed after it. --inline renders the values as literals.
Nothing is executed; --check-schema connects to confirm tables and columns.`,
		Example: `  # Build from a file
  leapquery build -f orders.json

  # Preview in another dialect with literal values
  leapquery build -f orders.yaml --dialect postgres --inline --pretty

  # Read the configuration from stdin
  cat orders.json | leapquery build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Query configuration file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.Datasource, "datasource", "", "Override the datasource_id of the query")
	cmd.Flags().BoolVar(&opts.Inline, "inline", false, "Render values as SQL literals instead of placeholders")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "Render for this dialect instead of the datasource's")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "One clause per line")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format: text, json")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	if opts.Format != "text" && opts.Format != FormatJSON {
		return fmt.Errorf("unknown format %q (use text, json)", opts.Format)
	}

	qc, err := readQuery(opts.File, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.Datasource != "" {
		qc.DatasourceID = opts.Datasource
	}

	svc, _, err := newService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stmt, err := svc.Build(cmd.Context(), qc, report.BuildOptions{
		Inline:  opts.Inline,
		Pretty:  opts.Pretty,
		Dialect: opts.Dialect,
	})
	if err != nil {
		return err
	}

	if opts.Format == FormatJSON {
		return renderJSON(cmd.OutOrStdout(), statementJSON(stmt))
	}
	return printStatement(cmd.OutOrStdout(), stmt)
}

func statementJSON(stmt *querybuilder.Statement) map[string]any {
	args := stmt.Args
	if args == nil {
		args = []any{}
	}
	return map[string]any{
		"dialect": stmt.Dialect,
		"sql":     stmt.SQL,
		"args":    args,
	}
}

func printStatement(w io.Writer, stmt *querybuilder.Statement) error {
	sql := stmt.SQL
	if len(sql) == 0 || sql[len(sql)-1] != '\n' {
		sql += "\n"
	}
	if _, err := io.WriteString(w, sql); err != nil {
		return err
	}
	for i, arg := range stmt.Args {
		if _, err := fmt.Fprintf(w, "  [%d] %s\n", i+1, formatValue(arg)); err != nil {
			return err
		}
	}
	return nil
}
