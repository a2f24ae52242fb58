package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	File       string
	Datasource string
	Format     string
	ShowSQL    bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a query configuration against its datasource",
		Long: `Validate, build and execute a query configuration, then print the rows.

With --format json the full run result is printed, including failures:
{"success", "data", "columns", "row_count", "execution_time", "message"}.`,
		Example: `  leapquery run -f orders.json
  leapquery run -f orders.yaml --format csv > orders.csv
  leapquery run -f orders.json --datasource warehouse --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Query configuration file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&opts.Datasource, "datasource", "", "Override the datasource_id of the query")
	cmd.Flags().StringVar(&opts.Format, "format", FormatTable, "Output format: table, json, csv, md")
	cmd.Flags().BoolVar(&opts.ShowSQL, "show-sql", false, "Print the executed SQL to stderr")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}

	qc, err := readQuery(opts.File, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.Datasource != "" {
		qc.DatasourceID = opts.Datasource
	}

	svc, rt, err := newService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res := svc.Run(cmd.Context(), qc)
	rt.Logger.Debug("run finished", "run_id", res.RunID, "success", res.Success)

	if opts.ShowSQL && res.SQL != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), res.SQL)
	}

	if opts.Format == FormatJSON {
		if err := renderJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Message)
		}
		return nil
	}

	if !res.Success {
		return errors.New(res.Message)
	}
	if err := renderRows(cmd.OutOrStdout(), res.Columns, res.Data, opts.Format); err != nil {
		return err
	}
	if opts.Format == FormatTable {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s (%.3fs)\n", res.Message, res.ExecutionTime)
	}
	return nil
}
