package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DatasourceOptions holds options shared by the datasource subcommands.
type DatasourceOptions struct {
	Format string
	Schema string
}

// NewDatasourceCommand creates the datasource command.
func NewDatasourceCommand() *cobra.Command {
	opts := &DatasourceOptions{}

	cmd := &cobra.Command{
		Use:     "datasource",
		Aliases: []string{"ds"},
		Short:   "Inspect configured datasources",
		Example: `  leapquery datasource list
  leapquery datasource test warehouse
  leapquery datasource tables warehouse --schema sales
  leapquery datasource schema warehouse orders`,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatTable, "Output format: table, json, csv, md")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "Database schema (defaults to the datasource schema)")

	cmd.AddCommand(newDatasourceListCommand(opts))
	cmd.AddCommand(newDatasourceTestCommand())
	cmd.AddCommand(newDatasourceTablesCommand(opts))
	cmd.AddCommand(newDatasourceSchemaCommand(opts))

	return cmd
}

func newDatasourceListCommand(opts *DatasourceOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured datasources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			rt, err := GetRuntime(cmd.Context())
			if err != nil {
				return err
			}

			cols := []string{"id", "name", "type", "target", "pooled"}
			rows := make([]map[string]any, 0, len(rt.Config.Datasources))
			for _, ds := range rt.Config.Datasources {
				target := ds.Path
				if ds.Host != "" {
					target = fmt.Sprintf("%s:%d/%s", ds.Host, ds.Port, ds.Database)
				}
				if ds.Pooled() {
					target = redact(ds.ConnectionString)
				}
				rows = append(rows, map[string]any{
					"id":     ds.ID,
					"name":   ds.Name,
					"type":   ds.Type,
					"target": target,
					"pooled": ds.Pooled(),
				})
			}
			return renderRows(cmd.OutOrStdout(), cols, rows, opts.Format)
		},
	}
}

func newDatasourceTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <datasource>",
		Short: "Check that a datasource answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if !svc.TestConnection(cmd.Context(), args[0]) {
				return fmt.Errorf("datasource %s: connection failed", args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "datasource %s: ok\n", args[0])
			return nil
		},
	}
}

func newDatasourceTablesCommand(opts *DatasourceOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <datasource>",
		Short: "List the tables and views of a datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			tables, err := svc.ListTables(cmd.Context(), args[0], opts.Schema)
			if err != nil {
				return err
			}
			rows := make([]map[string]any, 0, len(tables))
			for _, t := range tables {
				rows = append(rows, map[string]any{"schema": t.Schema, "name": t.Name, "type": t.Type})
			}
			return renderRows(cmd.OutOrStdout(), []string{"schema", "name", "type"}, rows, opts.Format)
		},
	}
}

func newDatasourceSchemaCommand(opts *DatasourceOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <datasource> <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			meta, err := svc.TableSchema(cmd.Context(), args[0], args[1], opts.Schema)
			if err != nil {
				return err
			}
			cols := []string{"position", "name", "type", "nullable", "primary_key", "foreign_key"}
			rows := make([]map[string]any, 0, len(meta.Columns))
			for _, c := range meta.Columns {
				rows = append(rows, map[string]any{
					"position":    c.Position,
					"name":        c.Name,
					"type":        c.Type,
					"nullable":    c.Nullable,
					"primary_key": c.PrimaryKey,
					"foreign_key": c.ForeignKey,
				})
			}
			return renderRows(cmd.OutOrStdout(), cols, rows, opts.Format)
		},
	}
}

// redact hides the password of a URL-style connection string.
func redact(connString string) string {
	scheme, rest, ok := strings.Cut(connString, "://")
	if !ok {
		return connString
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return connString
	}
	userinfo := rest[:at]
	if user, _, hasPass := strings.Cut(userinfo, ":"); hasPass {
		return scheme + "://" + user + ":***" + rest[at:]
	}
	return connString
}
