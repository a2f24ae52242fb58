package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
)

// DatasourceField describes one key of a datasource entry.
type DatasourceField struct {
	Name        string
	Type        string
	Description string
}

var datasourceFields = []DatasourceField{
	{Name: "id", Type: "string", Description: "Identifier referenced by datasource_id (required, unique)"},
	{Name: "name", Type: "string", Description: "Display name (defaults to id)"},
	{Name: "type", Type: "string", Description: "Backend type; optional when connection_string is set"},
	{Name: "path", Type: "string", Description: "Database file for sqlite and duckdb"},
	{Name: "host", Type: "string", Description: "Server host for mysql and postgres"},
	{Name: "port", Type: "int", Description: "Server port (3306 for mysql, 5432 for postgres)"},
	{Name: "database", Type: "string", Description: "Database name"},
	{Name: "username", Type: "string", Description: "Login user"},
	{Name: "password", Type: "string", Description: "Login password; ${VAR} references are expanded"},
	{Name: "schema", Type: "string", Description: "Default schema (public for postgres, main for sqlite and duckdb)"},
	{Name: "options", Type: "map", Description: "Driver options"},
	{Name: "connection_string", Type: "string", Description: "Backend URL; served from the shared connection pool"},
}

// generateConfigDocs writes the configuration reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Reference for "+config.ConfigFileName)
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("LeapQuery reads %s (or %s) from the working directory or the nearest parent. Environment variables prefixed with %s and command-line flags override file values.",
		InlineCode(config.ConfigFileName), InlineCode(config.ConfigFileNameAlt), InlineCode(config.EnvPrefix)))

	w.Header(2, "Settings")
	defaults := config.Defaults()
	var rows [][]string
	for _, key := range sortedKeys(defaults) {
		rows = append(rows, []string{InlineCode(key), fmt.Sprint(defaults[key]), InlineCode(envVar(key)), flagFor(key)})
	}
	w.Table([]string{"Key", "Default", "Environment", "Flag"}, rows)

	w.Header(2, "Datasources")
	w.Paragraph("Supported backend types: " + strings.Join(codeList(adapter.ListAdapters()), ", ") + ".")
	rows = rows[:0]
	for _, f := range datasourceFields {
		rows = append(rows, []string{InlineCode(f.Name), f.Type, f.Description})
	}
	w.Table([]string{"Key", "Type", "Description"}, rows)

	w.Header(2, "Grants")
	w.Paragraph("A grants entry restricts a datasource to the listed caller ids. Datasources without an entry are open to every caller.")
	w.CodeBlock("yaml", `caller:
  id: analyst
grants:
  sales: [analyst, finance]`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// envVar returns the environment variable for a dotted config key.
func envVar(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

func flagFor(key string) string {
	for flag, k := range config.FlagKeys {
		if k == key {
			return InlineCode("--" + flag)
		}
	}
	return ""
}

func codeList(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = InlineCode(s)
	}
	return out
}
