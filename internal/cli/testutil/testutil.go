// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	// sqlite driver for the test database.
	_ "modernc.org/sqlite"
)

// Project is a temporary leapquery project.
type Project struct {
	Dir      string
	Config   string // leapquery.yaml
	Database string // SQLite file behind the "shop" datasource
	Query    string // orders.json, completed orders per customer
}

// OrdersQuery counts completed orders per customer.
const OrdersQuery = `{
  "datasource_id": "shop",
  "tables": [
    {"name": "orders", "alias": "o"},
    {"name": "customers", "alias": "c"}
  ],
  "joins": [
    {"left_table": "o", "right_table": "c", "join_type": "INNER", "condition": "o.customer_id = c.id"}
  ],
  "fields": [
    {"table_alias": "c", "column": "name", "alias": "customer"},
    {"table_alias": "o", "column": "id", "alias": "orders", "aggregation": "COUNT"}
  ],
  "filters": [
    {"table_alias": "o", "column": "status", "operator": "=", "value": "completed"}
  ],
  "group_by": ["c.name"],
  "order_by": [{"field": "customer", "direction": "ASC"}],
  "limit": 10
}`

// SetupTestProject creates a temporary project with a seeded SQLite
// datasource, a config file and a query configuration.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{
		Dir:      dir,
		Config:   filepath.Join(dir, "leapquery.yaml"),
		Database: filepath.Join(dir, "shop.db"),
		Query:    filepath.Join(dir, "orders.json"),
	}

	db, err := sql.Open("sqlite", p.Database)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, stmt := range []string{
		"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id), status TEXT, total REAL)",
		"INSERT INTO customers VALUES (1, 'Ada'), (2, 'Grace')",
		"INSERT INTO orders VALUES (10, 1, 'completed', 12.5), (11, 1, 'completed', 3), (12, 2, 'completed', 7.5), (13, 2, 'pending', 1)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed test database: %v", err)
		}
	}

	config := `datasources:
  - id: shop
    type: sqlite
    path: ` + p.Database + `
  - id: pooled
    connection_string: sqlite:` + p.Database + `
  - id: warehouse
    type: postgres
    host: warehouse.invalid
    database: sales
caller:
  id: tester
log:
  level: error
`
	writeFile(t, p.Config, config)
	writeFile(t, p.Query, OrdersQuery)
	return p
}

// WriteFile writes content to name inside the project directory and returns its path.
func (p *Project) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(p.Dir, name)
	writeFile(t, path, content)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Execute runs cmd with args and returns stdout and stderr.
func Execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
