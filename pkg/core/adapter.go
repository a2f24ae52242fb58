package core

import (
	"database/sql"
	"strings"
)

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// DatasourceConfig is the resolved connection description of a datasource_id.
type DatasourceConfig struct {
	ID               string            `koanf:"id" json:"id" yaml:"id"`
	Name             string            `koanf:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Type             string            `koanf:"type" json:"type" yaml:"type"`
	Path             string            `koanf:"path" json:"path,omitempty" yaml:"path,omitempty"`
	Host             string            `koanf:"host" json:"host,omitempty" yaml:"host,omitempty"`
	Port             int               `koanf:"port" json:"port,omitempty" yaml:"port,omitempty"`
	Database         string            `koanf:"database" json:"database,omitempty" yaml:"database,omitempty"`
	Username         string            `koanf:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password         string            `koanf:"password" json:"-" yaml:"password,omitempty"`
	Schema           string            `koanf:"schema" json:"schema,omitempty" yaml:"schema,omitempty"`
	Options          map[string]string `koanf:"options" json:"options,omitempty" yaml:"options,omitempty"`
	Params           map[string]any    `koanf:"params" json:"params,omitempty" yaml:"params,omitempty"`
	ConnectionString string            `koanf:"connection_string" json:"-" yaml:"connection_string,omitempty"`
}

// AdapterConfig converts the datasource into the configuration passed to an adapter.
func (d DatasourceConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     d.Type,
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.Username,
		Password: d.Password,
		Schema:   d.Schema,
		Options:  d.Options,
		Params:   d.Params,
	}
}

// Pooled reports whether the datasource is served by the generic connection pool.
func (d DatasourceConfig) Pooled() bool {
	return d.ConnectionString != ""
}

// Column represents a column in a database table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	ForeignKey bool   `json:"foreign_key"`
	Position   int    `json:"position"`
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column with the given name, matched case-insensitively.
func (m *TableMetadata) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// TableInfo describes one entry of a table listing.
type TableInfo struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"` // "table" or "view"
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
