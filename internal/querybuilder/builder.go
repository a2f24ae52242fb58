// Package querybuilder turns a declarative query configuration into a safe,
// parameterized SELECT statement and executes it.
package querybuilder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapquery/internal/safety"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/format"
)

// SchemaChecker confirms that the tables and columns of a compiled statement exist.
type SchemaChecker interface {
	CheckStatement(ctx context.Context, stmt *core.SelectStmt) error
}

// Executor runs a bound statement. adapter.Adapter satisfies it.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)
}

// Statement is a rendered, safety-checked query.
type Statement struct {
	SQL     string
	Args    []any
	Dialect string
}

// ResultSet holds the rows read from an executed statement.
type ResultSet struct {
	Columns []string
	Rows    []map[string]any
}

// Config holds builder configuration.
type Config struct {
	// Dialect used for quoting, placeholders and aggregate support (defaults to dialect.Default()).
	Dialect *dialect.Dialect
	// Schema confirms tables and columns before compiling (optional).
	Schema SchemaChecker
	// Executor runs statements (required only for Execute and Run).
	Executor Executor
	Limits   Limits
	// MaxIdentifierLength bounds sanitized identifiers (defaults to 64).
	MaxIdentifierLength int
	// Pretty selects the indented layout for rendered SQL.
	Pretty bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Builder runs the validate, introspect, compile, render and safety pipeline.
type Builder struct {
	dialect   *dialect.Dialect
	schema    SchemaChecker
	executor  Executor
	limits    Limits
	sanitizer *safety.Sanitizer
	validator *safety.Validator
	pretty    bool
	logger    *slog.Logger
}

// New creates a Builder.
func New(cfg Config) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := cfg.Dialect
	if d == nil {
		d = dialect.Default()
	}
	return &Builder{
		dialect:   d,
		schema:    cfg.Schema,
		executor:  cfg.Executor,
		limits:    cfg.Limits.withDefaults(),
		sanitizer: safety.NewSanitizer(cfg.MaxIdentifierLength),
		validator: safety.NewValidator(),
		pretty:    cfg.Pretty,
		logger:    logger,
	}
}

// Build returns the bound statement for cfg.
func (b *Builder) Build(ctx context.Context, cfg *core.QueryConfiguration) (*Statement, error) {
	return b.build(ctx, cfg, format.ModeBind)
}

// BuildSQL returns the statement for cfg with literal values inlined.
func (b *Builder) BuildSQL(ctx context.Context, cfg *core.QueryConfiguration) (string, error) {
	stmt, err := b.build(ctx, cfg, format.ModeInline)
	if err != nil {
		return "", err
	}
	return stmt.SQL, nil
}

func (b *Builder) build(ctx context.Context, cfg *core.QueryConfiguration, mode format.Mode) (*Statement, error) {
	if err := Validate(cfg, b.limits); err != nil {
		return nil, err
	}

	ast, err := Compile(cfg, b.sanitizer)
	if err != nil {
		return nil, err
	}

	if b.schema != nil {
		if err := b.schema.CheckStatement(ctx, ast); err != nil {
			return nil, err
		}
	}

	out, err := format.Format(ast, b.dialect, format.Options{Mode: mode, Pretty: b.pretty})
	if err != nil {
		return nil, err
	}

	if err := b.validator.Validate(out.SQL); err != nil {
		b.logger.Warn("rejected generated statement", "datasource", cfg.DatasourceID, "error", err)
		return nil, err
	}

	b.logger.Debug("built statement", "datasource", cfg.DatasourceID, "dialect", b.dialect.Name, "args", len(out.Args))
	return &Statement{SQL: out.SQL, Args: out.Args, Dialect: b.dialect.Name}, nil
}

// Execute runs stmt and reads every row.
func (b *Builder) Execute(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	if b.executor == nil {
		return nil, &core.ExecutionError{Err: fmt.Errorf("no executor configured")}
	}

	rows, err := b.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, &core.ExecutionError{Err: err}
	}
	defer func() { _ = rows.Close() }()

	result, err := collect(rows)
	if err != nil {
		return nil, &core.ExecutionError{Err: err}
	}
	return result, nil
}

// Run builds and executes cfg.
func (b *Builder) Run(ctx context.Context, cfg *core.QueryConfiguration) (*Statement, *ResultSet, error) {
	stmt, err := b.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := b.Execute(ctx, stmt)
	if err != nil {
		return stmt, nil, err
	}
	return stmt, result, nil
}

func collect(rows *core.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &ResultSet{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if raw, ok := values[i].([]byte); ok {
				row[col] = string(raw)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}
