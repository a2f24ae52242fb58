// Package schema confirms that the tables and columns named by a query
// configuration exist in the target database.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel metadata lookups.
const DefaultConcurrency = 4

// Source reads catalog metadata. adapter.Adapter satisfies it.
type Source interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
	ListTables(ctx context.Context, schema string) ([]core.TableInfo, error)
}

// Introspector answers existence questions against a Source. Metadata is
// cached for the lifetime of the Introspector, which is one request.
type Introspector struct {
	src         Source
	concurrency int
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]*core.TableMetadata
}

// New creates an Introspector. concurrency <= 0 selects DefaultConcurrency.
func New(src Source, concurrency int, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Introspector{
		src:         src,
		concurrency: concurrency,
		logger:      logger,
		cache:       make(map[string]*core.TableMetadata),
	}
}

func qualify(table, schema string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// GetTableSchema returns the columns of table. An empty schema means the
// connection's default schema. A missing table wraps core.ErrTableNotFound.
func (i *Introspector) GetTableSchema(ctx context.Context, table, schema string) (*core.TableMetadata, error) {
	key := strings.ToLower(qualify(table, schema))

	i.mu.Lock()
	meta, ok := i.cache[key]
	i.mu.Unlock()
	if ok {
		return meta, nil
	}

	meta, err := i.src.GetTableMetadata(ctx, qualify(table, schema))
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.cache[key] = meta
	i.mu.Unlock()
	return meta, nil
}

// TableExists reports whether table exists.
func (i *Introspector) TableExists(ctx context.Context, table, schema string) (bool, error) {
	_, err := i.GetTableSchema(ctx, table, schema)
	if errors.Is(err, core.ErrTableNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ColumnExists reports whether table has column. A missing table is reported as false.
func (i *Introspector) ColumnExists(ctx context.Context, table, column, schema string) (bool, error) {
	meta, err := i.GetTableSchema(ctx, table, schema)
	if errors.Is(err, core.ErrTableNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok := meta.Column(column)
	return ok, nil
}

// ListTables lists the tables and views of schema.
func (i *Introspector) ListTables(ctx context.Context, schema string) ([]core.TableInfo, error) {
	return i.src.ListTables(ctx, schema)
}

// CheckStatement loads every table of stmt concurrently, then verifies each
// qualified column reference. Missing objects fail with *core.ConfigValidationError.
func (i *Introspector) CheckStatement(ctx context.Context, stmt *core.SelectStmt) error {
	refs := []core.TableRef{stmt.From.Source}
	for _, j := range stmt.From.Joins {
		refs = append(refs, j.Right)
	}

	byAlias := make(map[string]*core.TableMetadata, len(refs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, t := range refs {
		g.Go(func() error {
			meta, err := i.GetTableSchema(gctx, t.Name, t.Schema)
			if errors.Is(err, core.ErrTableNotFound) {
				return core.NewConfigValidationError(core.RuleTableExists, "table %s does not exist", qualify(t.Name, t.Schema))
			}
			if err != nil {
				return fmt.Errorf("failed to read metadata for %s: %w", qualify(t.Name, t.Schema), err)
			}
			mu.Lock()
			byAlias[t.Alias] = meta
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var cols []core.ColumnRef
	for _, item := range stmt.Columns {
		cols = append(cols, item.Column)
	}
	for _, j := range stmt.From.Joins {
		cols = append(cols, j.On.Left, j.On.Right)
	}
	for _, p := range stmt.Where {
		cols = append(cols, p.Left)
	}
	cols = append(cols, stmt.GroupBy...)
	for _, o := range stmt.OrderBy {
		cols = append(cols, o.Column)
	}

	for _, ref := range cols {
		if !ref.Qualified() {
			continue
		}
		meta, ok := byAlias[ref.Table]
		if !ok {
			continue
		}
		if _, ok := meta.Column(ref.Column); !ok {
			return core.NewConfigValidationError(core.RuleColumnExists, "column %s does not exist in table %s", ref.Column, meta.Name)
		}
	}

	i.logger.Debug("schema check passed", "tables", len(byAlias), "columns", len(cols))
	return nil
}
