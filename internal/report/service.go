// Package report runs query configurations end to end on behalf of a caller:
// datasource resolution, rate limiting, validation, connection acquisition,
// schema checks, SQL generation and execution under a timeout.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapquery/internal/connection"
	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// DefaultQueryTimeout bounds statement execution.
const DefaultQueryTimeout = 30 * time.Second

// Identity is the caller on whose behalf a report runs.
type Identity struct {
	ID   string
	Name string
}

// Collaborator is everything the service needs from the surrounding application.
type Collaborator interface {
	// Caller identifies who is running the report.
	Caller(ctx context.Context) (Identity, error)
	// Datasource resolves a datasource id the caller may use.
	Datasource(ctx context.Context, id string, caller Identity) (*core.DatasourceConfig, error)
}

// Config holds service configuration.
type Config struct {
	Collaborator Collaborator
	Limits       querybuilder.Limits
	// QueryTimeout bounds execution (defaults to DefaultQueryTimeout).
	QueryTimeout        time.Duration
	MaxIdentifierLength int
	// CheckSchema confirms tables and columns before building.
	CheckSchema bool
	// SchemaConcurrency bounds parallel metadata lookups.
	SchemaConcurrency int
	// RateLimit is runs per second per datasource; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Pool      connection.PoolConfig
	// SweepSchedule is the cron spec for pool and limiter housekeeping.
	SweepSchedule string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Service owns the connection registries for the life of the process.
type Service struct {
	collab      Collaborator
	manager     *connection.Manager
	pool        *connection.Pool
	sweeper     *connection.Sweeper
	limiter     *rateLimiter
	limits      querybuilder.Limits
	timeout     time.Duration
	maxIdent    int
	checkSchema bool
	schemaLimit int
	logger      *slog.Logger
}

// New creates a Service. Call Start before serving and Close at shutdown.
func New(cfg Config) (*Service, error) {
	if cfg.Collaborator == nil {
		return nil, errors.New("report service requires a collaborator")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	poolCfg := cfg.Pool
	if poolCfg.Logger == nil {
		poolCfg.Logger = logger
	}

	s := &Service{
		collab:      cfg.Collaborator,
		manager:     connection.NewManager(logger),
		pool:        connection.NewPool(poolCfg),
		sweeper:     connection.NewSweeper(cfg.SweepSchedule, logger),
		limiter:     newRateLimiter(cfg.RateLimit, cfg.RateBurst),
		limits:      cfg.Limits,
		timeout:     timeout,
		maxIdent:    cfg.MaxIdentifierLength,
		checkSchema: cfg.CheckSchema,
		schemaLimit: cfg.SchemaConcurrency,
		logger:      logger,
	}
	s.sweeper.AddPool(s.pool)
	s.sweeper.Add("limiter-prune", func() { s.limiter.Prune() })
	return s, nil
}

// Start starts background housekeeping.
func (s *Service) Start() error {
	return s.sweeper.Start()
}

// Close stops housekeeping and closes every connection.
func (s *Service) Close() error {
	s.sweeper.Stop()
	return errors.Join(s.manager.Close(), s.pool.CloseAll())
}

// Pool exposes the connection pool for inspection.
func (s *Service) Pool() *connection.Pool {
	return s.pool
}

// Run executes cfg and reports the outcome. It never returns an error: every
// failure is a Result with Success false.
func (s *Service) Run(ctx context.Context, cfg *core.QueryConfiguration) *Result {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	result, err := s.run(ctx, cfg, logger)
	if err != nil {
		logger.Warn("report run failed", "error", err, "kind", errorKind(err))
		return failure(runID, err)
	}

	result.RunID = runID
	result.ExecutionTime = time.Since(start).Seconds()
	logger.Info("report run completed", "rows", result.RowCount, "duration", time.Since(start))
	return result
}

func (s *Service) run(ctx context.Context, cfg *core.QueryConfiguration, logger *slog.Logger) (*Result, error) {
	if cfg == nil {
		return nil, core.NewConfigValidationError(core.RuleTableCount, "query configuration is required")
	}

	ds, err := s.resolve(ctx, cfg.DatasourceID)
	if err != nil {
		return nil, err
	}
	if !s.limiter.Allow(ds.ID) {
		return nil, fmt.Errorf("rate limit exceeded for datasource %s", ds.ID)
	}

	if err := querybuilder.Validate(cfg, s.limits); err != nil {
		return nil, err
	}

	adp, release, err := s.acquire(ctx, ds, logger)
	if err != nil {
		return nil, err
	}
	defer release()

	b := s.builder(adp, logger)
	stmt, err := b.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rs, err := b.Execute(qctx, stmt)
	if err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, &core.ExecutionError{Err: fmt.Errorf("query timed out after %s", s.timeout)}
		}
		return nil, err
	}

	return &Result{
		Success:  true,
		Data:     rs.Rows,
		Columns:  rs.Columns,
		RowCount: len(rs.Rows),
		Message:  fmt.Sprintf("Query executed successfully. %d rows returned.", len(rs.Rows)),
		SQL:      stmt.SQL,
	}, nil
}

// BuildOptions controls statement previews.
type BuildOptions struct {
	// Inline renders literal values instead of placeholders.
	Inline bool
	// Pretty renders one clause per line.
	Pretty bool
	// Dialect overrides the dialect of the datasource (adapter type name).
	Dialect string
}

// Build renders cfg for its datasource without executing it. Schema checks
// connect to the datasource when the service was configured with CheckSchema.
func (s *Service) Build(ctx context.Context, cfg *core.QueryConfiguration, opts BuildOptions) (*querybuilder.Statement, error) {
	if cfg == nil {
		return nil, core.NewConfigValidationError(core.RuleTableCount, "query configuration is required")
	}
	ds, err := s.resolve(ctx, cfg.DatasourceID)
	if err != nil {
		return nil, err
	}

	acfg := ds.AdapterConfig()
	if acfg.Type == "" && ds.Pooled() {
		target, err := connection.ParseConnectionString(ds.ConnectionString)
		if err != nil {
			return nil, err
		}
		acfg.Type = target.Backend
	}
	if opts.Dialect != "" {
		acfg.Type = opts.Dialect
	}
	offline, err := adapter.NewAdapter(acfg, s.logger)
	if err != nil {
		return nil, err
	}

	bcfg := querybuilder.Config{
		Dialect:             offline.Dialect(),
		Limits:              s.limits,
		MaxIdentifierLength: s.maxIdent,
		Pretty:              opts.Pretty,
		Logger:              s.logger,
	}
	if s.checkSchema {
		adp, release, err := s.acquire(ctx, ds, s.logger)
		if err != nil {
			return nil, err
		}
		defer release()
		bcfg.Schema = schema.New(adp, s.schemaLimit, s.logger)
	}

	b := querybuilder.New(bcfg)
	if !opts.Inline {
		return b.Build(ctx, cfg)
	}
	sql, err := b.BuildSQL(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &querybuilder.Statement{SQL: sql, Dialect: bcfg.Dialect.Name}, nil
}

// BuildSQL returns the inline SQL for cfg in the dialect of its datasource.
func (s *Service) BuildSQL(ctx context.Context, cfg *core.QueryConfiguration) (string, error) {
	stmt, err := s.Build(ctx, cfg, BuildOptions{Inline: true})
	if err != nil {
		return "", err
	}
	return stmt.SQL, nil
}

// TestConnection reports whether the datasource answers SELECT 1.
func (s *Service) TestConnection(ctx context.Context, datasourceID string) bool {
	ds, err := s.resolve(ctx, datasourceID)
	if err != nil {
		s.logger.Debug("connection test failed", "datasource", datasourceID, "error", err)
		return false
	}
	if !ds.Pooled() {
		return s.manager.TestConnection(ctx, ds)
	}
	adp, release, err := s.acquire(ctx, ds, s.logger)
	if err != nil {
		s.logger.Debug("connection test failed", "datasource", datasourceID, "error", err)
		return false
	}
	defer release()
	return adp.Ping(ctx) == nil
}

// ListTables lists the tables and views of a datasource schema.
func (s *Service) ListTables(ctx context.Context, datasourceID, schemaName string) ([]core.TableInfo, error) {
	ds, err := s.resolve(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	adp, release, err := s.acquire(ctx, ds, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()
	return schema.New(adp, s.schemaLimit, s.logger).ListTables(ctx, schemaName)
}

// TableSchema describes one table of a datasource.
func (s *Service) TableSchema(ctx context.Context, datasourceID, table, schemaName string) (*core.TableMetadata, error) {
	ds, err := s.resolve(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	adp, release, err := s.acquire(ctx, ds, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()
	return schema.New(adp, s.schemaLimit, s.logger).GetTableSchema(ctx, table, schemaName)
}

func (s *Service) resolve(ctx context.Context, datasourceID string) (*core.DatasourceConfig, error) {
	caller, err := s.collab.Caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to identify caller: %w", err)
	}
	ds, err := s.collab.Datasource(ctx, datasourceID, caller)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// acquire returns a connected adapter from the pool for connection strings,
// otherwise from the manager. release must be called once the adapter is no
// longer used.
func (s *Service) acquire(ctx context.Context, ds *core.DatasourceConfig, logger *slog.Logger) (adp adapter.Adapter, release func(), err error) {
	if !ds.Pooled() {
		adp, err = s.manager.GetConnection(ctx, ds)
		return adp, func() {}, err
	}
	conn, err := s.pool.GetConnection(ctx, ds.ConnectionString)
	if err != nil {
		return nil, nil, err
	}
	adp, err = adapter.Attach(conn.DB, core.AdapterConfig{Type: conn.Backend, Schema: ds.Schema}, logger)
	if err != nil {
		conn.Release()
		return nil, nil, err
	}
	return adp, conn.Release, nil
}

func (s *Service) builder(adp adapter.Adapter, logger *slog.Logger) *querybuilder.Builder {
	cfg := querybuilder.Config{
		Dialect:             adp.Dialect(),
		Executor:            adp,
		Limits:              s.limits,
		MaxIdentifierLength: s.maxIdent,
		Logger:              logger,
	}
	if s.checkSchema {
		cfg.Schema = schema.New(adp, s.schemaLimit, logger)
	}
	return querybuilder.New(cfg)
}

func errorKind(err error) string {
	var (
		cfgErr      *core.ConfigValidationError
		unsafe      *core.UnsafeIdentifierError
		violation   *core.SQLSafetyViolation
		notFound    *core.JoinTargetNotFoundError
		unsupported *core.UnsupportedBackendError
		connErr     *core.ConnectionError
		execErr     *core.ExecutionError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "config_validation"
	case errors.As(err, &unsafe):
		return "unsafe_identifier"
	case errors.As(err, &violation):
		return "sql_safety"
	case errors.As(err, &notFound):
		return "join_target_not_found"
	case errors.As(err, &unsupported):
		return "unsupported_backend"
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &execErr):
		return "execution"
	}
	return "other"
}
