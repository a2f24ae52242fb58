// Package connection owns the process-scoped database handles: the Manager
// keyed by datasource identity, the fingerprint-keyed Pool and the Sweeper
// that expires idle pool entries.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"golang.org/x/sync/singleflight"
)

// AdapterFactory creates an unconnected adapter for cfg.
type AdapterFactory func(cfg core.AdapterConfig, logger *slog.Logger) (adapter.Adapter, error)

// Manager lazily creates and caches one connected adapter per datasource key.
type Manager struct {
	mu     sync.Mutex
	conns  map[string]adapter.Adapter
	group  singleflight.Group
	create AdapterFactory
	logger *slog.Logger
}

// NewManager creates a Manager backed by the adapter registry.
func NewManager(logger *slog.Logger) *Manager {
	return NewManagerWithFactory(adapter.NewAdapter, logger)
}

// NewManagerWithFactory creates a Manager with a custom adapter factory.
func NewManagerWithFactory(create AdapterFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		conns:  make(map[string]adapter.Adapter),
		create: create,
		logger: logger,
	}
}

// Key returns "{type}_{host}_{database}". The type is the adapter's canonical
// name, so aliases like postgresql share a key with postgres. File-backed
// datasources use their path when no database name is set.
func Key(ds *core.DatasourceConfig) string {
	database := ds.Database
	if database == "" {
		database = ds.Path
	}
	return fmt.Sprintf("%s_%s_%s", adapter.Canonical(ds.Type), ds.Host, database)
}

// GetConnection returns the connected adapter for ds, connecting on first use.
// Concurrent first calls for the same key share one connection attempt.
func (m *Manager) GetConnection(ctx context.Context, ds *core.DatasourceConfig) (adapter.Adapter, error) {
	key := Key(ds)

	m.mu.Lock()
	a, ok := m.conns[key]
	m.mu.Unlock()
	if ok {
		return a, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.Lock()
		existing, ok := m.conns[key]
		m.mu.Unlock()
		if ok {
			return existing, nil
		}

		cfg := ds.AdapterConfig()
		a, err := m.create(cfg, m.logger)
		if err != nil {
			return nil, err
		}
		if err := a.Connect(ctx, cfg); err != nil {
			return nil, &core.ConnectionError{Backend: ds.Type, Err: err}
		}

		m.mu.Lock()
		m.conns[key] = a
		m.mu.Unlock()
		m.logger.Info("opened datasource connection", "key", key, "datasource", ds.ID)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(adapter.Adapter), nil
}

// TestConnection reports whether ds answers SELECT 1. Every failure, including
// an unsupported type, is reported as false.
func (m *Manager) TestConnection(ctx context.Context, ds *core.DatasourceConfig) bool {
	a, err := m.GetConnection(ctx, ds)
	if err != nil {
		m.logger.Debug("connection test failed", "datasource", ds.ID, "error", err)
		return false
	}
	if err := a.Ping(ctx); err != nil {
		m.logger.Debug("connection test failed", "datasource", ds.ID, "error", err)
		return false
	}
	return true
}

// Keys returns the keys of open connections.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.conns))
	for k := range m.conns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close closes every connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, a := range m.conns {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		delete(m.conns, key)
	}
	return errors.Join(errs...)
}
