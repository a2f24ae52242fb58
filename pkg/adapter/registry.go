package adapter

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Factory constructs an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
	canonical  = make(map[string]string)
)

// Register adds an adapter factory to the registry under one or more names.
// The first name is canonical; the rest are aliases of it.
// Called by adapter implementations in their init() functions.
func Register(factory Factory, names ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, name := range names {
		registry[strings.ToLower(name)] = factory
		canonical[strings.ToLower(name)] = strings.ToLower(names[0])
	}
}

// Canonical returns the lowercased canonical name for an adapter type, so
// "PostgreSQL" and "postgres" resolve alike. Unknown types are lowercased.
func Canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	if c, ok := canonical[name]; ok {
		return c
	}
	return name
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// NewAdapter creates a new adapter instance based on config type.
// The logger parameter is passed to the adapter constructor (nil uses discard logger).
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &core.UnsupportedBackendError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// attacher is implemented by every adapter embedding BaseSQLAdapter.
type attacher interface {
	AttachDB(db *sql.DB, cfg core.AdapterConfig)
}

// Attach wraps a handle opened elsewhere in the adapter registered for cfg.Type.
// The returned adapter never closes db.
func Attach(db *sql.DB, cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	at, ok := a.(attacher)
	if !ok {
		return nil, fmt.Errorf("adapter %q cannot attach to an existing connection", cfg.Type)
	}
	at.AttachDB(db, cfg)
	return a, nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}
