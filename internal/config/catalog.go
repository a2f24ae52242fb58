package config

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"slices"

	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// ErrDatasourceNotFound is returned for an id absent from the configuration.
var ErrDatasourceNotFound = fmt.Errorf("datasource not found")

// ErrAccessDenied is returned when grants exclude the caller.
var ErrAccessDenied = fmt.Errorf("access denied")

// Catalog serves datasources from a loaded configuration.
type Catalog struct {
	cfg    *Config
	caller report.Identity
}

// NewCatalog creates a Catalog. The caller is taken from cfg.Caller, falling
// back to the operating system user.
func NewCatalog(cfg *Config) *Catalog {
	caller := report.Identity{ID: cfg.Caller.ID, Name: cfg.Caller.Name}
	if caller.ID == "" {
		caller.ID = osUser()
	}
	if caller.Name == "" {
		caller.Name = caller.ID
	}
	return &Catalog{cfg: cfg, caller: caller}
}

// Caller returns the configured identity.
func (c *Catalog) Caller(_ context.Context) (report.Identity, error) {
	if c.caller.ID == "" {
		return report.Identity{}, fmt.Errorf("no caller identity configured")
	}
	return c.caller, nil
}

// Datasource returns a copy of the datasource named id if caller is granted access.
func (c *Catalog) Datasource(_ context.Context, id string, caller report.Identity) (*core.DatasourceConfig, error) {
	ds, ok := c.cfg.Datasource(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatasourceNotFound, id)
	}
	if granted, restricted := c.cfg.Grants[id]; restricted && !slices.Contains(granted, caller.ID) {
		return nil, fmt.Errorf("%w: %s may not use datasource %q", ErrAccessDenied, caller.ID, id)
	}
	out := *ds
	return &out, nil
}

func osUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "anonymous"
}

var _ report.Collaborator = (*Catalog)(nil)
