// Package commands implements the leapquery subcommands.
package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/spf13/cobra"
)

// Runtime carries the configuration and logger resolved by the root command.
type Runtime struct {
	Config *config.Loaded
	Logger *slog.Logger
}

// runtimeKey is used to store the runtime in the command context.
type runtimeKey struct{}

// WithRuntime stores rt in ctx.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// GetRuntime retrieves the runtime from ctx.
func GetRuntime(ctx context.Context) (*Runtime, error) {
	if ctx != nil {
		if rt, ok := ctx.Value(runtimeKey{}).(*Runtime); ok && rt.Config != nil {
			if rt.Logger == nil {
				rt.Logger = slog.New(slog.DiscardHandler)
			}
			return rt, nil
		}
	}
	return nil, errors.New("configuration not loaded")
}

// newService creates a report service for the command. The caller must Close it.
func newService(cmd *cobra.Command) (*report.Service, *Runtime, error) {
	rt, err := GetRuntime(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	cfg := rt.Config.Config
	svc, err := report.New(cfg.ServiceConfig(config.NewCatalog(cfg), rt.Logger))
	if err != nil {
		return nil, nil, err
	}
	return svc, rt, nil
}
