// Package app wires configuration, storage, and the marketplace engine
// together and runs the selected application mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/nftshop/internal/config"
)

// App is the top-level application container.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run wires dependencies for the configured mode and executes it until ctx
// is cancelled or the mode returns.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	defer cleanup()

	mode := strings.ToLower(a.cfg.Mode)
	a.logger.InfoContext(ctx, "app: starting", slog.String("mode", mode))

	switch mode {
	case "serve":
		return runServe(ctx, a.cfg, deps, a.logger)
	case "demo":
		return runDemo(ctx, a.cfg, deps, a.logger)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}
