package cmd

import (
	"fmt"

	"github.com/mtian8/physics-agent/internal/config"
	"github.com/mtian8/physics-agent/internal/logging"
	"github.com/mtian8/physics-agent/internal/orchestrator"
	"github.com/mtian8/physics-agent/internal/store"
	"github.com/mtian8/physics-agent/internal/worker"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// deps bundles the collaborators every run-facing command needs.
type deps struct {
	cfg    *config.Config
	layout *workspace.Layout
	store  *store.Store
	engine *orchestrator.Engine
	log    *logging.Logger
}

// buildDeps loads and validates configuration, opens the record store, and
// assembles the engine. runID may be empty; when set, debug logs go to that
// run's directory.
func buildDeps(runID string) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	layout := workspace.NewLayout(cfg.Paths.ResolveDataDir())

	logDir := ""
	if runID != "" {
		logDir = layout.RunDir(runID)
	}
	log, err := logging.NewLogger(logDir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	registry, err := worker.NewRegistry(cfg.Workers)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(layout.DBPath())
	if err != nil {
		return nil, err
	}

	engine := orchestrator.New(cfg, layout, registry, st, nil, log)
	return &deps{cfg: cfg, layout: layout, store: st, engine: engine, log: log}, nil
}

// close releases the store and flushes logs.
func (d *deps) close() {
	_ = d.store.Close()
	_ = d.log.Close()
}
