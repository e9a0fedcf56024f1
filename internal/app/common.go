package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/cache"
	"github.com/blackwell-systems/caskctl/internal/catalog"
	"github.com/blackwell-systems/caskctl/internal/config"
	"github.com/blackwell-systems/caskctl/internal/execx"
	"github.com/blackwell-systems/caskctl/internal/fetch"
	"github.com/blackwell-systems/caskctl/internal/notify"
	"github.com/blackwell-systems/caskctl/internal/store"
	"github.com/blackwell-systems/caskctl/internal/task"
)

// env bundles the wired pipeline for one command invocation.
type env struct {
	cfg         config.Config
	logger      hclog.Logger
	runner      *execx.ExecRunner
	manager     *brew.Homebrew
	fetcher     *fetch.Client
	cacheStore  *cache.Store
	coordinator *catalog.Coordinator
	engine      *task.Engine
	history     *store.Store
}

// newEnv loads the configuration and wires every component. The history
// store is optional: a failure to open it degrades to no recording.
func newEnv() (*env, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "caskctl",
		Level:  level,
		Output: os.Stderr,
	})

	runner := execx.NewRunner(logger)
	manager := brew.New(cfg, runner, logger)
	fetcher := fetch.NewClient(runner, cfg.TapScript, logger)

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir, err = cache.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	cacheStore := cache.NewStore(cacheDir, logger)

	coordinator, err := catalog.NewCoordinator(cfg, fetcher, cacheStore, manager, logger)
	if err != nil {
		return nil, err
	}

	history, err := store.New(historyPath(cfg))
	if err != nil {
		logger.Warn("history database unavailable, not recording", "error", err)
		history = nil
	}

	engine := task.NewEngine(cfg, manager, notify.NewLogNotifier(logger), history, logger)

	return &env{
		cfg:         cfg,
		logger:      logger,
		runner:      runner,
		manager:     manager,
		fetcher:     fetcher,
		cacheStore:  cacheStore,
		coordinator: coordinator,
		engine:      engine,
		history:     history,
	}, nil
}

// close releases held resources.
func (e *env) close() {
	if e.history != nil {
		e.history.Close()
	}
}

// historyPath resolves the history database location.
func historyPath(cfg config.Config) string {
	if cfg.HistoryDB != "" {
		return cfg.HistoryDB
	}
	dir, err := config.Dir()
	if err != nil {
		return "caskctl-history.db"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "caskctl-history.db"
	}
	return filepath.Join(dir, "history.db")
}
