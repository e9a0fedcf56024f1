package brew

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blackwell-systems/caskctl/internal/config"
	"github.com/blackwell-systems/caskctl/internal/execx"
)

// detailCacheSize bounds the info-lookup cache; detail views are browsed
// repeatedly within a session but the metadata rarely changes.
const detailCacheSize = 128

// Homebrew is the Manager implementation backed by the brew CLI.
type Homebrew struct {
	path         string
	appdir       string
	noQuarantine bool
	proxy        string
	askpass      string

	runner  execx.Runner
	logger  hclog.Logger
	details *lru.Cache[string, *Detail]
}

// New creates a Homebrew manager from the user configuration.
func New(cfg config.Config, runner execx.Runner, logger hclog.Logger) *Homebrew {
	if logger == nil {
		logger = hclog.Default()
	}
	details, _ := lru.New[string, *Detail](detailCacheSize)
	return &Homebrew{
		path:         cfg.BrewPath,
		appdir:       cfg.Appdir,
		noQuarantine: cfg.NoQuarantine,
		proxy:        cfg.Proxy,
		askpass:      cfg.AskpassPath,
		runner:       runner,
		logger:       logger.Named("brew"),
		details:      details,
	}
}

// env returns the extra environment for spawned brew processes. The askpass
// helper routes privileged password prompts; the engine checksum-verifies it
// before any operation starts.
func (h *Homebrew) env() []string {
	var env []string
	if h.proxy != "" {
		env = append(env, "ALL_PROXY="+h.proxy)
	}
	if h.askpass != "" {
		env = append(env, execx.AskpassEnv(h.askpass)...)
	}
	return env
}

func (h *Homebrew) command(pty bool, args ...string) execx.Command {
	return execx.Command{Path: h.path, Args: args, Env: h.env(), PTY: pty}
}

// Version validates the configured brew location with `brew --version`.
func (h *Homebrew) Version(ctx context.Context) (string, error) {
	out, err := h.runner.Run(ctx, h.command(false, "--version"))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConfigInvalid, h.path, err)
	}
	version := strings.TrimSpace(out)
	if version == "" || !strings.Contains(version, "Homebrew") {
		return "", fmt.Errorf("%w: %s: unexpected version output", ErrConfigInvalid, h.path)
	}
	return version, nil
}

// InstalledIDs runs `brew list --cask` and parses one id per line.
func (h *Homebrew) InstalledIDs(ctx context.Context) (map[string]struct{}, error) {
	out, err := h.runner.Run(ctx, h.command(false, "list", "--cask"))
	if err != nil {
		return nil, fmt.Errorf("brew list --cask: %w", err)
	}
	return parseIDLines(out), nil
}

// OutdatedIDs runs `brew outdated --cask -q`, adding -g when greedy.
func (h *Homebrew) OutdatedIDs(ctx context.Context, greedy bool) (map[string]struct{}, error) {
	args := []string{"outdated", "--cask", "-q"}
	if greedy {
		args = append(args, "-g")
	}
	out, err := h.runner.Run(ctx, h.command(false, args...))
	if err != nil {
		return nil, fmt.Errorf("brew outdated --cask: %w", err)
	}
	return parseIDLines(out), nil
}

// parseIDLines extracts one id per output line, trimming whitespace and
// dropping blanks. Empty output yields an empty, non-nil set.
func parseIDLines(out string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// Install starts `brew install --cask <id>` under a pseudo-terminal; brew
// suppresses its download progress bar when not attached to one.
func (h *Homebrew) Install(ctx context.Context, id string, force bool) (*execx.Stream, error) {
	args := []string{"install", "--cask", id}
	if force {
		args = append(args, "--force")
	}
	if h.appdir != "" {
		args = append(args, "--appdir="+h.appdir)
	}
	if h.noQuarantine {
		args = append(args, "--no-quarantine")
	}
	return h.runner.Stream(ctx, h.command(true, args...))
}

// Uninstall runs `brew uninstall --cask <id>` to completion.
func (h *Homebrew) Uninstall(ctx context.Context, id string, zap bool) (string, error) {
	args := []string{"uninstall", "--cask", id}
	if zap {
		args = append(args, "--zap", "--force")
	}
	return h.runner.Run(ctx, h.command(false, args...))
}

// Upgrade runs `brew upgrade --cask <id>` to completion.
func (h *Homebrew) Upgrade(ctx context.Context, id string) (string, error) {
	return h.runner.Run(ctx, h.command(false, "upgrade", "--cask", id))
}
