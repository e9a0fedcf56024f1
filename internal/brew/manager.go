// Package brew drives the package manager CLI: probing installed and
// outdated casks, and running per-cask lifecycle operations. The package
// manager itself is an opaque external program; all of its output is parsed
// defensively.
package brew

import (
	"context"
	"errors"

	"github.com/blackwell-systems/caskctl/internal/execx"
)

// ErrConfigInvalid indicates the configured package manager location does
// not resolve to a working executable.
var ErrConfigInvalid = errors.New("package manager path invalid")

// Manager is the capability surface the pipeline needs from a package
// manager. Homebrew is the one concrete implementation; another manager is
// another implementation, not a subclass.
type Manager interface {
	// Version runs the cheap version check used to validate the
	// configured location before any operation. Returns ErrConfigInvalid
	// when the executable is missing or broken.
	Version(ctx context.Context) (string, error)

	// InstalledIDs lists currently installed cask ids. Empty output is a
	// valid result meaning nothing installed.
	InstalledIDs(ctx context.Context) (map[string]struct{}, error)

	// OutdatedIDs lists casks with pending updates. greedy also surfaces
	// casks that manage their own updates.
	OutdatedIDs(ctx context.Context, greedy bool) (map[string]struct{}, error)

	// Install starts an install and streams its output line by line so
	// the caller can derive incremental progress.
	Install(ctx context.Context, id string, force bool) (*execx.Stream, error)

	// Uninstall removes a cask, optionally zapping associated support
	// files. Runs to completion; returns combined output.
	Uninstall(ctx context.Context, id string, zap bool) (string, error)

	// Upgrade updates a cask to the latest version. Runs to completion.
	Upgrade(ctx context.Context, id string) (string, error)

	// Info returns detailed metadata for one cask.
	Info(ctx context.Context, id string) (*Detail, error)
}
