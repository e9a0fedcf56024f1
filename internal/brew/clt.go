package brew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/caskctl/internal/execx"
)

// Command line tools wait loop. Installation happens through a GUI prompt
// the user may leave open for a long time, so the poll is generous but
// bounded: it fails explicitly instead of blocking forever.
const (
	cltPollInterval = 5 * time.Minute
	cltMaxPolls     = 360 // ~30 hours worst case before giving up
)

// ErrCLTTimeout indicates the command line tools did not appear within the
// bounded wait.
var ErrCLTTimeout = errors.New("command line tools install timed out")

// HasCommandLineTools reports whether the Xcode command line tools are
// present, via `xcode-select -p`.
func HasCommandLineTools(ctx context.Context, runner execx.Runner) bool {
	out, err := runner.Run(ctx, execx.Command{Path: "xcode-select", Args: []string{"-p"}})
	return err == nil && strings.TrimSpace(out) != ""
}

// InstallCommandLineTools triggers the GUI installer prompt and polls until
// the tools appear, the context is cancelled, or the bounded retry count is
// exhausted.
func InstallCommandLineTools(ctx context.Context, runner execx.Runner) error {
	return installCommandLineTools(ctx, runner, cltPollInterval, cltMaxPolls)
}

func installCommandLineTools(ctx context.Context, runner execx.Runner, interval time.Duration, maxPolls int) error {
	if _, err := runner.Run(ctx, execx.Command{Path: "xcode-select", Args: []string{"--install"}}); err != nil {
		return fmt.Errorf("xcode-select --install: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < maxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if HasCommandLineTools(ctx, runner) {
				return nil
			}
		}
	}
	return ErrCLTTimeout
}
