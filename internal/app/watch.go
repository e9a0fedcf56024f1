package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/execx"
	"github.com/blackwell-systems/caskctl/internal/watcher"
)

var watchCaskroom string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the Caskroom and report installed-state changes",
	Long: `watch observes the Homebrew Caskroom directory and re-probes the
installed cask set whenever something changes there, including installs
and uninstalls performed outside caskctl. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()

		dir := watchCaskroom
		if dir == "" {
			dir, err = caskroomDir(ctx, e)
			if err != nil {
				return err
			}
		}

		known, err := e.manager.InstalledIDs(ctx)
		if err != nil {
			return fmt.Errorf("initial installed probe: %w", err)
		}

		w, err := watcher.New(dir, func() {
			current, err := e.manager.InstalledIDs(ctx)
			if err != nil {
				e.logger.Warn("installed re-probe failed", "error", err)
				return
			}
			for id := range current {
				if _, ok := known[id]; !ok {
					fmt.Printf("installed: %s\n", id)
				}
			}
			for id := range known {
				if _, ok := current[id]; !ok {
					fmt.Printf("removed:   %s\n", id)
				}
			}
			known = current
		}, e.logger)
		if err != nil {
			return err
		}

		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", dir)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchCaskroom, "caskroom", "", "Caskroom directory (default: <brew prefix>/Caskroom)")
}

// caskroomDir resolves the Caskroom location from the brew prefix.
func caskroomDir(ctx context.Context, e *env) (string, error) {
	out, err := e.runner.Run(ctx, execx.Command{Path: e.cfg.BrewPath, Args: []string{"--prefix"}})
	if err != nil {
		return "", fmt.Errorf("resolve brew prefix: %w", err)
	}
	prefix := strings.TrimSpace(out)
	if prefix == "" {
		return "", fmt.Errorf("empty brew prefix")
	}
	return filepath.Join(prefix, "Caskroom"), nil
}
