package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/output"
)

var outdatedGreedy bool

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List casks with pending updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		snap, err := e.coordinator.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		// The load already probed with the configured greediness; re-probe
		// only when the flag asks for something different.
		if outdatedGreedy != e.cfg.Greedy {
			if _, err := e.coordinator.RefreshOutdated(ctx, snap, outdatedGreedy); err != nil {
				return err
			}
		}

		if len(snap.Outdated) == 0 {
			fmt.Println("Everything is up to date.")
			return nil
		}
		fmt.Print(output.RenderPackageTable(snap.Outdated))
		return nil
	},
}

func init() {
	outdatedCmd.Flags().BoolVar(&outdatedGreedy, "greedy", false, "include casks that manage their own updates")
}
