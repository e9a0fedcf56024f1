package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/task"
)

var upgradeAll bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [<cask>...]",
	Short: "Update casks to their latest versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !upgradeAll {
			return fmt.Errorf("name casks to upgrade, or pass --all")
		}

		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		op := task.Operation{Kind: task.KindUpdate}

		if upgradeAll {
			snap, err := e.coordinator.LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			if len(snap.Outdated) == 0 {
				fmt.Println("Everything is up to date.")
				return nil
			}
			return runOpsOn(ctx, e, snap.Outdated, op)
		}

		return runOps(ctx, e, args, op)
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeAll, "all", false, "upgrade every outdated cask")
}
