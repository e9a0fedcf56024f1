package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/task"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install <cask>...",
	Short: "Install one or more casks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		if !brew.HasCommandLineTools(ctx, e.runner) {
			fmt.Println("Xcode command line tools are required; starting the installer...")
			if err := brew.InstallCommandLineTools(ctx, e.runner); err != nil {
				return fmt.Errorf("command line tools: %w", err)
			}
		}

		return runOps(ctx, e, args, task.Operation{Kind: task.KindInstall, Force: installForce})
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "overwrite an existing app")
}
