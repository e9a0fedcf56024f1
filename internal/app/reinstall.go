package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/task"
)

var reinstallCmd = &cobra.Command{
	Use:   "reinstall <cask>...",
	Short: "Uninstall and install casks again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		return runOps(cmd.Context(), e, args, task.Operation{Kind: task.KindReinstall})
	},
}
