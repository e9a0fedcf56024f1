package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/task"
)

var uninstallZap bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <cask>...",
	Short: "Uninstall one or more casks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		return runOps(cmd.Context(), e, args, task.Operation{Kind: task.KindUninstall, Zap: uninstallZap})
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallZap, "zap", false, "also remove associated support files")
}
