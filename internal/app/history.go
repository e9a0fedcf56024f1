package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/output"
)

var (
	historyLimit int
	historyCask  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent install/uninstall/update operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if e.history == nil {
			return fmt.Errorf("history database unavailable")
		}

		if historyCask != "" {
			evs, err := e.history.PackageEvents(historyCask, historyLimit)
			if err != nil {
				return err
			}
			fmt.Print(output.RenderEventTable(evs))
			return nil
		}

		evs, err := e.history.RecentEvents(historyLimit)
		if err != nil {
			return err
		}
		fmt.Print(output.RenderEventTable(evs))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum events to display")
	historyCmd.Flags().StringVar(&historyCask, "cask", "", "only events for one cask")
}
