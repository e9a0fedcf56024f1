package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/output"
)

var (
	listCategory  string
	listInstalled bool
	listTaps      bool
	listSearch    string
	listInfo      string
	listLimit     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Browse the aggregated cask catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if listInfo != "" {
			return runListInfo(cmd.Context(), e, listInfo)
		}

		snap, err := e.coordinator.LoadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("load catalog (retry with --verbose for details): %w", err)
		}

		switch {
		case listInstalled:
			fmt.Print(output.RenderPackageTable(snap.Installed))

		case listTaps:
			for tap, pkgs := range snap.Taps {
				fmt.Printf("%s\n", tap)
				fmt.Print(output.RenderPackageTable(pkgs))
				fmt.Println()
			}
			if len(snap.Taps) == 0 {
				fmt.Println("No tap-contributed casks.")
			}

		case listCategory != "":
			for _, cl := range snap.Categories {
				if cl.Category.ID == listCategory {
					fmt.Print(output.RenderPackageTable(limit(cl.Casks, listLimit)))
					return nil
				}
			}
			return fmt.Errorf("unknown category %q", listCategory)

		case listSearch != "":
			fmt.Print(output.RenderPackageTable(limit(search(snap, listSearch), listLimit)))

		default:
			fmt.Print(output.RenderCategoryTable(snap.Categories))
			fmt.Println("\nUse --category <id> to list a category's casks.")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "list casks in one category")
	listCmd.Flags().BoolVar(&listInstalled, "installed", false, "list installed casks only")
	listCmd.Flags().BoolVar(&listTaps, "taps", false, "list tap-contributed casks")
	listCmd.Flags().StringVar(&listSearch, "search", "", "filter casks by token or name substring")
	listCmd.Flags().StringVar(&listInfo, "info", "", "show detailed info for one cask")
	listCmd.Flags().IntVar(&listLimit, "limit", 30, "maximum rows to display")
}

func runListInfo(ctx context.Context, e *env, id string) error {
	d, err := e.manager.Info(ctx, id)
	if err != nil {
		return err
	}
	name := d.Token
	if len(d.Name) > 0 {
		name = d.Name[0]
	}
	fmt.Printf("%s (%s)\n", name, d.FullToken)
	fmt.Printf("  tap:       %s\n", d.Tap)
	fmt.Printf("  version:   %s\n", d.Version)
	if d.Installed != nil {
		fmt.Printf("  installed: %s\n", *d.Installed)
	} else {
		fmt.Printf("  installed: no\n")
	}
	fmt.Printf("  homepage:  %s\n", d.Homepage)
	if d.Desc != "" {
		fmt.Printf("  %s\n", d.Desc)
	}
	return nil
}

func search(snap *cask.Snapshot, query string) []*cask.Package {
	query = strings.ToLower(query)
	var matches []*cask.Package
	for _, p := range snap.All {
		if strings.Contains(strings.ToLower(p.Info.Token), query) ||
			strings.Contains(strings.ToLower(p.Info.Name), query) {
			matches = append(matches, p)
		}
	}
	return matches
}

func limit(pkgs []*cask.Package, n int) []*cask.Package {
	if n > 0 && len(pkgs) > n {
		return pkgs[:n]
	}
	return pkgs
}
