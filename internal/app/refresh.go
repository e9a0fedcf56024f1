package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/caskctl/internal/cache"
	"github.com/blackwell-systems/caskctl/internal/fetch"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the catalog and analytics, ignoring cache freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()

		// PolicyLaunch treats the cache as never fresh, forcing a network
		// fetch; the stale-cache fallback still applies if the network is
		// down.
		entries, err := cache.Fetch(ctx, e.cacheStore, cache.CatalogKey, cache.PolicyLaunch,
			e.fetcher.Catalog, fetch.DecodeCatalog)
		if err != nil {
			return fmt.Errorf("refresh catalog: %w", err)
		}

		analytics, err := cache.Fetch(ctx, e.cacheStore, cache.AnalyticsKey, cache.PolicyLaunch,
			e.fetcher.Analytics, fetch.DecodeAnalytics)
		if err != nil {
			return fmt.Errorf("refresh analytics: %w", err)
		}

		fmt.Printf("Refreshed: %d casks, analytics for %d tokens.\n", len(entries), len(analytics))
		return nil
	},
}
