package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/cache"
	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/config"
	"github.com/blackwell-systems/caskctl/internal/fetch"
)

// Coordinator orchestrates one aggregation cycle: the cache-wrapped catalog
// and analytics fetches, the best-effort tap fetch, the installed/outdated
// probes, and the model build.
type Coordinator struct {
	fetcher    *fetch.Client
	store      *cache.Store
	manager    brew.Manager
	categories []cask.Category
	policy     cache.Policy
	greedy     bool
	taps       bool
	logger     hclog.Logger
}

// NewCoordinator wires a Coordinator from the user configuration. The
// category manifest load and an invalid refresh policy are resolved here:
// the manifest is structural (error), the policy degrades to every-launch
// (cache never fresh, network preferred).
func NewCoordinator(cfg config.Config, fetcher *fetch.Client, store *cache.Store,
	manager brew.Manager, logger hclog.Logger) (*Coordinator, error) {

	if logger == nil {
		logger = hclog.Default()
	}
	logger = logger.Named("catalog")

	categories, err := LoadCategories()
	if err != nil {
		return nil, err
	}

	policy, err := cache.ParsePolicy(cfg.RefreshPolicy)
	if err != nil {
		logger.Warn("invalid refresh policy, refreshing every launch", "policy", cfg.RefreshPolicy)
		policy = cache.PolicyLaunch
	}

	return &Coordinator{
		fetcher:    fetcher,
		store:      store,
		manager:    manager,
		categories: categories,
		policy:     policy,
		greedy:     cfg.Greedy,
		taps:       cfg.TapsEnabled,
		logger:     logger,
	}, nil
}

// LoadAll runs the five fetches concurrently and merges the results into one
// snapshot.
//
// Failure policy: catalog and analytics (each behind the three-tier cache
// fallback) are hard failures. Tap entries and both probes degrade to empty
// results: a stale network or a broken brew install must not block showing
// a mostly-complete catalog the user can still act on.
func (c *Coordinator) LoadAll(ctx context.Context) (*cask.Snapshot, error) {
	var (
		entries    []cask.RawEntry
		analytics  cask.Analytics
		tapEntries []cask.RawEntry
		installed  map[string]struct{}
		outdated   map[string]struct{}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		entries, err = cache.Fetch(gctx, c.store, cache.CatalogKey, c.policy,
			c.fetcher.Catalog, fetch.DecodeCatalog)
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		analytics, err = cache.Fetch(gctx, c.store, cache.AnalyticsKey, c.policy,
			c.fetcher.Analytics, fetch.DecodeAnalytics)
		if err != nil {
			return fmt.Errorf("analytics: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if c.taps {
			tapEntries = c.fetcher.TapEntries(gctx)
		}
		return nil
	})

	g.Go(func() error {
		ids, err := c.manager.InstalledIDs(gctx)
		if err != nil {
			c.logger.Warn("installed probe failed, assuming none installed", "error", err)
			ids = map[string]struct{}{}
		}
		installed = ids
		return nil
	})

	g.Go(func() error {
		ids, err := c.manager.OutdatedIDs(gctx, c.greedy)
		if err != nil {
			c.logger.Warn("outdated probe failed, assuming none outdated", "error", err)
			ids = map[string]struct{}{}
		}
		outdated = ids
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := entries
	if len(tapEntries) > 0 {
		all = append(append(make([]cask.RawEntry, 0, len(entries)+len(tapEntries)), entries...), tapEntries...)
	}

	snap, err := Build(all, installed, outdated, analytics, c.categories)
	if err != nil {
		return nil, err
	}

	c.logger.Info("catalog loaded",
		"packages", len(snap.All),
		"installed", len(snap.Installed),
		"outdated", len(snap.Outdated),
		"taps", len(snap.Taps))
	return snap, nil
}

// RefreshOutdated re-runs only the outdated probe against an existing
// snapshot, updating each package's outdated flag and the snapshot's
// outdated subset without re-fetching the catalog.
func (c *Coordinator) RefreshOutdated(ctx context.Context, snap *cask.Snapshot, greedy bool) (map[string]struct{}, error) {
	ids, err := c.manager.OutdatedIDs(ctx, greedy)
	if err != nil {
		return nil, fmt.Errorf("outdated probe: %w", err)
	}

	snap.Outdated = snap.Outdated[:0]
	for _, p := range snap.All {
		_, tok := ids[p.Info.Token]
		_, full := ids[p.Info.FullToken]
		isOutdated := tok || full
		p.SetOutdated(isOutdated)
		if isOutdated {
			snap.Outdated = append(snap.Outdated, p)
		}
	}
	return ids, nil
}
