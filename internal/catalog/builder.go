// Package catalog builds the aggregated cask snapshot: it fans out the
// remote, cache and probe fetches, constructs entity models in parallel
// batches, and derives the category and tap indices.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/blackwell-systems/caskctl/internal/cask"
)

// batchSize is the number of raw entries handed to one build worker. The
// catalog is ~7000 entries, so this keeps a handful of batches in flight
// without oversplitting.
const batchSize = 1024

// batchResult holds one worker's partial output. Slices preserve the batch's
// source-feed order so the final merge is deterministic.
type batchResult struct {
	packages  []*cask.Package
	installed []*cask.Package
	outdated  []*cask.Package
	byCat     map[string][]*cask.Package
	byTap     map[string][]*cask.Package
}

// Build transforms raw entries plus probe and analytics results into a
// snapshot. Entries are processed in parallel batches; a malformed entry is
// skipped rather than failing the batch. The only outright failure is a
// programmer-error input (nil categories).
//
// Identity invariant: the one Package constructed for an id is the instance
// referenced from every index; indices never hold reconstructed copies.
func Build(entries []cask.RawEntry, installed, outdated map[string]struct{},
	analytics cask.Analytics, categories []cask.Category) (*cask.Snapshot, error) {

	if categories == nil {
		return nil, fmt.Errorf("build: categories must not be nil")
	}

	// Union of every category's ids gives an O(1) short-circuit before the
	// per-category membership scan.
	catUnion := make(map[string]struct{})
	for _, cat := range categories {
		for _, id := range cat.CaskIDs {
			catUnion[id] = struct{}{}
		}
	}

	numBatches := (len(entries) + batchSize - 1) / batchSize
	results := make([]batchResult, numBatches)

	var wg sync.WaitGroup
	for b := 0; b < numBatches; b++ {
		start := b * batchSize
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		wg.Add(1)
		go func(idx int, batch []cask.RawEntry) {
			defer wg.Done()
			results[idx] = buildBatch(batch, installed, outdated, analytics, categories, catUnion)
		}(b, entries[start:end])
	}
	wg.Wait()

	// Merge in batch order so insertion order matches the source feed;
	// popularity ties below break on that order.
	snap := &cask.Snapshot{
		ByID: make(map[string]*cask.Package, len(entries)),
		Taps: make(map[string][]*cask.Package),
	}
	byCat := make(map[string][]*cask.Package)

	for _, res := range results {
		for _, p := range res.packages {
			if _, dup := snap.ByID[p.ID()]; dup {
				continue
			}
			snap.ByID[p.ID()] = p
			snap.All = append(snap.All, p)
		}
		for _, p := range res.installed {
			if snap.ByID[p.ID()] == p {
				snap.Installed = append(snap.Installed, p)
			}
		}
		for _, p := range res.outdated {
			if snap.ByID[p.ID()] == p {
				snap.Outdated = append(snap.Outdated, p)
			}
		}
		for catID, pkgs := range res.byCat {
			for _, p := range pkgs {
				if snap.ByID[p.ID()] == p {
					byCat[catID] = append(byCat[catID], p)
				}
			}
		}
		for tap, pkgs := range res.byTap {
			for _, p := range pkgs {
				if snap.ByID[p.ID()] == p {
					snap.Taps[tap] = append(snap.Taps[tap], p)
				}
			}
		}
	}

	for _, pkgs := range snap.Taps {
		sortByPopularity(pkgs)
	}

	// Category lists follow manifest order; members sort by popularity.
	for _, cat := range categories {
		pkgs := byCat[cat.ID]
		sortByPopularity(pkgs)
		snap.Categories = append(snap.Categories, cask.CategoryList{
			Category: cat,
			Casks:    pkgs,
			Chunks:   cask.ChunkPairs(pkgs),
		})
	}

	return snap, nil
}

// buildBatch constructs packages and partial indices for one slice of raw
// entries.
func buildBatch(batch []cask.RawEntry, installed, outdated map[string]struct{},
	analytics cask.Analytics, categories []cask.Category, catUnion map[string]struct{}) batchResult {

	res := batchResult{
		packages: make([]*cask.Package, 0, len(batch)),
		byCat:    make(map[string][]*cask.Package),
		byTap:    make(map[string][]*cask.Package),
	}

	for _, entry := range batch {
		if !entry.Valid() {
			continue
		}
		info := cask.NewPackageInfo(entry)

		isInstalled := contains(installed, info.Token) || contains(installed, info.FullToken)
		isOutdated := contains(outdated, info.Token) || contains(outdated, info.FullToken)
		p := cask.NewPackage(info, isInstalled, isOutdated, analytics.Count(info.Token))

		res.packages = append(res.packages, p)
		if isInstalled {
			res.installed = append(res.installed, p)
		}
		if isOutdated {
			res.outdated = append(res.outdated, p)
		}

		if _, hit := catUnion[info.Token]; hit {
			for _, cat := range categories {
				for _, id := range cat.CaskIDs {
					if id == info.Token {
						res.byCat[cat.ID] = append(res.byCat[cat.ID], p)
						break
					}
				}
			}
		}

		if info.Tap != "" && info.Tap != cask.DefaultTap {
			res.byTap[info.Tap] = append(res.byTap[info.Tap], p)
		}
	}

	return res
}

func contains(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

// sortByPopularity orders packages by download count descending. The sort is
// stable so ties keep their source-feed order.
func sortByPopularity(pkgs []*cask.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].DownloadCount() > pkgs[j].DownloadCount()
	})
}
