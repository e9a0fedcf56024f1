package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/output"
	"github.com/blackwell-systems/caskctl/internal/task"
)

// runOps resolves ids against a fresh snapshot, fans the operation out, and
// tracks progress until every handle finishes. Per-package failures don't
// stop the others; the command fails if any package ended up Failed.
func runOps(ctx context.Context, e *env, ids []string, op task.Operation) error {
	snap, err := e.coordinator.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	pkgs := make([]*cask.Package, 0, len(ids))
	for _, id := range ids {
		pkg := snap.Get(id)
		if pkg == nil {
			return fmt.Errorf("unknown cask %q", id)
		}
		pkgs = append(pkgs, pkg)
	}

	return runOpsOn(ctx, e, pkgs, op)
}

// runOpsOn fans op out over already-resolved packages.
func runOpsOn(ctx context.Context, e *env, pkgs []*cask.Package, op task.Operation) error {
	printer := output.NewOperationPrinter()

	var wg sync.WaitGroup
	failures := 0
	var mu sync.Mutex

	for _, pkg := range pkgs {
		h, err := e.engine.Run(ctx, pkg, op)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(pkg *cask.Package, h *task.Handle) {
			defer wg.Done()
			printer.Track(pkg, h.Done())
			if st := pkg.State(); st.Phase == cask.PhaseFailed {
				mu.Lock()
				failures++
				mu.Unlock()
				fmt.Printf("\n%s failed: %s\n", pkg.ID(), st.Message)
				if verbose {
					fmt.Println(st.Output)
				}
				e.engine.Dismiss(pkg)
			}
		}(pkg, h)
	}
	wg.Wait()

	if failures > 0 {
		return fmt.Errorf("%d of %d operations failed (rerun with --verbose to see process output)", failures, len(pkgs))
	}
	return nil
}
