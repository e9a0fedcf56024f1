package brew

import (
	"context"
	"encoding/json"
	"fmt"
)

// Detail is the subset of `brew info --json=v2 --cask` the detail view
// consumes.
type Detail struct {
	Token       string   `json:"token"`
	FullToken   string   `json:"full_token"`
	Tap         string   `json:"tap"`
	Version     string   `json:"version"`
	Installed   *string  `json:"installed"` // nil when not installed
	AutoUpdates bool     `json:"auto_updates"`
	Name        []string `json:"name"`
	Desc        string   `json:"desc"`
	Homepage    string   `json:"homepage"`
}

type infoOutput struct {
	Casks []Detail `json:"casks"`
}

// Info looks up detailed metadata for one cask, serving repeats from an LRU
// cache.
func (h *Homebrew) Info(ctx context.Context, id string) (*Detail, error) {
	if d, ok := h.details.Get(id); ok {
		return d, nil
	}

	out, err := h.runner.Run(ctx, h.command(false, "info", "--json=v2", "--cask", id))
	if err != nil {
		return nil, fmt.Errorf("brew info %s: %w", id, err)
	}

	var parsed infoOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("parse brew info output for %s: %w", id, err)
	}
	if len(parsed.Casks) == 0 {
		return nil, fmt.Errorf("cask %s not found", id)
	}

	d := &parsed.Casks[0]
	h.details.Add(id, d)
	return d, nil
}

// InvalidateInfo drops the cached detail for id, forcing the next Info call
// back to the CLI. Called after operations that change installed state.
func (h *Homebrew) InvalidateInfo(id string) {
	h.details.Remove(id)
}
