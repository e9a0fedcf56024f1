// Package cask defines the data model shared across the catalog pipeline:
// immutable package metadata, the mutable per-session entity wrapping it, and
// the snapshot/index types produced by an aggregation cycle.
package cask

import "sync"

// PackageInfo holds the immutable metadata for a single cask, parsed from the
// remote catalog. Identity is FullToken. A PackageInfo is created once per
// aggregation cycle and never mutated afterwards.
type PackageInfo struct {
	Token        string
	FullToken    string
	Tap          string // e.g. "homebrew/cask", "user/tap"
	Name         string // display name (first entry of the API name array)
	Description  string
	Homepage     string
	Caveats      string
	PkgInstaller bool // true when the artifact is a bundled .pkg installer

	Deprecated        bool
	DeprecationDate   string
	DeprecationReason string
	Replacement       string
	Disabled          bool
	DisableDate       string
	DisableReason     string
}

// Package is the mutable per-session entity for one cask. The embedded Info
// never changes; the installed/outdated flags, download count and progress
// state are mutated under the entity's own lock (builder at creation time,
// task engine afterwards).
//
// A Package is never destroyed during a session: a new aggregation cycle
// replaces the whole snapshot instead of mutating the old one.
type Package struct {
	Info PackageInfo

	mu            sync.Mutex
	installed     bool
	outdated      bool
	downloadCount int
	state         ProgressState
}

// NewPackage creates a Package with the given initial flags.
func NewPackage(info PackageInfo, installed, outdated bool, downloads int) *Package {
	return &Package{
		Info:          info,
		installed:     installed,
		outdated:      outdated,
		downloadCount: downloads,
		state:         ProgressState{Phase: PhaseIdle},
	}
}

// ID returns the package identity (the full token).
func (p *Package) ID() string { return p.Info.FullToken }

func (p *Package) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

func (p *Package) Outdated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outdated
}

// DownloadCount returns the 365-day install count from analytics, 0 when the
// token was absent from the feed.
func (p *Package) DownloadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloadCount
}

// SetInstalled updates the installed flag. Called by the task engine after a
// successful install/uninstall.
func (p *Package) SetInstalled(installed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installed = installed
}

// SetOutdated updates the outdated flag. Called by the task engine after a
// successful upgrade and by RefreshOutdated.
func (p *Package) SetOutdated(outdated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outdated = outdated
}

// State returns the current progress state.
func (p *Package) State() ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState replaces the progress state. Only the task engine (or the user
// dismissing a failure) transitions state; at most one operation runs per
// package so transitions are strictly ordered.
func (p *Package) SetState(s ProgressState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// Category is a static grouping of casks loaded from the bundled manifest.
type Category struct {
	ID      string   `json:"id"`
	Icon    string   `json:"icon"`
	CaskIDs []string `json:"casks"`
}
