package task

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/config"
	"github.com/blackwell-systems/caskctl/internal/execx"
	"github.com/blackwell-systems/caskctl/internal/notify"
	"github.com/blackwell-systems/caskctl/internal/store"
)

// successHold is how long a package shows Success before returning to Idle.
const successHold = 2 * time.Second

// failureOutputTail bounds the output stored in the history database; the
// full output stays on the package state for on-demand inspection.
const failureOutputTail = 4 * 1024

// Kind is the operation requested for a package.
type Kind int

const (
	KindInstall Kind = iota
	KindUninstall
	KindUpdate
	KindReinstall
)

func (k Kind) String() string {
	switch k {
	case KindInstall:
		return "install"
	case KindUninstall:
		return "uninstall"
	case KindUpdate:
		return "update"
	case KindReinstall:
		return "reinstall"
	default:
		return "unknown"
	}
}

// Operation describes one requested operation with its modifiers.
type Operation struct {
	Kind  Kind
	Force bool // install: overwrite an existing app
	Zap   bool // uninstall: also remove associated support files
}

// Engine runs package operations. All snapshot mutation after aggregation
// happens here, serialized per package by the registry.
type Engine struct {
	manager  brew.Manager
	registry *registry
	notifier notify.Notifier
	history  *store.Store // nil disables history recording
	logger   hclog.Logger

	askpassPath string
	askpassSHA  string

	hold time.Duration
}

// NewEngine wires an Engine. history may be nil.
func NewEngine(cfg config.Config, manager brew.Manager, notifier notify.Notifier,
	history *store.Store, logger hclog.Logger) *Engine {

	if logger == nil {
		logger = hclog.Default()
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Engine{
		manager:     manager,
		registry:    newRegistry(),
		notifier:    notifier,
		history:     history,
		logger:      logger.Named("task"),
		askpassPath: cfg.AskpassPath,
		askpassSHA:  cfg.AskpassSHA256,
		hold:        successHold,
	}
}

// Run starts op for pkg. If an operation is already active for the package
// the existing handle is returned and no new process starts.
//
// Before any state mutation the configured package manager location is
// validated with a version check, and the askpass helper (when configured)
// is checksum-verified; either failing aborts the operation with a
// configuration error.
func (e *Engine) Run(ctx context.Context, pkg *cask.Package, op Operation) (*Handle, error) {
	if _, err := e.manager.Version(ctx); err != nil {
		return nil, err
	}
	if e.askpassPath != "" {
		if err := execx.VerifyHelper(e.askpassPath, e.askpassSHA); err != nil {
			return nil, err
		}
	}

	opCtx, cancel := context.WithCancel(ctx)
	h, started := e.registry.begin(pkg.ID(), op, cancel)
	if !started {
		cancel()
		return h, nil
	}

	go e.run(opCtx, h, pkg, op)
	return h, nil
}

// Active returns the running handle for a package id, if any.
func (e *Engine) Active(pkgID string) (*Handle, bool) {
	return e.registry.get(pkgID)
}

// ActiveCount returns the number of in-flight operations.
func (e *Engine) ActiveCount() int {
	return e.registry.active()
}

// Dismiss acknowledges a failure, returning the package to Idle. Failed
// states persist until dismissed; nothing else clears them.
func (e *Engine) Dismiss(pkg *cask.Package) {
	if pkg.State().Phase == cask.PhaseFailed {
		pkg.SetState(cask.ProgressState{Phase: cask.PhaseIdle})
	}
}

// InstallAll fans out independent installs, one per package. Mutual
// exclusion stays per-package in the registry; there is no global
// coordination and one failure never aborts the others.
func (e *Engine) InstallAll(ctx context.Context, pkgs []*cask.Package, force bool) []*Handle {
	return e.fanOut(ctx, pkgs, Operation{Kind: KindInstall, Force: force})
}

// UpdateAll fans out independent updates for every outdated package.
func (e *Engine) UpdateAll(ctx context.Context, pkgs []*cask.Package) []*Handle {
	return e.fanOut(ctx, pkgs, Operation{Kind: KindUpdate})
}

func (e *Engine) fanOut(ctx context.Context, pkgs []*cask.Package, op Operation) []*Handle {
	handles := make([]*Handle, 0, len(pkgs))
	for _, pkg := range pkgs {
		h, err := e.Run(ctx, pkg, op)
		if err != nil {
			e.logger.Error("operation rejected", "package", pkg.ID(), "op", op.Kind, "error", err)
			continue
		}
		handles = append(handles, h)
	}
	return handles
}

// run executes the operation body. The registry entry is removed on every
// exit path so no stuck active task can leak.
func (e *Engine) run(ctx context.Context, h *Handle, pkg *cask.Package, op Operation) {
	defer e.registry.end(h)

	pkg.SetState(cask.ProgressState{Phase: cask.PhaseBusy})
	start := time.Now()

	var output string
	var err error
	switch op.Kind {
	case KindInstall:
		output, err = e.streamInstall(ctx, pkg, op.Force)
	case KindUninstall:
		output, err = e.manager.Uninstall(ctx, pkg.ID(), op.Zap)
	case KindUpdate:
		output, err = e.manager.Upgrade(ctx, pkg.ID())
	case KindReinstall:
		output, err = e.reinstall(ctx, pkg, op)
	}

	if ctx.Err() != nil {
		// Cancelled: settle to Idle rather than leaving the package
		// stuck busy. No notification, no history entry.
		if pkg.State().Active() {
			pkg.SetState(cask.ProgressState{Phase: cask.PhaseIdle})
		}
		e.logger.Debug("operation cancelled", "package", pkg.ID(), "op", op.Kind)
		return
	}

	if err != nil {
		msg := classifyFailure(pkg.ID(), output)
		pkg.SetState(cask.ProgressState{Phase: cask.PhaseFailed, Output: output, Message: msg})
		e.notifier.Alert("Failed to "+op.Kind.String()+" "+pkg.Info.Name, msg)
		e.record(h, op, false, output, time.Since(start))
		return
	}

	e.applySuccess(pkg, op)
	e.notifier.Notify(pkg.Info.Name+" "+op.Kind.String()+" complete", "")
	e.record(h, op, true, "", time.Since(start))

	pkg.SetState(cask.ProgressState{Phase: cask.PhaseSuccess})
	select {
	case <-time.After(e.hold):
	case <-ctx.Done():
	}
	pkg.SetState(cask.ProgressState{Phase: cask.PhaseIdle})
}

// streamInstall drives the install stream through the progress parser line
// by line. The accumulated output is retained for failure reporting.
func (e *Engine) streamInstall(ctx context.Context, pkg *cask.Package, force bool) (string, error) {
	stream, err := e.manager.Install(ctx, pkg.ID(), force)
	if err != nil {
		return "", err
	}

	state := pkg.State()
	for line := range stream.Lines() {
		next := ParseLine(state, line)
		if next != state {
			pkg.SetState(next)
			state = next
		}
	}
	return stream.Output(), stream.Err()
}

// reinstall removes the cask then installs it again. Both steps run to
// completion; progress reports a single terminal transition.
func (e *Engine) reinstall(ctx context.Context, pkg *cask.Package, op Operation) (string, error) {
	out, err := e.manager.Uninstall(ctx, pkg.ID(), false)
	if err != nil {
		return out, err
	}

	stream, err := e.manager.Install(ctx, pkg.ID(), op.Force)
	if err != nil {
		return out, err
	}
	for range stream.Lines() {
	}
	return out + stream.Output(), stream.Err()
}

// applySuccess updates the package flags after a successful operation.
func (e *Engine) applySuccess(pkg *cask.Package, op Operation) {
	switch op.Kind {
	case KindInstall:
		pkg.SetInstalled(true)
	case KindReinstall:
		// A reinstall lands the latest version, so pending updates clear.
		pkg.SetInstalled(true)
		pkg.SetOutdated(false)
	case KindUninstall:
		pkg.SetInstalled(false)
		pkg.SetOutdated(false)
	case KindUpdate:
		pkg.SetOutdated(false)
	}

	// Installed state changed; drop any cached detail lookup.
	if inv, ok := e.manager.(interface{ InvalidateInfo(string) }); ok {
		inv.InvalidateInfo(pkg.ID())
	}
}

func (e *Engine) record(h *Handle, op Operation, success bool, output string, d time.Duration) {
	if e.history == nil {
		return
	}
	if len(output) > failureOutputTail {
		output = output[len(output)-failureOutputTail:]
	}
	ev := store.Event{
		ID:        h.ID,
		PackageID: h.PackageID,
		Operation: op.Kind.String(),
		Success:   success,
		Duration:  d,
		Output:    output,
		CreatedAt: time.Now(),
	}
	if err := e.history.RecordEvent(ev); err != nil {
		e.logger.Warn("history record failed", "package", h.PackageID, "error", err)
	}
}
