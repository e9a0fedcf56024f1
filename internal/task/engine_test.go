package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/caskctl/internal/brew"
	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/config"
	"github.com/blackwell-systems/caskctl/internal/execx"
	"github.com/blackwell-systems/caskctl/internal/store"
)

// engineManager scripts brew.Manager behavior for engine tests. Install can
// be made to block on a channel so at-most-one and cancellation paths are
// reachable deterministically.
type engineManager struct {
	mu           sync.Mutex
	installCalls int
	installBlock chan struct{} // nil = return immediately
	installLines []string
	installErr   error
	uninstallErr error
	upgradeErr   error
	versionErr   error
	invalidated  []string
}

func (m *engineManager) Version(ctx context.Context) (string, error) {
	return "Homebrew 4.0", m.versionErr
}

func (m *engineManager) InstalledIDs(ctx context.Context) (map[string]struct{}, error) {
	return nil, nil
}

func (m *engineManager) OutdatedIDs(ctx context.Context, greedy bool) (map[string]struct{}, error) {
	return nil, nil
}

func (m *engineManager) Install(ctx context.Context, id string, force bool) (*execx.Stream, error) {
	m.mu.Lock()
	m.installCalls++
	block := m.installBlock
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return execx.NewStaticStream(m.installLines, m.installErr), nil
}

func (m *engineManager) Uninstall(ctx context.Context, id string, zap bool) (string, error) {
	return "", m.uninstallErr
}

func (m *engineManager) Upgrade(ctx context.Context, id string) (string, error) {
	return "", m.upgradeErr
}

func (m *engineManager) Info(ctx context.Context, id string) (*brew.Detail, error) {
	return nil, errors.New("not implemented")
}

func (m *engineManager) InvalidateInfo(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, id)
}

func (m *engineManager) installCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installCalls
}

func newTestEngine(mgr *engineManager) *Engine {
	e := NewEngine(config.Default(), mgr, nil, nil, hclog.NewNullLogger())
	e.hold = time.Millisecond
	return e
}

func testPackage(id string) *cask.Package {
	info := cask.PackageInfo{Token: id, FullToken: id, Tap: cask.DefaultTap, Name: id}
	return cask.NewPackage(info, false, false, 0)
}

func TestRunInstallSuccess(t *testing.T) {
	mgr := &engineManager{installLines: []string{
		"==> Downloading https://example.com/app.dmg",
		"#### 42.0%",
		"==> Installing Cask firefox",
		"firefox was successfully installed!",
	}}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	if !pkg.Installed() {
		t.Error("package not marked installed")
	}
	if got := pkg.State().Phase; got != cask.PhaseIdle {
		t.Errorf("final phase = %v; want Idle after the success hold", got)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d; want 0", e.ActiveCount())
	}
	if len(mgr.invalidated) != 1 || mgr.invalidated[0] != "firefox" {
		t.Errorf("info cache invalidations = %v; want [firefox]", mgr.invalidated)
	}
}

// TestRunAtMostOnePerPackage issues a second request while the first is still
// running and checks it observes the existing handle instead of spawning a
// second process.
func TestRunAtMostOnePerPackage(t *testing.T) {
	block := make(chan struct{})
	mgr := &engineManager{
		installBlock: block,
		installLines: []string{"firefox was successfully installed!"},
	}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	h1, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}

	// Wait until the operation is actually registered and blocking.
	for e.ActiveCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	h2, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if h2 != h1 {
		t.Error("second Run() should return the existing handle")
	}

	close(block)
	h1.Wait()

	if got := mgr.installCount(); got != 1 {
		t.Errorf("install invoked %d times; want 1", got)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d; want 0 after completion", e.ActiveCount())
	}
}

func TestRunInstallFailureClassified(t *testing.T) {
	mgr := &engineManager{
		installLines: []string{
			"==> Installing Cask firefox",
			"Error: It seems there is already an App at '/Applications/Firefox.app'.",
		},
		installErr: &execx.ExitError{Code: 1},
	}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	state := pkg.State()
	if state.Phase != cask.PhaseFailed {
		t.Fatalf("phase = %v; want Failed", state.Phase)
	}
	if !strings.Contains(state.Message, "already installed") {
		t.Errorf("message = %q; want the already-installed classification", state.Message)
	}
	if !strings.Contains(state.Output, "already an App") {
		t.Errorf("captured output missing, got %q", state.Output)
	}
	if pkg.Installed() {
		t.Error("failed install must not mark the package installed")
	}

	// Failed persists until dismissed.
	time.Sleep(5 * time.Millisecond)
	if pkg.State().Phase != cask.PhaseFailed {
		t.Error("Failed state should persist until dismissed")
	}
	e.Dismiss(pkg)
	if pkg.State().Phase != cask.PhaseIdle {
		t.Error("Dismiss() should settle the package to Idle")
	}
}

func TestRunUninstall(t *testing.T) {
	mgr := &engineManager{}
	e := newTestEngine(mgr)

	pkg := cask.NewPackage(cask.PackageInfo{Token: "slack", FullToken: "slack", Name: "Slack"}, true, true, 0)

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindUninstall, Zap: true})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	if pkg.Installed() {
		t.Error("package still marked installed")
	}
	if pkg.Outdated() {
		t.Error("uninstall should clear the outdated flag")
	}
}

func TestRunUpdate(t *testing.T) {
	mgr := &engineManager{}
	e := newTestEngine(mgr)

	pkg := cask.NewPackage(cask.PackageInfo{Token: "slack", FullToken: "slack", Name: "Slack"}, true, true, 0)

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindUpdate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	if pkg.Outdated() {
		t.Error("update should clear the outdated flag")
	}
	if !pkg.Installed() {
		t.Error("update must keep the package installed")
	}
}

func TestRunVersionPreflight(t *testing.T) {
	mgr := &engineManager{versionErr: brew.ErrConfigInvalid}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	if _, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall}); !errors.Is(err, brew.ErrConfigInvalid) {
		t.Fatalf("Run() = %v; want ErrConfigInvalid", err)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("rejected operation must not register, ActiveCount() = %d", e.ActiveCount())
	}
	if pkg.State().Phase != cask.PhaseIdle {
		t.Errorf("rejected operation must not mutate state, phase = %v", pkg.State().Phase)
	}
}

func TestRunCancelSettlesIdle(t *testing.T) {
	mgr := &engineManager{installBlock: make(chan struct{})}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	for e.ActiveCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	h.Cancel()
	h.Wait()

	if pkg.State().Phase != cask.PhaseIdle {
		t.Errorf("phase after cancel = %v; want Idle", pkg.State().Phase)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d; want 0 after cancel", e.ActiveCount())
	}
}

func TestRunReinstall(t *testing.T) {
	mgr := &engineManager{installLines: []string{"firefox was successfully installed!"}}
	e := newTestEngine(mgr)

	// An outdated cask: the reinstall lands the latest version.
	pkg := cask.NewPackage(cask.PackageInfo{Token: "firefox", FullToken: "firefox", Name: "Firefox"}, true, true, 0)

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindReinstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	if !pkg.Installed() {
		t.Error("reinstall should leave the package installed")
	}
	if pkg.Outdated() {
		t.Error("reinstall should clear the outdated flag")
	}
	if got := mgr.installCount(); got != 1 {
		t.Errorf("install invoked %d times; want 1", got)
	}
}

// recordedRunner is an execx.Runner capturing every spawned command; it
// answers version checks and streams a canned successful install.
type recordedRunner struct {
	mu       sync.Mutex
	commands []execx.Command
}

func (r *recordedRunner) Run(ctx context.Context, cmd execx.Command) (string, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	return "Homebrew 4.2.0", nil
}

func (r *recordedRunner) Stream(ctx context.Context, cmd execx.Command) (*execx.Stream, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	return execx.NewStaticStream([]string{"gettext was successfully installed!"}, nil), nil
}

func writeAskpassHelper(t *testing.T) (path, sum string) {
	t.Helper()
	content := []byte("#!/bin/sh\nosascript prompt\n")
	path = filepath.Join(t.TempDir(), "askpass.sh")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("write helper: %v", err)
	}
	h := sha256.Sum256(content)
	return path, hex.EncodeToString(h[:])
}

// TestPrivilegedPromptsRouteThroughHelper runs a full install through a real
// Homebrew manager and checks every spawned command carries the verified
// askpass helper in its environment.
func TestPrivilegedPromptsRouteThroughHelper(t *testing.T) {
	helper, sum := writeAskpassHelper(t)

	cfg := config.Default()
	cfg.AskpassPath = helper
	cfg.AskpassSHA256 = sum

	runner := &recordedRunner{}
	mgr := brew.New(cfg, runner, hclog.NewNullLogger())

	e := NewEngine(cfg, mgr, nil, nil, hclog.NewNullLogger())
	e.hold = time.Millisecond

	pkg := testPackage("gettext")
	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	if len(runner.commands) < 2 {
		t.Fatalf("spawned %d commands; want at least version check + install", len(runner.commands))
	}
	want := "SUDO_ASKPASS=" + helper
	for _, cmd := range runner.commands {
		found := false
		for _, kv := range cmd.Env {
			if kv == want {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q missing %s, env = %v", cmd.String(), want, cmd.Env)
		}
	}
}

func TestTamperedHelperAbortsOperation(t *testing.T) {
	helper, _ := writeAskpassHelper(t)

	cfg := config.Default()
	cfg.AskpassPath = helper
	cfg.AskpassSHA256 = "0000000000000000000000000000000000000000000000000000000000000000"

	runner := &recordedRunner{}
	e := NewEngine(cfg, brew.New(cfg, runner, hclog.NewNullLogger()), nil, nil, hclog.NewNullLogger())

	_, err := e.Run(context.Background(), testPackage("gettext"), Operation{Kind: KindInstall})
	if !errors.Is(err, execx.ErrHelperTampered) {
		t.Fatalf("Run() = %v; want ErrHelperTampered", err)
	}
	if e.ActiveCount() != 0 {
		t.Errorf("rejected operation must not register, ActiveCount() = %d", e.ActiveCount())
	}
}

func TestHistoryRecordsOutcomes(t *testing.T) {
	history, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New(:memory:) failed: %v", err)
	}
	defer history.Close()

	// Failure output well past the recorded tail size.
	long := strings.Repeat("x", 6*1024)
	mgr := &engineManager{
		installLines: []string{long, "Error: It seems there is already an App here"},
		installErr:   &execx.ExitError{Code: 1},
	}
	e := NewEngine(config.Default(), mgr, nil, history, hclog.NewNullLogger())
	e.hold = time.Millisecond

	failed := testPackage("firefox")
	h, err := e.Run(context.Background(), failed, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	mgr.installErr = nil
	mgr.installLines = []string{"slack was successfully installed!"}
	ok := testPackage("slack")
	h, err = e.Run(context.Background(), ok, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	h.Wait()

	evs, err := history.PackageEvents("firefox", 10)
	if err != nil {
		t.Fatalf("PackageEvents(firefox) failed: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("firefox events = %d; want 1", len(evs))
	}
	if evs[0].Success || evs[0].Operation != "install" {
		t.Errorf("failure event = %+v", evs[0])
	}
	if len(evs[0].Output) != failureOutputTail {
		t.Errorf("failure output length = %d; want tail of %d", len(evs[0].Output), failureOutputTail)
	}
	if !strings.HasSuffix(evs[0].Output, "already an App here\n") {
		t.Errorf("recorded tail lost the end of the output: ...%q", evs[0].Output[len(evs[0].Output)-40:])
	}

	evs, err = history.PackageEvents("slack", 10)
	if err != nil {
		t.Fatalf("PackageEvents(slack) failed: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("slack events = %d; want 1", len(evs))
	}
	if !evs[0].Success || evs[0].Output != "" {
		t.Errorf("success event = %+v; want success with empty output", evs[0])
	}
	if evs[0].ID == "" || evs[0].Duration < 0 {
		t.Errorf("event metadata not recorded: %+v", evs[0])
	}
}

func TestInstallAllIndependent(t *testing.T) {
	mgr := &engineManager{installErr: &execx.ExitError{Code: 1}}
	e := newTestEngine(mgr)

	pkgs := []*cask.Package{testPackage("a"), testPackage("b"), testPackage("c")}
	handles := e.InstallAll(context.Background(), pkgs, false)
	if len(handles) != 3 {
		t.Fatalf("len(handles) = %d; want 3", len(handles))
	}
	for _, h := range handles {
		h.Wait()
	}

	// Every install failed, every failure stands on its own.
	for _, pkg := range pkgs {
		if pkg.State().Phase != cask.PhaseFailed {
			t.Errorf("%s phase = %v; want Failed", pkg.ID(), pkg.State().Phase)
		}
	}
}

func TestActive(t *testing.T) {
	block := make(chan struct{})
	mgr := &engineManager{installBlock: block}
	e := newTestEngine(mgr)
	pkg := testPackage("firefox")

	if _, ok := e.Active("firefox"); ok {
		t.Fatal("no operation should be active yet")
	}

	h, err := e.Run(context.Background(), pkg, Operation{Kind: KindInstall})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	for e.ActiveCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	got, ok := e.Active("firefox")
	if !ok || got != h {
		t.Error("Active() should return the running handle")
	}

	h.Cancel()
	h.Wait()
	if _, ok := e.Active("firefox"); ok {
		t.Error("handle should be gone after completion")
	}
}
