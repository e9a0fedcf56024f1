package brew

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/caskctl/internal/execx"
)

// cltRunner simulates xcode-select: the tools "appear" after appearAfter
// probe calls.
type cltRunner struct {
	mu          sync.Mutex
	probes      int
	appearAfter int
	installErr  error
}

func (r *cltRunner) Run(ctx context.Context, cmd execx.Command) (string, error) {
	if len(cmd.Args) > 0 && cmd.Args[0] == "--install" {
		return "", r.installErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes++
	if r.probes > r.appearAfter {
		return "/Library/Developer/CommandLineTools\n", nil
	}
	return "", &execx.ExitError{Code: 2}
}

func (r *cltRunner) Stream(ctx context.Context, cmd execx.Command) (*execx.Stream, error) {
	return nil, errors.New("not implemented")
}

func TestHasCommandLineTools(t *testing.T) {
	present := &cltRunner{appearAfter: 0}
	if !HasCommandLineTools(context.Background(), present) {
		t.Error("tools present but not detected")
	}

	absent := &cltRunner{appearAfter: 100}
	if HasCommandLineTools(context.Background(), absent) {
		t.Error("tools absent but detected")
	}
}

func TestInstallCommandLineToolsPollsUntilPresent(t *testing.T) {
	runner := &cltRunner{appearAfter: 2}

	err := installCommandLineTools(context.Background(), runner, time.Millisecond, 10)
	if err != nil {
		t.Fatalf("installCommandLineTools() failed: %v", err)
	}
}

func TestInstallCommandLineToolsTimesOut(t *testing.T) {
	runner := &cltRunner{appearAfter: 1000}

	err := installCommandLineTools(context.Background(), runner, time.Millisecond, 3)
	if !errors.Is(err, ErrCLTTimeout) {
		t.Fatalf("error = %v; want ErrCLTTimeout", err)
	}
}

func TestInstallCommandLineToolsCancelled(t *testing.T) {
	runner := &cltRunner{appearAfter: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := installCommandLineTools(ctx, runner, time.Hour, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v; want context.Canceled", err)
	}
}

func TestInstallCommandLineToolsPromptFails(t *testing.T) {
	runner := &cltRunner{installErr: errors.New("prompt refused")}

	err := installCommandLineTools(context.Background(), runner, time.Millisecond, 3)
	if err == nil || !strings.Contains(err.Error(), "xcode-select --install") {
		t.Fatalf("error = %v; want the install trigger failure", err)
	}
}
