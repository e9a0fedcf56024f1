package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/caskctl/internal/cask"
)

// writerIsTTY returns true if the writer exposes an Fd() that is a terminal.
// Falls back to false for plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// StateLine formats one package's progress state for display.
func StateLine(pkg *cask.Package) string {
	st := pkg.State()
	switch st.Phase {
	case cask.PhaseBusy:
		if st.Label != "" {
			return fmt.Sprintf("%s: %s...", pkg.ID(), st.Label)
		}
		return fmt.Sprintf("%s: working...", pkg.ID())
	case cask.PhaseDownloading:
		return fmt.Sprintf("%s: downloading %3.0f%%", pkg.ID(), st.Percent*100)
	case cask.PhaseSuccess:
		return fmt.Sprintf("%s: %s", pkg.ID(), colorize(colorGreen, "done"))
	case cask.PhaseFailed:
		return fmt.Sprintf("%s: %s: %s", pkg.ID(), colorize(colorRed, "failed"), st.Message)
	default:
		return pkg.ID()
	}
}

// OperationPrinter renders the live state of in-flight packages, redrawing
// in place on a TTY and emitting one line per transition otherwise.
type OperationPrinter struct {
	mu     sync.Mutex
	writer io.Writer
	last   map[string]string
}

// NewOperationPrinter creates a printer writing to stdout.
func NewOperationPrinter() *OperationPrinter {
	return &OperationPrinter{writer: os.Stdout, last: make(map[string]string)}
}

// SetWriter sets the output writer (useful for testing).
func (p *OperationPrinter) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Track polls the package state until done closes, printing transitions.
func (p *OperationPrinter) Track(pkg *cask.Package, done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.print(pkg)
		case <-done:
			p.print(pkg)
			p.finishLine()
			return
		}
	}
}

func (p *OperationPrinter) print(pkg *cask.Package) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := StateLine(pkg)
	if p.last[pkg.ID()] == line {
		return
	}
	p.last[pkg.ID()] = line

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s%s", line, strings.Repeat(" ", pad(len(line))))
	} else {
		fmt.Fprintln(p.writer, line)
	}
}

func (p *OperationPrinter) finishLine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if writerIsTTY(p.writer) {
		fmt.Fprintln(p.writer)
	}
}

// pad keeps short redraws from leaving stale characters behind.
func pad(lineLen int) int {
	const width = 100
	if lineLen >= width {
		return 0
	}
	return width - lineLen
}
