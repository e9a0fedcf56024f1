// Package task executes per-cask lifecycle operations, deriving progress
// from streamed process output and tracking the set of active operations.
package task

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/blackwell-systems/caskctl/internal/cask"
)

// progressRE matches brew/curl download progress bars, e.g. "#### 42.0%".
var progressRE = regexp.MustCompile(`#+\s+(\d+(?:\.\d+)?)%`)

// ParseLine is the progress parser: a pure function of (state, line). Fed
// the same line twice it yields the same transition twice. Lines only drive
// transitions while an operation is active; terminal and idle states pass
// through untouched.
func ParseLine(state cask.ProgressState, line string) cask.ProgressState {
	if !state.Active() {
		return state
	}

	switch {
	case strings.Contains(line, "successfully installed"):
		return cask.ProgressState{Phase: cask.PhaseSuccess}

	case strings.Contains(line, "Installing"),
		strings.Contains(line, "Moving"),
		strings.Contains(line, "Linking"):
		return cask.ProgressState{Phase: cask.PhaseBusy, Label: "Installing"}

	case progressRE.MatchString(line):
		m := progressRE.FindStringSubmatch(line)
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return state
		}
		pct /= 100
		if pct < 0 {
			pct = 0
		} else if pct > 1 {
			pct = 1
		}
		return cask.ProgressState{Phase: cask.PhaseDownloading, Percent: pct}

	case strings.Contains(line, "Downloading"):
		return cask.ProgressState{Phase: cask.PhaseBusy}

	default:
		return state
	}
}
