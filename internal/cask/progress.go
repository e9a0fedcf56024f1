package cask

// Phase enumerates the lifecycle phases of a per-package operation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBusy
	PhaseDownloading
	PhaseSuccess
	PhaseFailed
)

// String returns the phase name.
func (ph Phase) String() string {
	switch ph {
	case PhaseIdle:
		return "idle"
	case PhaseBusy:
		return "busy"
	case PhaseDownloading:
		return "downloading"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressState is the progress sum type for one package. Exactly one state
// is active per package at a time.
//
//	Idle                     no operation running
//	Busy{Label}              operation running, optional stage label
//	Downloading{Percent}     download in flight, Percent in [0, 1]
//	Success                  terminal, auto-cleared after a short hold
//	Failed{Output, Message}  terminal, held until explicitly dismissed
type ProgressState struct {
	Phase   Phase
	Label   string  // PhaseBusy stage label ("", "Installing")
	Percent float64 // PhaseDownloading completion, 0.0 to 1.0
	Output  string  // PhaseFailed accumulated process output
	Message string  // PhaseFailed classified human-readable message
}

// Idle reports whether no operation is in flight or pending acknowledgement.
func (s ProgressState) Idle() bool { return s.Phase == PhaseIdle }

// Active reports whether an operation is currently running.
func (s ProgressState) Active() bool {
	return s.Phase == PhaseBusy || s.Phase == PhaseDownloading
}
