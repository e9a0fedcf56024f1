// Package notify defines the fire-and-forget notification boundary consumed
// by the task engine. UI front-ends provide their own implementations; the
// default writes through the logger.
package notify

import "github.com/hashicorp/go-hclog"

// Notifier receives operation outcomes. Implementations must not block.
type Notifier interface {
	// Notify reports a routine outcome (e.g. an install finished).
	Notify(title, message string)

	// Alert reports a failure needing user attention.
	Alert(title, message string)
}

// LogNotifier is the headless Notifier used by the CLI.
type LogNotifier struct {
	logger hclog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger hclog.Logger) *LogNotifier {
	if logger == nil {
		logger = hclog.Default()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(title, message string) {
	n.logger.Info(title, "detail", message)
}

func (n *LogNotifier) Alert(title, message string) {
	n.logger.Error(title, "detail", message)
}

// Discard drops all notifications. Useful in tests.
type Discard struct{}

func (Discard) Notify(string, string) {}
func (Discard) Alert(string, string)  {}
