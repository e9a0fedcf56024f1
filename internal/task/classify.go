package task

import "strings"

// Known failure signatures in brew output, checked against the accumulated
// output to produce a more actionable message than the generic one.
const (
	sigAlreadyInstalled = "It seems there is already an App"
	sigHostUnreachable  = "Could not resolve host"
	sigConnectFailed    = "Failed to connect"
)

// classifyFailure maps raw process output to a user-facing message.
func classifyFailure(id, output string) string {
	switch {
	case strings.Contains(output, sigAlreadyInstalled):
		return id + " is already installed. Use force install to overwrite the existing copy."
	case strings.Contains(output, sigHostUnreachable),
		strings.Contains(output, sigConnectFailed):
		return "Couldn't reach the download host. Check your network connection and try again."
	default:
		return "The operation for " + id + " failed. Inspect the captured output for details."
	}
}
