// Package execx runs external commands for the catalog pipeline and the task
// engine, either to completion or as a line-delimited stream. Some tools
// suppress progress output when not attached to a terminal, so commands can
// opt into a pseudo-terminal.
package execx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/hashicorp/go-hclog"
)

// maxCapturedOutput caps the output retained for error reporting; the
// external tool can be arbitrarily chatty.
const maxCapturedOutput = 4 * 1024 * 1024

// Command describes one external invocation.
type Command struct {
	Path string
	Args []string
	Env  []string // appended to the inherited environment
	PTY  bool     // attach a pseudo-terminal so the tool emits progress output
}

func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// ExitError reports a non-zero exit, carrying the code and the captured
// output for diagnosis.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// Runner executes external commands. The concrete implementation is
// ExecRunner; tests substitute fakes.
type Runner interface {
	// Run executes the command to completion and returns its combined
	// output. A non-zero exit returns the output alongside an *ExitError.
	Run(ctx context.Context, cmd Command) (string, error)

	// Stream executes the command and yields its combined output line by
	// line. The returned Stream's Err reports a non-zero exit as an
	// *ExitError once the line channel is closed.
	Stream(ctx context.Context, cmd Command) (*Stream, error)
}

// ExecRunner is the os/exec-backed Runner.
type ExecRunner struct {
	logger hclog.Logger
}

// NewRunner creates an ExecRunner. A nil logger defaults to hclog.Default.
func NewRunner(logger hclog.Logger) *ExecRunner {
	if logger == nil {
		logger = hclog.Default()
	}
	return &ExecRunner{logger: logger.Named("execx")}
}

// Run executes cmd to completion, returning combined stdout+stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	r.logger.Debug("run", "cmd", cmd.String())

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)

	if cmd.PTY {
		return r.runPTY(ctx, c)
	}

	out, err := c.CombinedOutput()
	output := truncate(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, &ExitError{Code: exitErr.ExitCode(), Output: output}
		}
		return output, fmt.Errorf("exec %s: %w", cmd.Path, err)
	}
	return output, nil
}

// runPTY runs an already-built exec.Cmd attached to a pseudo-terminal and
// collects everything written to it.
func (r *ExecRunner) runPTY(ctx context.Context, c *exec.Cmd) (string, error) {
	f, err := pty.Start(c)
	if err != nil {
		return "", fmt.Errorf("start pty for %s: %w", c.Path, err)
	}
	defer f.Close()

	var buf strings.Builder
	// Reading from the master side returns EIO once the child closes the
	// slave; that is the normal EOF signal for a pty.
	_, _ = io.Copy(limitWriter{&buf}, f)

	output := buf.String()
	if err := c.Wait(); err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, &ExitError{Code: exitErr.ExitCode(), Output: output}
		}
		return output, fmt.Errorf("exec %s: %w", c.Path, err)
	}
	return output, nil
}

// Stream is a cancellable, lazily-produced sequence of output lines. Consume
// Lines until it closes, then check Err for the terminal result.
type Stream struct {
	lines chan string

	mu     sync.Mutex
	err    error
	output strings.Builder
}

// Lines returns the channel of output lines. It is closed when the process
// exits or the context is cancelled.
func (s *Stream) Lines() <-chan string { return s.lines }

// Err returns the terminal error, valid after Lines has closed. A non-zero
// exit is reported as *ExitError carrying the accumulated output.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Output returns everything emitted so far.
func (s *Stream) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

func (s *Stream) append(line string) {
	s.mu.Lock()
	if s.output.Len() < maxCapturedOutput {
		s.output.WriteString(line)
		s.output.WriteByte('\n')
	}
	s.mu.Unlock()
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.lines)
}

// NewStaticStream returns an already-finished Stream replaying the given
// lines and terminating with err. Manager implementations that synthesize
// output (and tests) build streams this way.
func NewStaticStream(lines []string, err error) *Stream {
	s := &Stream{lines: make(chan string, len(lines))}
	for _, line := range lines {
		s.append(line)
		s.lines <- line
	}
	s.finish(err)
	return s
}

// Stream starts cmd and pumps its combined output through the returned
// Stream. Cancelling ctx kills the process; the stream then terminates with
// the context error.
func (r *ExecRunner) Stream(ctx context.Context, cmd Command) (*Stream, error) {
	r.logger.Debug("stream", "cmd", cmd.String(), "pty", cmd.PTY)

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)

	var reader io.ReadCloser
	if cmd.PTY {
		f, err := pty.Start(c)
		if err != nil {
			return nil, fmt.Errorf("start pty for %s: %w", cmd.Path, err)
		}
		reader = f
	} else {
		stdout, err := c.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("pipe %s: %w", cmd.Path, err)
		}
		c.Stderr = c.Stdout // merge stderr into the stdout pipe
		if err := c.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
		}
		reader = stdout
	}

	s := &Stream{lines: make(chan string, 64)}
	go r.pump(ctx, c, cmd, reader, s)
	return s, nil
}

func (r *ExecRunner) pump(ctx context.Context, c *exec.Cmd, cmd Command, reader io.ReadCloser, s *Stream) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s.append(line)
		select {
		case s.lines <- line:
		case <-ctx.Done():
			// Consumer gone or cancelled; stop pumping. The process
			// is killed by CommandContext.
			reader.Close()
			_ = c.Wait()
			s.finish(ctx.Err())
			return
		}
	}
	reader.Close()

	err := c.Wait()
	switch {
	case ctx.Err() != nil:
		s.finish(ctx.Err())
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.finish(&ExitError{Code: exitErr.ExitCode(), Output: s.Output()})
		} else {
			s.finish(fmt.Errorf("exec %s: %w", cmd.Path, err))
		}
	default:
		s.finish(nil)
	}
}

// limitWriter drops writes past maxCapturedOutput instead of failing them.
type limitWriter struct {
	b *strings.Builder
}

func (w limitWriter) Write(p []byte) (int, error) {
	if w.b.Len() >= maxCapturedOutput {
		return len(p), nil
	}
	return w.b.Write(p)
}

func truncate(s string) string {
	if len(s) > maxCapturedOutput {
		return s[:maxCapturedOutput]
	}
	return s
}
