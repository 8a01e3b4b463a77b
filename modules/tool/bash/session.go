package bash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a single command.
	DefaultTimeout = 120 * time.Second

	defaultShell = "/bin/bash"
	pollInterval = 200 * time.Millisecond

	sentinelBefore = ",,,,bash-command-exit-"
	sentinelAfter  = "-banner,,,,"
)

// ErrNotStarted is returned when Run or Stop is called before Start.
var ErrNotStarted = errors.New("session has not started")

// sessionState tracks the lifecycle of the shell process.
type sessionState int

const (
	stateIdle sessionState = iota
	stateRunning
	// stateTimedOut means a command overran the timeout; the session must
	// be restarted before it accepts new commands.
	stateTimedOut
)

// lockedBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Session owns one long-lived shell process. Commands share its state
// (working directory, environment, background jobs), and a command that
// runs exit ends the session. A Session is not safe for concurrent Run
// calls.
type Session struct {
	shell   string
	timeout time.Duration

	mu     sync.Mutex
	state  sessionState
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *lockedBuffer
	stderr *lockedBuffer

	// done is closed once the process has exited; exitCode is valid then.
	done     chan struct{}
	exitCode int
}

// NewSession creates an unstarted session. A non-positive timeout uses
// DefaultTimeout.
func NewSession(timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{shell: defaultShell, timeout: timeout}
}

// Start launches the shell. Calling Start on a running session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return nil
	}

	cmd := exec.Command(s.shell)
	configureProcess(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("bash: stdin pipe: %w", err)
	}
	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("bash: start %s: %w", s.shell, err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		s.exitCode = cmd.ProcessState.ExitCode()
		s.mu.Unlock()
		close(done)
	}()

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	s.done = done
	s.state = stateRunning
	return nil
}

// Stop terminates the shell and its process group.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateIdle {
		return ErrNotStarted
	}
	if s.exited() {
		return nil
	}
	_ = s.stdin.Close()
	terminate(s.cmd)
	return nil
}

// exited reports whether the process has already terminated.
func (s *Session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ExecResult is the outcome of one command.
type ExecResult struct {
	Output string
	Error  string
	// ExitCode is the command's exit status, or -1 when the shell itself
	// is gone.
	ExitCode int
}

// Run executes command and waits for its exit banner. A command that
// overruns the timeout leaves the session unusable until restarted.
func (s *Session) Run(ctx context.Context, command string) (ExecResult, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case stateIdle:
		return ExecResult{}, ErrNotStarted
	case stateTimedOut:
		return ExecResult{}, s.timeoutError()
	}

	if s.exited() {
		return s.exitedResult(), nil
	}

	// A brace group runs in the shell itself, so cd, export and variable
	// assignments carry over to the next command.
	script := "{\n" + command + "\n}; echo " + sentinelBefore + "$?" + sentinelAfter + "\n"
	if _, err := io.WriteString(s.stdin, script); err != nil {
		return ExecResult{}, fmt.Errorf("bash: write command: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ExecResult{}, ctx.Err()
		case <-s.done:
			return s.exitedResult(), nil
		case <-deadline.C:
			s.mu.Lock()
			s.state = stateTimedOut
			s.mu.Unlock()
			return ExecResult{}, s.timeoutError()
		case <-ticker.C:
		}

		output, code, ok := parseBanner(s.stdout.String())
		if !ok {
			continue
		}

		errText := s.stderr.String()
		s.stdout.Reset()
		s.stderr.Reset()

		return ExecResult{
			Output:   strings.TrimSuffix(output, "\n"),
			Error:    strings.TrimSuffix(errText, "\n"),
			ExitCode: code,
		}, nil
	}
}

func (s *Session) exitedResult() ExecResult {
	s.mu.Lock()
	code := s.exitCode
	s.mu.Unlock()
	return ExecResult{
		Error:    fmt.Sprintf("bash has exited with returncode %d. tool must be restarted.", code),
		ExitCode: -1,
	}
}

func (s *Session) timeoutError() error {
	return fmt.Errorf("timed out: bash has not returned in %d seconds and must be restarted", int(s.timeout.Seconds()))
}

// parseBanner splits raw stdout at the last exit banner and extracts the
// exit code. ok is false until a complete banner has been read.
func parseBanner(raw string) (output string, code int, ok bool) {
	idx := strings.LastIndex(raw, sentinelBefore)
	if idx < 0 {
		return "", 0, false
	}
	rest := raw[idx+len(sentinelBefore):]
	end := strings.Index(rest, sentinelAfter)
	if end < 0 {
		return "", 0, false
	}
	code, err := strconv.Atoi(rest[:end])
	if err != nil || code < 0 {
		return "", 0, false
	}
	return raw[:idx], code, true
}
