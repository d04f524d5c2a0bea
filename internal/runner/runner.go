// Package runner is the lowest-level execution layer: it physically runs the
// assembled command line against the operating system and captures complete
// stdout/stderr streams, exit status, and timing.
//
// The runner never interprets exit codes. ffprobe legitimately uses
// informational non-zero codes, so success/failure interpretation belongs to
// the caller.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"clipforge/internal/logging"
)

const (
	// DefaultTimeout bounds a single command when the caller supplies none.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxOutputBytes caps each captured stream.
	DefaultMaxOutputBytes = 4 << 20 // 4 MiB
)

// Command is the input specification for a single execution.
type Command struct {
	// Argv is the full argument vector, program name first.
	Argv []string

	// Timeout is the maximum wall time. Zero means the runner default.
	Timeout time.Duration

	// MaxOutputBytes limits each captured stream. Zero means the default.
	MaxOutputBytes int64
}

// Result is the outcome of a completed (or killed) execution.
// Stdout and Stderr are complete, separately collected strings, never
// interleaved.
type Result struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	Truncated  bool
	Killed     bool
	KillReason string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Runner executes a command synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// DirectRunner executes commands directly on the host using os/exec.
type DirectRunner struct {
	defaultTimeout time.Duration
	maxOutputBytes int64
}

// NewDirectRunner creates a runner with default limits.
func NewDirectRunner() *DirectRunner {
	return &DirectRunner{
		defaultTimeout: DefaultTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
}

// NewDirectRunnerWithTimeout creates a runner with a custom default timeout.
func NewDirectRunnerWithTimeout(timeout time.Duration) *DirectRunner {
	r := NewDirectRunner()
	if timeout > 0 {
		r.defaultTimeout = timeout
	}
	return r
}

// Run executes the command and blocks until it exits, is killed on timeout,
// or the context is canceled. On timeout the process is forcibly terminated
// and a *TimeoutError is returned alongside the partial result. Failures to
// start at all are a *SpawnError.
func (r *DirectRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, &SpawnError{Err: fmt.Errorf("empty argv")}
	}

	timer := logging.StartTimer(logging.CategoryExec, "command execution")
	defer timer.Stop()

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	maxOutput := cmd.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = r.maxOutputBytes
	}

	logging.Exec("Executing: %s (timeout=%s)", argvString(cmd.Argv), timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Env = os.Environ()

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: maxOutput}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	result := &Result{ExitCode: -1, StartedAt: time.Now()}

	err := execCmd.Run()

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated
	if result.Truncated {
		logging.ExecWarn("Command output truncated: %s", cmd.Argv[0])
	}

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.Killed = true
			result.KillReason = fmt.Sprintf("timed out after %s", timeout)
			logging.ExecWarn("Command killed after %s: %s", timeout, cmd.Argv[0])
			return result, &TimeoutError{After: timeout, Argv: cmd.Argv}
		case execCtx.Err() == context.Canceled:
			return result, ctx.Err()
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				// Command ran and returned non-zero; that is a completed
				// execution, not a runner failure.
				result.ExitCode = exitErr.ExitCode()
				logging.ExecDebug("Command exited non-zero: %s -> %d", cmd.Argv[0], result.ExitCode)
				return result, nil
			}
			logging.ExecError("Command failed to start: %s - %v", cmd.Argv[0], err)
			return nil, &SpawnError{Binary: cmd.Argv[0], Err: err}
		}
	}

	result.ExitCode = 0
	logging.ExecDebug("Command succeeded: %s (%s, stdout=%d bytes)",
		cmd.Argv[0], result.Duration, len(result.Stdout))
	return result, nil
}

func argvString(argv []string) string {
	s := ""
	for i, a := range argv {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}

// limitedWriter is an io.Writer that caps total bytes written while
// pretending to accept everything, so the child never sees a short write.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
