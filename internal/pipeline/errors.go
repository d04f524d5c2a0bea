package pipeline

import (
	"fmt"
	"strings"
)

// Stage names the pipeline stage a failure originated in.
type Stage string

const (
	StageGenerating Stage = "generating"
	StageExecuting  Stage = "executing"
	StageValidating Stage = "validating"
)

// ExecutionError reports a command that ran but failed: a timeout, a spawn
// failure, or a non-zero exit interpreted as failure. It always carries the
// captured streams so the next generation attempt can be grounded in what
// actually happened.
type ExecutionError struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // underlying runner error (timeout, spawn), if any
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("process exited with code %d", e.ExitCode)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Reason returns the repair-context text for this failure, preferring
// stderr, then stdout, then the exit-code message.
func (e *ExecutionError) Reason() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		return s
	}
	return e.Error()
}

// ValidationError reports a post-execution acceptance check that failed,
// e.g. a declared output file that was never written.
type ValidationError struct {
	Reason     string
	OutputPath string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// AttemptFailure records one failed pass through the loop.
type AttemptFailure struct {
	Attempt     int // 1-based
	Stage       Stage
	Err         error
	CommandLine string // empty when generation itself failed
	Stderr      string
}

// ExhaustedError is the terminal failure: the retry budget was consumed
// without a successful command. It carries the full per-attempt error list.
type ExhaustedError struct {
	Budget   int
	Failures []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no successful command after %d attempt(s) (retry budget %d)", len(e.Failures), e.Budget)
	if last := e.Last(); last != nil {
		fmt.Fprintf(&sb, ": last failure in %s: %v", last.Stage, last.Err)
		if last.CommandLine != "" {
			fmt.Fprintf(&sb, " (command: %s)", last.CommandLine)
		}
	}
	return sb.String()
}

// Last returns the most recent attempt failure, or nil.
func (e *ExhaustedError) Last() *AttemptFailure {
	if len(e.Failures) == 0 {
		return nil
	}
	return &e.Failures[len(e.Failures)-1]
}
