// Package pipeline drives the generate-execute-validate-repair cycle.
//
// Each pass generates a command descriptor from the prompt plus the
// accumulated attempt context, assembles and executes it against the real
// binaries, then runs the domain acceptance check. Failures at any stage
// become grounding for the next generation call; the loop is bounded by a
// caller-supplied retry budget. Execution is an explicit stage here, never
// hidden inside a validator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"clipforge/internal/command"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/perception"
	"clipforge/internal/runner"
)

// Config bounds a single loop run.
type Config struct {
	// Budget is the number of repair cycles allowed after the first
	// attempt. Zero means exactly one attempt, no repair.
	Budget int

	// ExecTimeout is the wall-time limit per command execution.
	ExecTimeout time.Duration
}

// Reporter receives leveled progress events. It is a pure sink: the loop
// never queries it.
type Reporter interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopReporter struct{}

func (nopReporter) Info(string, ...interface{})    {}
func (nopReporter) Success(string, ...interface{}) {}
func (nopReporter) Error(string, ...interface{})   {}

// Loop orchestrates descriptor generation, execution, and validation for
// one session. It holds no per-run state; every Run is independent.
type Loop struct {
	client perception.Client
	runner runner.Runner
	store  *media.Store
	cfg    Config
	report Reporter
}

// New creates a loop.
func New(client perception.Client, r runner.Runner, store *media.Store, cfg Config) *Loop {
	if cfg.Budget < 0 {
		cfg.Budget = 0
	}
	return &Loop{
		client: client,
		runner: r,
		store:  store,
		cfg:    cfg,
		report: nopReporter{},
	}
}

// SetReporter installs a progress sink. Nil restores the no-op reporter.
func (l *Loop) SetReporter(r Reporter) {
	if r == nil {
		l.report = nopReporter{}
		return
	}
	l.report = r
}

// Outcome is a successful loop result: the command that ran, its captured
// streams, and the output file path when one was produced.
type Outcome struct {
	Descriptor command.Descriptor
	Argv       []string
	Result     *runner.Result
	OutputPath string // empty when the command produced no file
	Attempts   int    // generation attempts consumed, including the successful one
}

// Run executes the validation-repair loop for one instruction against one
// input artifact. With budget B it makes at most B+1 generation attempts;
// exhaustion returns *ExhaustedError carrying every per-attempt failure.
func (l *Loop) Run(ctx context.Context, prompt string, input media.Artifact) (*Outcome, error) {
	var notes []perception.AttemptNote
	var failures []AttemptFailure

	maxAttempts := l.cfg.Budget + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, failure := l.runAttempt(ctx, attempt, maxAttempts, prompt, input, notes)
		if failure == nil {
			outcome.Attempts = attempt
			return outcome, nil
		}
		if errors.Is(failure.Err, context.Canceled) {
			return nil, failure.Err
		}

		failures = append(failures, *failure)
		notes = append(notes, perception.AttemptNote{
			CommandLine: failure.CommandLine,
			Stdout:      stdoutOf(failure.Err),
			Stderr:      failure.Stderr,
			Reason:      reasonOf(failure.Err),
		})

		l.report.Error("attempt %d/%d failed (%s): %s", attempt, maxAttempts, failure.Stage, reasonOf(failure.Err))
		logging.GenerationWarn("Attempt %d failed in %s: %v", attempt, failure.Stage, failure.Err)
	}

	return nil, &ExhaustedError{Budget: l.cfg.Budget, Failures: failures}
}

// runAttempt performs one full Generating -> Executing -> Validating pass.
func (l *Loop) runAttempt(ctx context.Context, attempt, maxAttempts int, prompt string, input media.Artifact, notes []perception.AttemptNote) (*Outcome, *AttemptFailure) {
	l.report.Info("attempt %d/%d: generating command", attempt, maxAttempts)

	// Generating
	desc, err := perception.GenerateEdit(ctx, l.client, perception.EditRequest{
		Prompt:        prompt,
		InputFilename: input.Filename,
		InputKind:     input.Kind,
		PriorAttempts: notes,
	})
	if err != nil {
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageGenerating, Err: err}
	}

	// Assembling: pure function of a valid descriptor, cannot fail.
	outputPath := ""
	if desc.NeedsOutputFile() {
		outputPath = l.store.FreshTempPath(string(desc.OutputExt))
	}
	argv := command.Assemble(*desc, l.store.ResolvePath(input), outputPath)
	line := command.Line(argv)

	l.report.Info("running: %s", line)

	// Executing
	res, err := l.runner.Run(ctx, runner.Command{Argv: argv, Timeout: l.cfg.ExecTimeout})
	if err != nil {
		l.store.Discard(outputPath)
		execErr := &ExecutionError{Err: err}
		if res != nil {
			execErr.ExitCode = res.ExitCode
			execErr.Stdout = res.Stdout
			execErr.Stderr = res.Stderr
		}
		if errors.Is(err, context.Canceled) {
			return nil, &AttemptFailure{Attempt: attempt, Stage: StageExecuting, Err: err, CommandLine: line}
		}
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageExecuting, Err: execErr, CommandLine: line, Stderr: execErr.Stderr}
	}
	if res.ExitCode != 0 {
		l.store.Discard(outputPath)
		execErr := &ExecutionError{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageExecuting, Err: execErr, CommandLine: line, Stderr: res.Stderr}
	}

	// Validating
	if err := validate(*desc, outputPath); err != nil {
		// Stale partial outputs are always cleaned up before repairing.
		l.store.Discard(outputPath)
		return nil, &AttemptFailure{Attempt: attempt, Stage: StageValidating, Err: err, CommandLine: line, Stderr: res.Stderr}
	}

	l.report.Success("command succeeded: %s", line)
	return &Outcome{
		Descriptor: *desc,
		Argv:       argv,
		Result:     res,
		OutputPath: outputPath,
	}, nil
}

// validate runs the domain acceptance check. A transcode that declared an
// output extension must have written a non-empty file; probe and no-output
// commands were already required to exit cleanly by the executing stage.
func validate(desc command.Descriptor, outputPath string) error {
	if !desc.NeedsOutputFile() {
		return nil
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ValidationError{Reason: "expected output file was not created", OutputPath: outputPath}
		}
		return &ValidationError{Reason: fmt.Sprintf("cannot stat output file: %v", err), OutputPath: outputPath}
	}
	if info.Size() == 0 {
		return &ValidationError{Reason: "output file is empty", OutputPath: outputPath}
	}
	return nil
}

func reasonOf(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Reason()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func stdoutOf(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Stdout
	}
	return ""
}
