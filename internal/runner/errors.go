package runner

import (
	"fmt"
	"time"
)

// TimeoutError reports a command forcibly terminated after exceeding its
// wall-time budget. The partial Result accompanying it still carries
// whatever output was captured before the kill.
type TimeoutError struct {
	After time.Duration
	Argv  []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %s", e.After, argvString(e.Argv))
}

// SpawnError reports a command that never started (missing binary,
// permission failure).
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
