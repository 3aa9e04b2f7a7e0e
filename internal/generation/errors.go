package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled reports a run that was stopped on request. It is a neutral outcome, not a failure.
	ErrCancelled = errors.New("generation stopped")
	// ErrEmptyPrompt is returned when Start receives a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNoProject is returned by UpdateFile before any run has completed.
	ErrNoProject = errors.New("no project generated yet")
	// ErrFileNotFound is returned by UpdateFile for an unknown path.
	ErrFileNotFound = errors.New("file not found in project")
	// ErrNoRun is returned by Wait when no run was ever started.
	ErrNoRun = errors.New("no generation run started")
	// ErrRunActive is returned by Start while another run is still in progress.
	ErrRunActive = errors.New("a generation is already running")
	// ErrClosed is returned by Start once the orchestrator was closed.
	ErrClosed = errors.New("session closed")
)

// QuotaExceededError rejects a run whose caller already used their plan's allowance.
type QuotaExceededError struct {
	Plan  string
	Limit int
	Used  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("you have reached your %s plan limit of %d prompts", e.Plan, e.Limit)
}

// RunError is the failure recorded for a run that ended in StateFailed.
type RunError struct {
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string { return e.Err.Error() }

func (e *RunError) Unwrap() error { return e.Err }
