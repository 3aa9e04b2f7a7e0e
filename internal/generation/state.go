package generation

import (
	"prompt2web_server/internal/types"
)

// State is the phase of the current (or last) generation run.
type State string

const (
	StateIdle         State = "idle"
	StateAnalyzing    State = "analyzing"
	StatePlanning     State = "planning"
	StateSynthesizing State = "synthesizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Active reports whether a run is in flight.
func (s State) Active() bool {
	return s == StateAnalyzing || s == StatePlanning || s == StateSynthesizing
}

// Terminal reports whether a run has ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// NoStep is the step index shown when no plan step is current.
const NoStep = -1

// Labels shown outside the plan steps.
const (
	LabelAnalyzing = "Analyzing your requirements..."
	LabelPlanning  = "Planning the build..."
	LabelReady     = "Website ready for preview!"
	LabelStopped   = "Generation stopped."
)

// ErrorKind classifies a failed run for the caller.
type ErrorKind string

const (
	ErrorKindNone     ErrorKind = ""
	ErrorKindProvider ErrorKind = "provider"
	ErrorKindParse    ErrorKind = "parse"
	ErrorKindEmpty    ErrorKind = "empty"
	ErrorKindInternal ErrorKind = "internal"
)

// Usage is the caller's quota position as last seen by the orchestrator.
type Usage struct {
	Plan        string `json:"plan"`
	PromptsUsed int    `json:"promptsUsed"`
	Limit       int    `json:"limit"`
}

// Snapshot is the observable state of an orchestrator.
type Snapshot struct {
	RunID        string         `json:"runId,omitempty"`
	State        State          `json:"state"`
	Steps        []string       `json:"steps"`
	StepIndex    int            `json:"stepIndex"`
	CurrentStep  string         `json:"currentStep"`
	Project      *types.Project `json:"project,omitempty"`
	SelectedFile string         `json:"selectedFile,omitempty"`
	Revision     uint64         `json:"revision"`
	Error        string         `json:"error,omitempty"`
	ErrorKind    ErrorKind      `json:"errorKind,omitempty"`
	Raw          string         `json:"raw,omitempty"`
	Notice       string         `json:"notice,omitempty"`
	Usage        Usage          `json:"usage"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Steps = append([]string(nil), s.Steps...)
	return out
}
