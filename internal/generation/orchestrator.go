// Package generation sequences the analysis, plan and synthesis stages into one
// cancellable run and exposes its progress as observable snapshots.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"prompt2web_server/internal/ai"
	"prompt2web_server/internal/types"
	"prompt2web_server/internal/users"
)

// DefaultProgressInterval is the period of the progress simulator.
const DefaultProgressInterval = 5 * time.Second

// Pipeline is the set of stages a run goes through.
type Pipeline interface {
	AnalyzePrompt(ctx context.Context, prompt string) (string, error)
	CreatePlan(ctx context.Context, prompt, analysis string) []string
	SynthesizeProject(ctx context.Context, prompt, analysis string, steps []string) (*types.Project, error)
}

// UsageRecorder is the caller's prompt counter. A run reserves one prompt before
// any provider call and refunds it unless a project is produced, so the counter
// only moves for successful generations and concurrent runs share one limit.
type UsageRecorder interface {
	ReservePrompt(ctx context.Context, uid string, limit int) (*users.User, error)
	RefundPrompt(ctx context.Context, uid string) (*users.User, error)
}

// Caller identifies who starts a run and where they stand against their quota.
type Caller struct {
	UID         string
	Plan        string
	PromptsUsed int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithProgressInterval sets the progress simulator period.
func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Orchestrator owns one session's project and runs at most one generation at a time.
type Orchestrator struct {
	pipeline Pipeline
	usage    UsageRecorder
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	snap     Snapshot
	starting bool
	closed   bool
	reserved string // run id still holding an unsettled prompt reservation
	caller   Caller
	cancel   context.CancelFunc
	done     chan struct{}
	outcome  error
	subs     map[int]chan Snapshot
	nextSub  int
}

// New creates an idle Orchestrator.
func New(pipeline Pipeline, usage UsageRecorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipeline: pipeline,
		usage:    usage,
		logger:   slog.Default(),
		interval: DefaultProgressInterval,
		snap: Snapshot{
			State:     StateIdle,
			StepIndex: NoStep,
		},
		subs: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins a run for prompt and returns its id. The quota check happens here,
// before any network call; a rejected start leaves the state untouched. The run
// itself proceeds in the background, detached from ctx's cancellation: use Stop to
// cancel it. Only one run may be active at a time; a second Start returns
// ErrRunActive.
func (o *Orchestrator) Start(ctx context.Context, caller Caller, prompt string) (string, error) {
	limit := users.PromptLimit(caller.Plan)
	if caller.PromptsUsed >= limit {
		return "", o.quotaExceeded(caller, limit, caller.PromptsUsed)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", ErrClosed
	}
	if o.starting || o.snap.State.Active() {
		o.mu.Unlock()
		return "", ErrRunActive
	}
	o.starting = true
	o.mu.Unlock()

	usage := Usage{Plan: caller.Plan, PromptsUsed: caller.PromptsUsed, Limit: limit}
	if o.usage != nil {
		u, err := o.usage.ReservePrompt(ctx, caller.UID, limit)
		if err != nil {
			o.mu.Lock()
			o.starting = false
			o.mu.Unlock()
			if errors.Is(err, users.ErrQuotaExceeded) && u != nil {
				return "", o.quotaExceeded(caller, limit, u.PromptsUsed)
			}
			return "", fmt.Errorf("reserve prompt: %w", err)
		}
		usage = Usage{Plan: caller.Plan, PromptsUsed: u.PromptsUsed, Limit: limit}
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	o.mu.Lock()
	o.starting = false
	if o.usage != nil {
		o.reserved = runID
		o.caller = caller
	}
	o.cancel = cancel
	o.done = done
	o.outcome = nil
	o.snap.RunID = runID
	o.snap.State = StateAnalyzing
	o.snap.Steps = nil
	o.snap.StepIndex = NoStep
	o.snap.CurrentStep = LabelAnalyzing
	o.snap.Error = ""
	o.snap.ErrorKind = ErrorKindNone
	o.snap.Raw = ""
	o.snap.Notice = ""
	o.snap.Usage = usage
	o.publishLocked()
	o.mu.Unlock()

	o.logger.Info("generation started", "run", runID, "uid", caller.UID)
	go o.run(runCtx, runID, prompt, done)
	return runID, nil
}

func (o *Orchestrator) quotaExceeded(caller Caller, limit, used int) error {
	o.logger.Info("generation rejected: quota exceeded", "uid", caller.UID, "plan", caller.Plan, "used", used, "limit", limit)
	return &QuotaExceededError{Plan: caller.Plan, Limit: limit, Used: used}
}

func (o *Orchestrator) run(ctx context.Context, runID, prompt string, done chan struct{}) {
	defer close(done)
	defer func() {
		o.mu.Lock()
		caller, ok := o.takeReservationLocked(runID)
		o.mu.Unlock()
		if ok {
			o.refund(runID, caller)
		}
	}()

	analysis, err := o.pipeline.AnalyzePrompt(ctx, prompt)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		o.logger.Warn("prompt analysis failed, continuing without analysis", "run", runID, "error", err)
		analysis = ""
	}

	if !o.update(runID, func(s *Snapshot) {
		s.State = StatePlanning
		s.CurrentStep = LabelPlanning
	}) {
		return
	}

	steps := o.pipeline.CreatePlan(ctx, prompt, analysis)
	if ctx.Err() != nil {
		return
	}
	if len(steps) == 0 {
		steps = ai.DefaultPlanSteps()
	}

	if !o.update(runID, func(s *Snapshot) {
		s.State = StateSynthesizing
		s.Steps = append([]string(nil), steps...)
		s.StepIndex = 0
		s.CurrentStep = steps[0]
	}) {
		return
	}

	simCtx, stopSim := context.WithCancel(ctx)
	simDone := make(chan struct{})
	go o.simulateProgress(simCtx, runID, simDone)

	project, err := o.pipeline.SynthesizeProject(ctx, prompt, analysis, steps)
	stopSim()
	<-simDone

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		o.fail(runID, err)
		return
	}
	if project == nil || len(project.Files) == 0 {
		o.fail(runID, &ai.SynthesisEmptyResultError{})
		return
	}
	if len(project.Steps) == 0 {
		project.Steps = append([]string(nil), steps...)
	}

	o.complete(runID, project)
}

// simulateProgress advances the step cursor every interval while synthesis runs.
// It stops one short of the final step, which only real completion may reach.
func (o *Orchestrator) simulateProgress(ctx context.Context, runID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.advance(runID) {
				return
			}
		}
	}
}

// advance moves the cursor one step. It returns false once the cursor is capped or
// the run is no longer synthesizing.
func (o *Orchestrator) advance(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.RunID != runID || o.snap.State != StateSynthesizing {
		return false
	}
	if o.snap.StepIndex >= len(o.snap.Steps)-2 {
		return false
	}
	o.snap.StepIndex++
	o.snap.CurrentStep = o.snap.Steps[o.snap.StepIndex]
	o.publishLocked()
	return true
}

// update applies fn if runID is still the active run.
func (o *Orchestrator) update(runID string, fn func(s *Snapshot)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.RunID != runID || !o.snap.State.Active() {
		return false
	}
	fn(&o.snap)
	o.publishLocked()
	return true
}

func (o *Orchestrator) complete(runID string, project *types.Project) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.RunID != runID || !o.snap.State.Active() {
		return
	}
	o.snap.State = StateCompleted
	o.snap.Project = project
	o.snap.SelectedFile = project.Files[0].Path
	o.snap.StepIndex = len(o.snap.Steps) - 1
	o.snap.CurrentStep = LabelReady
	o.snap.Revision++
	o.outcome = nil
	o.reserved = ""
	o.publishLocked()

	o.logger.Info("generation completed", "run", runID, "project", project.ProjectName, "files", len(project.Files))
}

func (o *Orchestrator) fail(runID string, err error) {
	kind := classify(err)
	runErr := &RunError{Kind: kind, Err: err}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.RunID != runID || !o.snap.State.Active() {
		return
	}
	o.snap.State = StateFailed
	o.snap.Error = err.Error()
	o.snap.ErrorKind = kind
	o.snap.StepIndex = NoStep
	o.snap.CurrentStep = ""
	var parseErr *ai.SynthesisParseError
	if errors.As(err, &parseErr) {
		o.snap.Raw = parseErr.Raw
	}
	o.outcome = runErr
	o.publishLocked()

	o.logger.Error("generation failed", "run", runID, "kind", kind, "error", err)
}

// takeReservationLocked hands the unsettled reservation of runID to exactly one
// caller. Completion keeps it, Stop or the end of the run refund it.
func (o *Orchestrator) takeReservationLocked(runID string) (Caller, bool) {
	if runID == "" || o.reserved != runID {
		return Caller{}, false
	}
	o.reserved = ""
	return o.caller, true
}

func (o *Orchestrator) refund(runID string, caller Caller) {
	u, err := o.usage.RefundPrompt(context.Background(), caller.UID)
	if err != nil {
		o.logger.Error("failed to refund reserved prompt", "run", runID, "uid", caller.UID, "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.RunID != runID {
		return
	}
	o.snap.Usage.PromptsUsed = u.PromptsUsed
	o.publishLocked()
}

func classify(err error) ErrorKind {
	var parseErr *ai.SynthesisParseError
	var emptyErr *ai.SynthesisEmptyResultError
	var providerErr *ai.ProviderError
	switch {
	case errors.As(err, &parseErr):
		return ErrorKindParse
	case errors.As(err, &emptyErr):
		return ErrorKindEmpty
	case errors.As(err, &providerErr):
		return ErrorKindProvider
	default:
		return ErrorKindInternal
	}
}

// Stop cancels the active run: the in-flight call is aborted, the simulator stops,
// the step cursor resets and the stored project is left as it was. It reports
// whether a run was actually cancelled.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	if !o.snap.State.Active() {
		o.mu.Unlock()
		return false
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.snap.State = StateCancelled
	o.snap.StepIndex = NoStep
	o.snap.CurrentStep = LabelStopped
	o.snap.Notice = LabelStopped
	o.outcome = ErrCancelled
	o.publishLocked()
	runID := o.snap.RunID
	caller, reserved := o.takeReservationLocked(runID)
	o.mu.Unlock()

	o.logger.Info("generation stopped", "run", runID)
	if reserved {
		o.refund(runID, caller)
	}
	return true
}

// Close stops any active run and ends every subscription. Subsequent starts
// return ErrClosed.
func (o *Orchestrator) Close() {
	o.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
}

// UpdateFile replaces the content of the file at path. All other files are kept,
// as are the project name and steps.
func (o *Orchestrator) UpdateFile(path, content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snap.Project == nil {
		return ErrNoProject
	}
	next, ok := o.snap.Project.WithFileContent(path, content)
	if !ok {
		return ErrFileNotFound
	}
	o.snap.Project = next
	o.snap.Revision++
	o.publishLocked()
	return nil
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.clone()
}

// Wait blocks until the latest run ends and returns its outcome: nil on success,
// ErrCancelled after Stop, or a *RunError.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done == nil {
		return ErrNoRun
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Subscribe returns a channel receiving every subsequent snapshot, starting with the
// current one. Slow readers only miss intermediate snapshots, never the latest.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		ch <- o.Snapshot()
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.snap.clone()
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *Orchestrator) publishLocked() {
	snap := o.snap.clone()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
