// Package orchestrator turns a goal into a plan of subtasks and drives each
// subtask through generation, validation, repair, escalation, review,
// documentation and persistence.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/checkpoint"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Config wires an Orchestrator.
type Config struct {
	Capabilities capability.Set
	Store        memory.Store
	Options      Options
	Logger       *slog.Logger
	// Sinks receive every event in addition to the built-in SSE hub.
	Sinks []EventSink
	// PreviewMaxBytes bounds the artifact text carried by result events.
	PreviewMaxBytes int
}

type Orchestrator struct {
	opts   Options
	store  memory.Store
	exec   *Executor
	logger *slog.Logger

	runsMu sync.RWMutex
	runs   map[string]*runEntry

	hub   *Hub
	sinks []EventSink
}

type runEntry struct {
	rc  *RunContext
	cfg runConfig
}

type runConfig struct {
	id       string
	prompter checkpoint.Prompter
	plan     []string
}

// RunOption customises a single run.
type RunOption func(*runConfig)

// WithPrompter sets the checkpoint prompter; runs auto-approve by default.
func WithPrompter(p checkpoint.Prompter) RunOption {
	return func(c *runConfig) { c.prompter = p }
}

// WithPlan skips goal research and planning and proposes plan instead.
func WithPlan(plan []string) RunOption {
	return func(c *runConfig) { c.plan = append([]string(nil), plan...) }
}

func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.id = id }
}

func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Capabilities.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return nil, errors.New("orchestrator: memory store is required")
	}
	if cfg.Options.Parallelism == 0 {
		cfg.Options.Parallelism = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	updater, ok := store.(memory.Updater)
	if !ok {
		locked := memory.NewLocked(store)
		store, updater = locked, locked
	}

	o := &Orchestrator{
		opts:   cfg.Options,
		store:  store,
		logger: logger,
		runs:   map[string]*runEntry{},
		hub:    NewHub(),
		sinks:  cfg.Sinks,
	}
	o.exec = &Executor{
		caps:    cfg.Capabilities,
		store:   updater,
		opts:    cfg.Options,
		logger:  logger,
		publish: o.publish,
		tokens:  o.hub.TokenAppender,
		preview: cfg.PreviewMaxBytes,
	}
	return o, nil
}

func (o *Orchestrator) Options() Options { return o.opts }

// CreateRun registers a run without starting it.
func (o *Orchestrator) CreateRun(goal string, opts ...RunOption) *RunContext {
	cfg := runConfig{prompter: checkpoint.AutoApprove{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	rc := NewRunContext(cfg.id, goal)
	o.runsMu.Lock()
	o.runs[rc.ID] = &runEntry{rc: rc, cfg: cfg}
	o.runsMu.Unlock()
	o.publishStatus(rc)
	return rc
}

func (o *Orchestrator) GetRun(id string) (*RunContext, bool) {
	o.runsMu.RLock()
	e, ok := o.runs[id]
	o.runsMu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.rc, true
}

// ListRuns returns every known run, oldest first.
func (o *Orchestrator) ListRuns() []*RunContext {
	o.runsMu.RLock()
	out := make([]*RunContext, 0, len(o.runs))
	for _, e := range o.runs {
		out = append(out, e.rc)
	}
	o.runsMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].startedAt.Before(out[j].startedAt) })
	return out
}

// Run creates and executes a run, returning its final report.
func (o *Orchestrator) Run(ctx context.Context, goal string, opts ...RunOption) *models.FinalReport {
	rc := o.CreateRun(goal, opts...)
	report, _ := o.Start(ctx, rc.ID)
	return report
}

// Start executes a previously created run to completion. The report is
// returned for failed and aborted runs too; the error is reserved for unknown
// or already started runs.
func (o *Orchestrator) Start(ctx context.Context, id string) (*models.FinalReport, error) {
	o.runsMu.RLock()
	e, ok := o.runs[id]
	o.runsMu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	rc := e.rc
	if !rc.markStarted() {
		return nil, ErrRunStarted
	}
	ctx, span := startRunSpan(ctx, rc.ID, rc.Goal)
	log := o.logger.With("run_id", rc.ID)
	log.Info("run started", "goal", truncateForLog(rc.Goal, 200))

	snap, err := o.store.Load(ctx)
	if err != nil {
		w := models.Warning{Kind: models.WarningMemoryLoad, Message: err.Error()}
		rc.warn(w)
		o.publish(rc.ID, Event{Event: EventWarning, RunID: rc.ID, Payload: w})
		log.Warn("loading memory failed, starting empty", "err", err)
	} else {
		rc.setMemory(snap)
	}

	// Plan
	planInput := rc.Goal
	if len(e.cfg.plan) > 0 {
		rc.setPlan(e.cfg.plan)
	} else {
		findings := o.exec.research(ctx, rc.Goal)
		rc.setResearch(findings.Text)
		planInput = rc.Goal + researchJoiner + findings.Text
		rc.setPlan(o.exec.plan(ctx, planInput).Subtasks)
	}

	if !o.approvePlan(ctx, rc, e.cfg.prompter, planInput, log) {
		return o.finish(rc, span, models.StatusAborted, log), nil
	}
	plan := rc.Plan()
	o.publish(rc.ID, Event{Event: EventPlan, RunID: rc.ID, Payload: plan})
	log.Info("plan approved", "subtasks", len(plan))

	// Execute
	if o.opts.Parallelism > 1 {
		o.executeParallel(ctx, rc, plan)
	} else {
		o.executeSequential(ctx, rc, plan)
	}
	if rc.Failed() {
		return o.finish(rc, span, models.StatusFailed, log), nil
	}

	// Final checkpoint
	switch e.cfg.prompter.FinalApproval(rc.Report()) {
	case checkpoint.FinalAbort:
		return o.finish(rc, span, models.StatusAborted, log), nil
	case checkpoint.FinalEdit:
		log.Info("final edit requested; artifacts are returned unchanged")
	}
	return o.finish(rc, span, models.StatusComplete, log), nil
}

// approvePlan runs the plan checkpoint until the plan is approved, edited or
// the run is aborted. It reports whether execution should proceed.
func (o *Orchestrator) approvePlan(ctx context.Context, rc *RunContext, p checkpoint.Prompter, planInput string, log *slog.Logger) bool {
	for ctx.Err() == nil {
		decision, edited := p.PlanApproval(rc.Plan())
		switch decision {
		case checkpoint.PlanApprove:
			return true
		case checkpoint.PlanEdit:
			if len(edited) > 0 {
				rc.setPlan(edited)
			}
			return true
		case checkpoint.PlanReplan:
			log.Info("re-planning")
			rc.setPlan(o.exec.plan(ctx, planInput).Subtasks)
		default:
			log.Info("plan rejected")
			return false
		}
	}
	return false
}

func (o *Orchestrator) executeSequential(ctx context.Context, rc *RunContext, plan []string) {
	for _, subtask := range plan {
		o.exec.Execute(ctx, rc, subtask, 0)
		if rc.Failed() {
			o.logger.Warn("stopping run after failed subtask", "run_id", rc.ID)
			return
		}
	}
}

// executeParallel runs top-level subtasks concurrently. No new subtask is
// started once the run has failed; with CancelOnFailure in-flight ones are
// cancelled as well.
func (o *Orchestrator) executeParallel(ctx context.Context, rc *RunContext, plan []string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var g errgroup.Group
	g.SetLimit(o.opts.Parallelism)
	for _, subtask := range plan {
		if rc.Failed() {
			break
		}
		// g.Go blocks while the limit is reached, so the run may have failed
		// by the time this subtask gets a slot.
		g.Go(func() error {
			if rc.Failed() {
				return nil
			}
			o.exec.Execute(ctx, rc, subtask, 0)
			if o.opts.CancelOnFailure && rc.Failed() {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) finish(rc *RunContext, span trace.Span, status models.Status, log *slog.Logger) *models.FinalReport {
	rc.setStatus(status)
	o.hub.StopTokenAppender(rc.ID)
	report := rc.Report()
	o.publishStatus(rc)
	endRunSpan(span, string(status), len(report.Results))
	log.Info("run finished", "status", status, "results", len(report.Results), "failures", len(report.Logs), "warnings", len(report.Warnings))
	return report
}

// Subscribe returns a channel carrying JSON-encoded Event payloads for a specific run.
// The caller must call the returned unsubscribe func when done.
func (o *Orchestrator) Subscribe(runID string) (<-chan []byte, func()) {
	return o.hub.Subscribe(runID)
}

func (o *Orchestrator) publishStatus(rc *RunContext) {
	o.publish(rc.ID, Event{Event: EventRunStatus, RunID: rc.ID, Payload: map[string]any{"status": rc.Status()}})
}

func (o *Orchestrator) publish(runID string, ev Event) {
	o.hub.Publish(runID, ev)
	for _, s := range o.sinks {
		s.Publish(runID, ev)
	}
}
