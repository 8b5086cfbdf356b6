package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Prompt joiners used when one capability's output feeds another's input.
const (
	researchJoiner   = "\n\nRelevant research findings:\n"
	suggestionJoiner = "\n\nMetaAgent suggestion: "
	feedbackJoiner   = "\n\nCritic feedback:\n"
)

// Executor drives a single subtask through generate, validate/repair,
// escalation, review, documentation and persistence.
type Executor struct {
	caps    capability.Set
	store   memory.Updater
	opts    Options
	logger  *slog.Logger
	publish func(runID string, ev Event)
	tokens  func(runID string) func(subtask, chunk string)
	preview int
}

// Execute runs subtask at the given depth. Outcomes land in rc: a result and
// its documentation on success, exactly one failure log entry otherwise, or
// nothing when the subtask was decomposed (its children record their own).
func (x *Executor) Execute(ctx context.Context, rc *RunContext, subtask string, depth int) {
	ctx, span := startSubtaskSpan(ctx, rc.ID, subtask, depth)
	defer span.End()
	log := x.logger.With("run_id", rc.ID, "depth", depth, "subtask", truncateForLog(subtask, 120))
	x.publish(rc.ID, Event{Event: EventSubtaskStatus, RunID: rc.ID, Payload: map[string]any{"subtask": subtask, "depth": depth, "state": "started"}})

	if x.cancelled(ctx, rc, subtask, depth, nil, log) {
		return
	}

	// Generate
	input := subtask
	cls := x.classify(ctx, subtask)
	if cls.Modality.NeedsResearch() {
		findings := x.research(ctx, subtask)
		input = subtask + researchJoiner + findings.Text
	}
	log.Debug("classified subtask", "modality", cls.Modality, "degraded", cls.Degraded)
	artifact := x.generate(ctx, rc, subtask, input).Text

	// Validate and repair
	var (
		outcome  models.ValidationOutcome
		failures []string
		attempts int
		repairs  int
	)
	for attempts < x.opts.MaxAttempts {
		if x.cancelled(ctx, rc, subtask, depth, failures, log) {
			return
		}
		attempts++
		outcome = x.validate(ctx, artifact)
		if outcome.Passed {
			break
		}
		failures = append(failures, outcome.Detail)
		log.Info("validation failed", "attempt", attempts, "degraded", outcome.Degraded)
		if attempts < x.opts.MaxAttempts {
			artifact = x.repair(ctx, artifact, outcome.Detail).Text
			repairs++
		}
	}

	if !outcome.Passed {
		x.escalate(ctx, rc, subtask, depth, failures, log)
		return
	}

	// Review, with at most one regeneration
	review := x.review(ctx, artifact, subtask)
	regenerated := false
	if review.HasIssues() {
		log.Info("review raised issues, regenerating", "degraded", review.Degraded)
		artifact = x.generate(ctx, rc, subtask, subtask+feedbackJoiner+review.Feedback()).Text
		regenerated = true
	}

	docs := x.document(ctx, artifact)

	res := &models.SubtaskResult{
		Subtask:       subtask,
		Artifact:      artifact,
		Validation:    outcome,
		Review:        &review,
		Documentation: docs.Text,
		Depth:         depth,
		Attempts:      attempts,
		Repairs:       repairs,
		Regenerated:   regenerated,
		CompletedAt:   time.Now().UTC(),
	}
	rc.addResult(res)
	x.persist(ctx, rc, res, log)
	x.publish(rc.ID, Event{Event: EventResult, RunID: rc.ID, Payload: previewResult(res, x.preview)})
	log.Info("subtask complete", "attempts", attempts, "repairs", repairs, "regenerated", regenerated)
}

// escalate asks the reflector what to do with a subtask whose retries are
// exhausted and either decomposes it or records the failure.
func (x *Executor) escalate(ctx context.Context, rc *RunContext, subtask string, depth int, failures []string, log *slog.Logger) {
	decision := x.reflect(ctx, rc.Goal, subtask, failures)
	log.Info("retries exhausted", "decision", decision.Kind, "degraded", decision.Degraded)

	if decision.Kind != capability.Decompose {
		x.recordFailure(rc, subtask, depth, failures, decision.Suggestion, models.ReasonGaveUp, log)
		return
	}
	if !x.opts.canDescend(depth) {
		x.recordFailure(rc, subtask, depth, failures, decision.Suggestion, models.ReasonDepthExceeded, log)
		return
	}

	children := x.plan(ctx, subtask+suggestionJoiner+decision.Suggestion).Subtasks
	switch {
	case len(children) == 0:
		x.recordFailure(rc, subtask, depth, failures, decision.Suggestion, models.ReasonEmptyDecomposed, log)
		return
	case x.opts.MaxWidth > 0 && len(children) > x.opts.MaxWidth:
		x.recordFailure(rc, subtask, depth, failures, decision.Suggestion, models.ReasonWidthExceeded, log)
		return
	}

	log.Info("decomposing subtask", "children", len(children))
	x.publish(rc.ID, Event{Event: EventSubtaskStatus, RunID: rc.ID, Payload: map[string]any{"subtask": subtask, "depth": depth, "state": "decomposed", "children": children}})
	for _, child := range children {
		x.Execute(ctx, rc, child, depth+1)
	}
}

func (x *Executor) recordFailure(rc *RunContext, subtask string, depth int, failures []string, suggestion, reason string, log *slog.Logger) {
	entry := &models.FailureLog{
		Subtask:        subtask,
		Depth:          depth,
		FailureHistory: append([]string{}, failures...),
		Suggestion:     suggestion,
		Reason:         reason,
		At:             time.Now().UTC(),
	}
	rc.fail(entry)
	log.Warn("subtask failed", "reason", reason)
	x.publish(rc.ID, Event{Event: EventFailure, RunID: rc.ID, Payload: entry})
}

// cancelled records a cancellation entry when ctx is done.
func (x *Executor) cancelled(ctx context.Context, rc *RunContext, subtask string, depth int, failures []string, log *slog.Logger) bool {
	if ctx.Err() == nil {
		return false
	}
	x.recordFailure(rc, subtask, depth, failures, "", models.ReasonCancelled, log)
	return true
}

// persist writes the result to memory. A failed save becomes a warning on the
// run; the result itself is kept.
func (x *Executor) persist(ctx context.Context, rc *RunContext, res *models.SubtaskResult, log *slog.Logger) {
	rec := memory.RecordFrom(res)
	// A completed result is saved even if the run is being cancelled.
	ctx = context.WithoutCancel(ctx)

	rc.remember(res.Subtask, rec)
	err := x.store.Update(ctx, func(s *memory.Snapshot) { s.Put(res.Subtask, rec) })
	if err != nil {
		w := models.Warning{Subtask: res.Subtask, Kind: models.WarningPersistence, Message: err.Error()}
		rc.warn(w)
		log.Warn("persisting subtask result failed", "err", err)
		x.publish(rc.ID, Event{Event: EventWarning, RunID: rc.ID, Payload: w})
	}
}

func (x *Executor) classify(ctx context.Context, subtask string) capability.Classification {
	ctx, span := startStepSpan(ctx, "classify")
	out := x.caps.Classifier.Classify(ctx, subtask)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) research(ctx context.Context, query string) capability.Findings {
	ctx, span := startStepSpan(ctx, "research")
	out := x.caps.Researcher.Research(ctx, query)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) generate(ctx context.Context, rc *RunContext, subtask, input string) capability.Artifact {
	ctx, span := startStepSpan(ctx, "generate")
	if x.tokens != nil {
		appendToken := x.tokens(rc.ID)
		ctx = capability.WithTokenSink(ctx, func(chunk string) { appendToken(subtask, chunk) })
	}
	out := x.caps.Generator.Generate(ctx, input)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) validate(ctx context.Context, artifact string) models.ValidationOutcome {
	ctx, span := startStepSpan(ctx, "validate")
	out := x.caps.Validator.Validate(ctx, artifact)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) repair(ctx context.Context, artifact, detail string) capability.Artifact {
	ctx, span := startStepSpan(ctx, "repair")
	out := x.caps.Repairer.Repair(ctx, artifact, detail)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) review(ctx context.Context, artifact, purpose string) models.ReviewOutcome {
	ctx, span := startStepSpan(ctx, "review")
	out := x.caps.Reviewer.Review(ctx, artifact, purpose)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) document(ctx context.Context, artifact string) capability.Documentation {
	ctx, span := startStepSpan(ctx, "document")
	out := x.caps.Documenter.Document(ctx, artifact)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) reflect(ctx context.Context, goal, subtask string, failures []string) capability.Decision {
	ctx, span := startStepSpan(ctx, "reflect")
	out := x.caps.Reflector.Reflect(ctx, goal, subtask, failures)
	endStepSpan(span, out.Degraded)
	return out
}

func (x *Executor) plan(ctx context.Context, input string) capability.Plan {
	ctx, span := startStepSpan(ctx, "plan")
	out := x.caps.Planner.Plan(ctx, input)
	endStepSpan(span, out.Degraded)
	return out
}
