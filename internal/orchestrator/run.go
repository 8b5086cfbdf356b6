package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Unbounded disables the decomposition depth limit.
const Unbounded = -1

var (
	ErrInvalidOptions = errors.New("orchestrator: invalid options")
	ErrRunNotFound    = errors.New("orchestrator: run not found")
	ErrRunStarted     = errors.New("orchestrator: run already started")
)

// Options bound the work a single run may do.
type Options struct {
	// MaxAttempts is the number of validation attempts per generated artifact.
	MaxAttempts int
	// MaxDepth is the deepest decomposition level allowed; top-level subtasks
	// run at depth 0. It has no default: callers pick a positive limit or
	// Unbounded.
	MaxDepth int
	// MaxWidth caps the number of subtasks a single decomposition may yield.
	// Zero means no cap.
	MaxWidth int
	// Parallelism is the number of top-level subtasks executed at once.
	Parallelism int
	// CancelOnFailure cancels in-flight siblings once the run has failed.
	// Only meaningful when Parallelism > 1.
	CancelOnFailure bool
}

const DefaultMaxAttempts = 3

// DefaultOptions returns the standard limits for the given depth bound.
func DefaultOptions(maxDepth int) Options {
	return Options{MaxAttempts: DefaultMaxAttempts, MaxDepth: maxDepth, Parallelism: 1}
}

func (o Options) Validate() error {
	switch {
	case o.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidOptions, o.MaxAttempts)
	case o.MaxDepth == 0:
		return fmt.Errorf("%w: max depth must be set explicitly (a positive limit, or %d for unbounded)", ErrInvalidOptions, Unbounded)
	case o.MaxDepth < Unbounded:
		return fmt.Errorf("%w: max depth %d is negative", ErrInvalidOptions, o.MaxDepth)
	case o.MaxWidth < 0:
		return fmt.Errorf("%w: max width %d is negative", ErrInvalidOptions, o.MaxWidth)
	case o.Parallelism < 0:
		return fmt.Errorf("%w: parallelism %d is negative", ErrInvalidOptions, o.Parallelism)
	}
	return nil
}

func (o Options) canDescend(depth int) bool {
	return o.MaxDepth == Unbounded || depth+1 <= o.MaxDepth
}

// RunContext is the state of one run. It is passed explicitly to every
// execution step and is safe for concurrent use.
type RunContext struct {
	ID   string
	Goal string

	mu        sync.Mutex
	research  string
	plan      []string
	results   []*models.SubtaskResult
	finalDocs []string
	logs      []*models.FailureLog
	warnings  []models.Warning
	status    models.Status
	memory    *memory.Snapshot
	started   bool
	startedAt time.Time
	finished  time.Time
}

func NewRunContext(id, goal string) *RunContext {
	return &RunContext{ID: id, Goal: goal, status: models.StatusInProgress, memory: memory.NewSnapshot(), startedAt: time.Now().UTC()}
}

func (rc *RunContext) Status() models.Status {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.status
}

func (rc *RunContext) Failed() bool { return rc.Status() == models.StatusFailed }

// Finished reports whether the run has reached its final status. A run can be
// failed while nested subtasks are still executing.
func (rc *RunContext) Finished() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return !rc.finished.IsZero()
}

func (rc *RunContext) setStatus(s models.Status) {
	rc.mu.Lock()
	rc.status = s
	if s != models.StatusInProgress {
		rc.finished = time.Now().UTC()
	}
	rc.mu.Unlock()
}

func (rc *RunContext) markStarted() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.started {
		return false
	}
	rc.started = true
	return true
}

func (rc *RunContext) Plan() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.plan...)
}

func (rc *RunContext) setPlan(plan []string) {
	rc.mu.Lock()
	rc.plan = append([]string(nil), plan...)
	rc.mu.Unlock()
}

func (rc *RunContext) setResearch(text string) {
	rc.mu.Lock()
	rc.research = text
	rc.mu.Unlock()
}

func (rc *RunContext) setMemory(snap *memory.Snapshot) {
	rc.mu.Lock()
	rc.memory = snap
	rc.mu.Unlock()
}

// Memory returns a copy of the run's view of persistent memory.
func (rc *RunContext) Memory() *memory.Snapshot {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.memory.Clone()
}

func (rc *RunContext) addResult(res *models.SubtaskResult) {
	rc.mu.Lock()
	rc.results = append(rc.results, res)
	rc.finalDocs = append(rc.finalDocs, res.Documentation)
	rc.mu.Unlock()
}

// fail appends exactly one log entry and marks the run failed.
func (rc *RunContext) fail(entry *models.FailureLog) {
	rc.mu.Lock()
	rc.logs = append(rc.logs, entry)
	rc.status = models.StatusFailed
	rc.mu.Unlock()
}

func (rc *RunContext) warn(w models.Warning) {
	rc.mu.Lock()
	rc.warnings = append(rc.warnings, w)
	rc.mu.Unlock()
}

func (rc *RunContext) remember(subtask string, rec memory.Record) {
	rc.mu.Lock()
	rc.memory.Put(subtask, rec)
	rc.mu.Unlock()
}

// Report returns a point-in-time copy of the run as a FinalReport.
func (rc *RunContext) Report() *models.FinalReport {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return &models.FinalReport{
		RunID:      rc.ID,
		Goal:       rc.Goal,
		Research:   rc.research,
		Plan:       append([]string{}, rc.plan...),
		Results:    append([]*models.SubtaskResult{}, rc.results...),
		FinalDocs:  append([]string{}, rc.finalDocs...),
		Logs:       append([]*models.FailureLog{}, rc.logs...),
		Warnings:   append([]models.Warning(nil), rc.warnings...),
		Status:     rc.status,
		StartedAt:  rc.startedAt,
		FinishedAt: rc.finished,
	}
}
