package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// fakeCaps implements every capability with overridable behaviour and records
// each call.
type fakeCaps struct {
	mu     sync.Mutex
	calls  map[string]int
	inputs map[string][]string

	planFn     func(input string) []string
	modality   models.Modality
	findings   string
	generateFn func(ctx context.Context, input string) string
	validateFn func(artifact string) models.ValidationOutcome
	reviewFn   func(artifact string) models.ReviewOutcome
	reflectFn  func(subtask string, failures []string) capability.Decision
}

func newFakeCaps() *fakeCaps {
	return &fakeCaps{calls: map[string]int{}, inputs: map[string][]string{}, modality: models.ModalityCode, findings: "findings"}
}

func (f *fakeCaps) record(name, input string) {
	f.mu.Lock()
	f.calls[name]++
	f.inputs[name] = append(f.inputs[name], input)
	f.mu.Unlock()
}

func (f *fakeCaps) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCaps) seen(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs[name]...)
}

func (f *fakeCaps) set() capability.Set {
	return capability.Set{
		Planner: f, Classifier: f, Researcher: f, Generator: f, Validator: f,
		Repairer: f, Reviewer: f, Documenter: f, Reflector: f,
	}
}

func (f *fakeCaps) Plan(ctx context.Context, input string) capability.Plan {
	f.record("plan", input)
	if f.planFn == nil {
		return capability.Plan{}
	}
	return capability.Plan{Subtasks: f.planFn(input)}
}

func (f *fakeCaps) Classify(ctx context.Context, subtask string) capability.Classification {
	f.record("classify", subtask)
	return capability.Classification{Modality: f.modality}
}

func (f *fakeCaps) Research(ctx context.Context, query string) capability.Findings {
	f.record("research", query)
	return capability.Findings{Text: f.findings}
}

func (f *fakeCaps) Generate(ctx context.Context, input string) capability.Artifact {
	f.record("generate", input)
	if f.generateFn != nil {
		return capability.Artifact{Text: f.generateFn(ctx, input)}
	}
	return capability.Artifact{Text: "artifact:" + input}
}

func (f *fakeCaps) Validate(ctx context.Context, artifact string) models.ValidationOutcome {
	f.record("validate", artifact)
	if f.validateFn != nil {
		return f.validateFn(artifact)
	}
	return models.ValidationOutcome{Passed: true, Detail: "ok"}
}

func (f *fakeCaps) Repair(ctx context.Context, artifact, detail string) capability.Artifact {
	f.record("repair", artifact)
	return capability.Artifact{Text: artifact + "+fix"}
}

func (f *fakeCaps) Review(ctx context.Context, artifact, purpose string) models.ReviewOutcome {
	f.record("review", artifact)
	if f.reviewFn != nil {
		return f.reviewFn(artifact)
	}
	return models.ReviewOutcome{Suggestions: "none", Rating: "9/10"}
}

func (f *fakeCaps) Document(ctx context.Context, artifact string) capability.Documentation {
	f.record("document", artifact)
	return capability.Documentation{Text: "docs:" + artifact}
}

func (f *fakeCaps) Reflect(ctx context.Context, goal, subtask string, failures []string) capability.Decision {
	f.record("reflect", subtask)
	if f.reflectFn != nil {
		return f.reflectFn(subtask, failures)
	}
	return capability.Decision{Kind: capability.GiveUp, Suggestion: "give up"}
}

// failBad fails validation for every artifact generated from a subtask whose
// text starts with "bad".
func failBad(artifact string) models.ValidationOutcome {
	if strings.HasPrefix(artifact, "artifact:bad") {
		return models.ValidationOutcome{Passed: false, Detail: "assertion failed"}
	}
	return models.ValidationOutcome{Passed: true, Detail: "ok"}
}

// fakeStore is an in-memory Store that can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	snap    *memory.Snapshot
	saves   int
	saveErr error
	loadErr error
}

func newFakeStore() *fakeStore { return &fakeStore{snap: memory.NewSnapshot()} }

func (s *fakeStore) Load(ctx context.Context) (*memory.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.snap.Clone(), nil
}

func (s *fakeStore) Save(ctx context.Context, snap *memory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap.Clone()
	return nil
}

func (s *fakeStore) saved() *memory.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

var errDiskFull = errors.New("disk full")

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestOrchestrator(t *testing.T, f *fakeCaps, store memory.Store, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(Config{Capabilities: f.set(), Store: store, Options: opts, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}
