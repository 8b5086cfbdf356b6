// Package capability defines the typed contracts the engine calls for every
// reasoning or action step.
//
// Implementations must degrade, never fail: a capability that cannot produce a
// well-formed answer returns a best-effort value with Degraded set. The engine
// expresses all failure handling through outcome content.
package capability

import (
	"context"
	"errors"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/models"
)

// Plan is an ordered list of subtask descriptions.
type Plan struct {
	Subtasks []string
	Degraded bool
}

type Classification struct {
	Modality models.Modality
	Degraded bool
}

type Findings struct {
	Text     string
	Degraded bool
}

type Artifact struct {
	Text     string
	Degraded bool
}

type Documentation struct {
	Text     string
	Degraded bool
}

// DecisionKind is the escalation choice made after retries are exhausted.
type DecisionKind int

const (
	GiveUp DecisionKind = iota
	Decompose
)

func (k DecisionKind) String() string {
	if k == Decompose {
		return "decompose"
	}
	return "give_up"
}

type Decision struct {
	Kind       DecisionKind
	Suggestion string
	Degraded   bool
}

type Planner interface {
	Plan(ctx context.Context, input string) Plan
}

type Classifier interface {
	Classify(ctx context.Context, subtask string) Classification
}

type Researcher interface {
	Research(ctx context.Context, query string) Findings
}

type Generator interface {
	Generate(ctx context.Context, input string) Artifact
}

type Validator interface {
	Validate(ctx context.Context, artifact string) models.ValidationOutcome
}

type Repairer interface {
	Repair(ctx context.Context, artifact, detail string) Artifact
}

type Reviewer interface {
	Review(ctx context.Context, artifact, purpose string) models.ReviewOutcome
}

type Documenter interface {
	Document(ctx context.Context, artifact string) Documentation
}

type Reflector interface {
	Reflect(ctx context.Context, goal, subtask string, failures []string) Decision
}

// Set bundles one implementation of every capability.
type Set struct {
	Planner    Planner
	Classifier Classifier
	Researcher Researcher
	Generator  Generator
	Validator  Validator
	Repairer   Repairer
	Reviewer   Reviewer
	Documenter Documenter
	Reflector  Reflector
}

var ErrMissingCapability = errors.New("capability: missing implementation")

// Validate reports every nil member of the set.
func (s Set) Validate() error {
	var missing []string
	check := func(name string, nilValue bool) {
		if nilValue {
			missing = append(missing, name)
		}
	}
	check("planner", s.Planner == nil)
	check("classifier", s.Classifier == nil)
	check("researcher", s.Researcher == nil)
	check("generator", s.Generator == nil)
	check("validator", s.Validator == nil)
	check("repairer", s.Repairer == nil)
	check("reviewer", s.Reviewer == nil)
	check("documenter", s.Documenter == nil)
	check("reflector", s.Reflector == nil)
	if len(missing) > 0 {
		return errors.Join(ErrMissingCapability, errors.New(strings.Join(missing, ", ")))
	}
	return nil
}

// ClassifyDecision maps free-form reflection text to a Decision using the
// lexical rule: "break down" or "subtask" anywhere, in any case, means decompose.
func ClassifyDecision(text string) Decision {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "break down") || strings.Contains(lower, "subtask") {
		return Decision{Kind: Decompose, Suggestion: text}
	}
	return Decision{Kind: GiveUp, Suggestion: text}
}

type tokenSinkKey struct{}

// WithTokenSink attaches a callback receiving incremental generator output.
func WithTokenSink(ctx context.Context, sink func(chunk string)) context.Context {
	return context.WithValue(ctx, tokenSinkKey{}, sink)
}

// TokenSink returns the callback attached by WithTokenSink, or nil.
func TokenSink(ctx context.Context) func(chunk string) {
	sink, _ := ctx.Value(tokenSinkKey{}).(func(chunk string))
	return sink
}
