package capability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TheHaywire/solid-fortnight/internal/models"
)

func TestClassifyDecision(t *testing.T) {
	tests := []struct {
		text string
		want DecisionKind
	}{
		{"please break this subtask down further", Decompose},
		{"Try to BREAK DOWN the parser", Decompose},
		{"Split into SubTasks", Decompose},
		{"give up, the requirement is contradictory", GiveUp},
		{"", GiveUp},
		{"breakdown without space", GiveUp},
	}
	for _, tt := range tests {
		got := ClassifyDecision(tt.text)
		if got.Kind != tt.want {
			t.Errorf("ClassifyDecision(%q) = %v, want %v", tt.text, got.Kind, tt.want)
		}
		if got.Suggestion != tt.text {
			t.Errorf("suggestion = %q, want original text", got.Suggestion)
		}
	}
}

type stubPlanner struct{}

func (stubPlanner) Plan(ctx context.Context, input string) Plan { return Plan{} }

func TestSet_Validate(t *testing.T) {
	err := Set{Planner: stubPlanner{}}.Validate()
	if !errors.Is(err, ErrMissingCapability) {
		t.Fatalf("err = %v, want ErrMissingCapability", err)
	}
	if strings.Contains(err.Error(), "planner") {
		t.Errorf("planner is set but reported missing: %v", err)
	}
	for _, name := range []string{"classifier", "reflector", "documenter"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestDecisionKind_String(t *testing.T) {
	if Decompose.String() != "decompose" || GiveUp.String() != "give_up" {
		t.Errorf("unexpected names: %s %s", Decompose, GiveUp)
	}
}

func TestModalityNeedsResearch(t *testing.T) {
	for raw, want := range map[string]bool{" Code\n": false, "TEXT": false, "image": true, "": true} {
		if got := models.NormalizeModality(raw).NeedsResearch(); got != want {
			t.Errorf("NeedsResearch(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestTokenSink(t *testing.T) {
	if TokenSink(context.Background()) != nil {
		t.Error("expected nil sink on bare context")
	}
	var got []string
	ctx := WithTokenSink(context.Background(), func(c string) { got = append(got, c) })
	TokenSink(ctx)("a")
	TokenSink(ctx)("b")
	if strings.Join(got, "") != "ab" {
		t.Errorf("got %q", got)
	}
}
