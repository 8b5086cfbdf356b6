package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMReflector decides what to do with a subtask whose retries ran out.
type LLMReflector struct {
	Client llm.Client
	Logger *slog.Logger
}

type reflection struct {
	Decision   string     `json:"decision"`
	Suggestion flexString `json:"suggestion"`
}

func (m *LLMReflector) Reflect(ctx context.Context, goal, subtask string, failures []string) capability.Decision {
	log := loggerOr(m.Logger)
	raw, err := m.Client.GenerateText(ctx, buildReflectPrompt(goal, subtask, failures))
	if err != nil {
		log.Warn("reflector unavailable, giving up", "err", err)
		return capability.Decision{Kind: capability.GiveUp, Suggestion: "reflection unavailable: " + err.Error(), Degraded: true}
	}
	var r reflection
	if decodeObject(raw, &r) {
		switch strings.ToLower(strings.TrimSpace(r.Decision)) {
		case "decompose":
			return capability.Decision{Kind: capability.Decompose, Suggestion: string(r.Suggestion)}
		case "give_up", "give up", "giveup":
			return capability.Decision{Kind: capability.GiveUp, Suggestion: string(r.Suggestion)}
		}
	}
	log.Warn("reflector reply had no decision, classifying text", "raw", truncate(raw, 200))
	d := capability.ClassifyDecision(strings.TrimSpace(raw))
	d.Degraded = true
	return d
}

func buildReflectPrompt(goal, subtask string, failures []string) string {
	var b strings.Builder
	for i, f := range failures {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	return fmt.Sprintf(`You are a world-class meta-reasoning agent. A subtask failed validation repeatedly.
Suggest a new approach, alternative plan, or escalation.
Respond with JSON only: {"decision": "decompose" or "give_up", "suggestion": "your advice"}.
Choose "decompose" only if splitting the work into smaller pieces is likely to succeed; the suggestion then guides the split.

Overall goal: %s
Failed work item: %s
Failures:
%s`, goal, subtask, b.String())
}
