package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMPlanner breaks a request into subtasks.
type LLMPlanner struct {
	Client llm.Client
	Logger *slog.Logger
}

var listMarkerRE = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)

func (p *LLMPlanner) Plan(ctx context.Context, input string) capability.Plan {
	log := loggerOr(p.Logger)
	raw, err := p.Client.GenerateText(ctx, buildPlanPrompt(input))
	if err != nil || strings.TrimSpace(raw) == "" {
		log.Warn("planner unavailable, using trivial plan", "err", err)
		return trivialPlan(input)
	}
	if subtasks := parsePlan(raw); len(subtasks) > 0 {
		return capability.Plan{Subtasks: subtasks}
	}
	log.Warn("planner reply had no subtasks, using trivial plan", "raw", truncate(raw, 200))
	return trivialPlan(input)
}

func buildPlanPrompt(input string) string {
	return fmt.Sprintf(`You are a senior software architect. Break down the following user request into clear, actionable subtasks, one per line.
Do not number the lines and do not add any other prose.
User request: %s`, input)
}

// parsePlan accepts a JSON array of strings or one subtask per line.
func parsePlan(raw string) []string {
	text := stripFences(raw)
	var arr []string
	if strings.HasPrefix(text, "[") && json.Unmarshal([]byte(text), &arr) == nil {
		return cleanLines(arr)
	}
	if a := extractJSON(text, '[', ']'); a != "" && json.Unmarshal([]byte(a), &arr) == nil && len(arr) > 0 {
		return cleanLines(arr)
	}
	return cleanLines(strings.Split(text, "\n"))
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(listMarkerRE.ReplaceAllString(strings.TrimSpace(ln), ""))
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// trivialPlan treats the first line of the input as the only subtask.
func trivialPlan(input string) capability.Plan {
	line, _, _ := strings.Cut(strings.TrimSpace(input), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return capability.Plan{Degraded: true}
	}
	return capability.Plan{Subtasks: []string{line}, Degraded: true}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return clip(s, max) + "..."
}

// clip returns the longest prefix of s that fits in max bytes without
// splitting a UTF-8 sequence.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
