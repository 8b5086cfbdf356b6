package llm

import (
	"context"
	"strings"
)

// MockClient is used when no real provider is configured. It recognises the
// agent prompts well enough to drive a run end to end without a model.
type MockClient struct{}

func (m *MockClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, `"decision"`):
		return `{"decision": "give_up", "suggestion": "the mock provider cannot suggest another approach"}`, nil
	case strings.Contains(prompt, `"overall_rating"`):
		return `{"issues": "", "suggestions": "", "overall_rating": "mock"}`, nil
	case strings.Contains(prompt, `"passed"`):
		return `{"passed": true, "details": "mock validation passed", "test_code": ""}`, nil
	case strings.Contains(prompt, "modality"):
		return "text", nil
	case strings.Contains(prompt, "one per line"):
		return "- " + requestLine(prompt), nil
	}
	return "[mock response to: " + truncate(prompt, 200) + "]", nil
}

func (m *MockClient) GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	txt, _ := m.GenerateText(ctx, prompt)
	return onDelta(txt)
}

// requestLine returns the first line after "User request:".
func requestLine(prompt string) string {
	_, rest, ok := strings.Cut(prompt, "User request:")
	if !ok {
		rest = prompt
	}
	line, _, _ := strings.Cut(strings.TrimSpace(rest), "\n")
	return strings.TrimSpace(line)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
