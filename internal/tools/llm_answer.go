package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMAnswerTool sends a prompt straight to the model. Output is streamed to
// the context's token sink when one is attached.
type LLMAnswerTool struct{ Client llm.Client }

func (t *LLMAnswerTool) Name() string { return "llm_answer" }

func (t *LLMAnswerTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	// accept either "text" or "question"
	q, _ := inputs["text"].(string)
	if q == "" {
		q, _ = inputs["question"].(string)
	}
	if q == "" {
		return nil, "", fmt.Errorf("missing text/question")
	}
	prompt := q
	if inst, _ := inputs["instructions"].(string); inst != "" {
		prompt = inst + "\n\nQuestion:\n" + q
	}
	if sink := capability.TokenSink(ctx); sink != nil {
		var acc strings.Builder
		err := t.Client.GenerateTextStream(ctx, prompt, func(chunk string) error {
			acc.WriteString(chunk)
			sink(chunk)
			return nil
		})
		if err != nil {
			return nil, "", err
		}
		return acc.String(), "streamed", nil
	}
	ans, err := t.Client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, "", err
	}
	return ans, "", nil
}
