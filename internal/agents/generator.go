package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

// LLMGenerator produces the artifact for a subtask. When the context carries
// a token sink the reply is streamed into it.
type LLMGenerator struct {
	Client llm.Client
	Logger *slog.Logger
}

func (g *LLMGenerator) Generate(ctx context.Context, input string) capability.Artifact {
	prompt := fmt.Sprintf(`You are an expert software engineer. Complete the following task.
If it calls for code, return ONLY the code in a markdown code block.

Task:
%s`, input)
	raw, err := complete(ctx, g.Client, prompt)
	if err != nil {
		loggerOr(g.Logger).Warn("generator unavailable", "err", err)
		return capability.Artifact{Degraded: true}
	}
	return capability.Artifact{Text: extractCode(raw)}
}

// LLMRepairer fixes an artifact given the validator's failure detail.
type LLMRepairer struct {
	Client llm.Client
	Logger *slog.Logger
}

func (r *LLMRepairer) Repair(ctx context.Context, artifact, detail string) capability.Artifact {
	prompt := fmt.Sprintf(`You are an expert debugger. The following code failed its tests.

Code:
%s

Error:
%s

Return ONLY the corrected code in a markdown code block.`, artifact, detail)
	raw, err := r.Client.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		loggerOr(r.Logger).Warn("repairer unavailable, keeping artifact", "err", err)
		return capability.Artifact{Text: artifact, Degraded: true}
	}
	return capability.Artifact{Text: extractCode(raw)}
}

// complete calls the model, streaming into the context's token sink if any.
func complete(ctx context.Context, client llm.Client, prompt string) (string, error) {
	sink := capability.TokenSink(ctx)
	if sink == nil {
		return client.GenerateText(ctx, prompt)
	}
	var acc strings.Builder
	err := client.GenerateTextStream(ctx, prompt, func(chunk string) error {
		acc.WriteString(chunk)
		sink(chunk)
		return nil
	})
	return acc.String(), err
}
