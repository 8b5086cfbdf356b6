package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheHaywire/solid-fortnight/internal/capability"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

type LLMDocumenter struct {
	Client llm.Client
	Logger *slog.Logger
}

func (d *LLMDocumenter) Document(ctx context.Context, artifact string) capability.Documentation {
	prompt := fmt.Sprintf(`You are a technical writer. Write concise markdown documentation for the artifact below: what it does and how to use it, with a short example.

%s`, artifact)
	raw, err := d.Client.GenerateText(ctx, prompt)
	if err != nil {
		loggerOr(d.Logger).Warn("documenter unavailable", "err", err)
		return capability.Documentation{Degraded: true}
	}
	return capability.Documentation{Text: strings.TrimSpace(raw)}
}
